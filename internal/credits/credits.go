package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Service returns the remaining bulk-import recipient quota for an
// organization.
type Service interface {
	Remaining(ctx context.Context, org string) (int, error)
}

// Client implements Service against the credits HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Remaining fetches the current credit count. A missing organization is
// reported by the service as zero credits, not an error.
func (c *Client) Remaining(ctx context.Context, org string) (int, error) {
	endpoint := fmt.Sprintf("%s/credits?org=%s", c.baseURL, url.QueryEscape(org))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("credits: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("credits: failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("credits: unexpected status code: %d", resp.StatusCode)
	}

	var body struct {
		Credits int `json:"credits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("credits: failed to decode response: %w", err)
	}

	if body.Credits < 0 {
		return 0, fmt.Errorf("credits: negative credit count: %d", body.Credits)
	}
	return body.Credits, nil
}
