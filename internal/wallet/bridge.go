package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Bridge implements Signer against a wallet-bridge HTTP endpoint. The bridge
// holds the keys; this service only hands it the prepared transactions.
type Bridge struct {
	baseURL    string
	httpClient *http.Client
}

func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Signing may wait on a human confirmation on the other side.
			Timeout: 120 * time.Second,
		},
	}
}

type signRequest struct {
	Transactions []Transaction `json:"transactions"`
}

type signResponse struct {
	Results []Result `json:"results"`
	Error   string   `json:"error,omitempty"`
}

func (b *Bridge) SignAndSend(ctx context.Context, txs []Transaction) ([]Result, error) {
	payload, err := json.Marshal(signRequest{Transactions: txs})
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to encode transactions: %w", err)
	}

	endpoint := b.baseURL + "/sign-and-send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var body signResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("wallet: failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return nil, fmt.Errorf("wallet: bridge rejected batch: %s", body.Error)
		}
		return nil, fmt.Errorf("wallet: unexpected status code: %d", resp.StatusCode)
	}
	if len(body.Results) != len(txs) {
		return nil, fmt.Errorf("wallet: bridge returned %d results for %d transactions", len(body.Results), len(txs))
	}
	return body.Results, nil
}
