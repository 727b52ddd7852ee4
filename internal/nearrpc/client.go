package nearrpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Viewer is the read-only contract query capability the import pipeline
// depends on. Implemented by Client against NEAR JSON-RPC.
type Viewer interface {
	View(ctx context.Context, accountID, method string, args any) (json.RawMessage, error)
	LastProposalID(ctx context.Context, daoID string) (uint64, error)
}

// Client implements Viewer using the NEAR JSON-RPC `query` endpoint.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// NewClient creates a new NEAR RPC client for the given endpoint URL.
func NewClient(rpcURL string) *Client {
	return &Client{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  queryParams `json:"params"`
}

type queryParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type rpcResponse struct {
	Result *callResult `json:"result,omitempty"`
	Error  *rpcError   `json:"error,omitempty"`
}

type callResult struct {
	Result      resultBytes `json:"result,omitempty"`
	Logs        []string    `json:"logs,omitempty"`
	BlockHeight uint64      `json:"block_height,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// resultBytes decodes the byte payload `call_function` returns, which is a
// JSON array of numbers rather than a base64 string.
type resultBytes []byte

func (b *resultBytes) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte value out of range: %d", n)
		}
		out[i] = byte(n)
	}
	*b = out
	return nil
}

type rpcError struct {
	Name    string          `json:"name,omitempty"`
	Cause   json.RawMessage `json:"cause,omitempty"`
	Message string          `json:"message,omitempty"`
}

// View performs a read-only `call_function` query at final block and returns
// the method's JSON return value. args may be nil for no-arg methods.
func (c *Client) View(ctx context.Context, accountID, method string, args any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("nearrpc: failed to marshal args: %w", err)
	}

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "query",
		Params: queryParams{
			RequestType: "call_function",
			Finality:    "final",
			AccountID:   accountID,
			MethodName:  method,
			ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("nearrpc: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("nearrpc: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nearrpc: failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nearrpc: unexpected status code: %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("nearrpc: failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("nearrpc: RPC error: %s - %s", rpcResp.Error.Name, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("nearrpc: empty result")
	}
	if rpcResp.Result.Error != "" {
		return nil, fmt.Errorf("nearrpc: contract error calling %s.%s: %s", accountID, method, rpcResp.Result.Error)
	}

	return json.RawMessage(rpcResp.Result.Result), nil
}

// LastProposalID fetches the DAO's proposal counter. The contract returns a
// bare JSON number.
func (c *Client) LastProposalID(ctx context.Context, daoID string) (uint64, error) {
	raw, err := c.View(ctx, daoID, "get_last_proposal_id", nil)
	if err != nil {
		return 0, fmt.Errorf("nearrpc: failed to get last proposal id: %w", err)
	}

	id, err := strconv.ParseUint(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nearrpc: failed to parse last proposal id %q: %w", raw, err)
	}
	return id, nil
}
