package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 15 * time.Second

// HTTPClient implements Client against the ledger service's JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a ledger client for the service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// TransferFee returns the flat per-transfer fee.
func (c *HTTPClient) TransferFee(ctx context.Context) (uint64, error) {
	var result struct {
		TransferFee uint64 `json:"transfer_fee"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/transfer_fee", nil, &result); err != nil {
		return 0, fmt.Errorf("failed to query transfer fee: %w", err)
	}
	return result.TransferFee, nil
}

// Transfer submits a transfer and returns the block index it was recorded at.
func (c *HTTPClient) Transfer(ctx context.Context, args TransferArgs) (uint64, error) {
	var result struct {
		BlockIndex uint64 `json:"block_index"`
		Error      string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/transfer", args, &result); err != nil {
		return 0, fmt.Errorf("transfer request failed: %w", err)
	}
	if result.Error != "" {
		return 0, fmt.Errorf("ledger rejected transfer: %s", result.Error)
	}
	return result.BlockIndex, nil
}

// QueryBlocks returns length blocks starting at index start.
func (c *HTTPClient) QueryBlocks(ctx context.Context, start, length uint64) ([]Block, error) {
	payload := struct {
		Start  uint64 `json:"start"`
		Length uint64 `json:"length"`
	}{Start: start, Length: length}

	var result struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/query_blocks", payload, &result); err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	return result.Blocks, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger request failed with status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
