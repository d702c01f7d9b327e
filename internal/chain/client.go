// Package chain provides the asset-transfer boundary of the tip layer.
// Value movement between custodial identities is delegated to an external
// transfer node reachable over JSON-RPC; the engine only observes
// success or rejection.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Client speaks JSON-RPC 2.0 to the transfer node.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// NewClient creates a transfer node client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Call makes an RPC call to the transfer node and returns the raw
// response body.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) ([]byte, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if errMsg := gjson.GetBytes(respBody, "error.message"); errMsg.Exists() {
		return nil, fmt.Errorf("rpc error: %s", errMsg.String())
	}

	return respBody, nil
}

// Transfer moves amount of token between two custodial identities. It is
// called at most once per logical engine operation; a rejection aborts
// the whole operation upstream.
func (c *Client) Transfer(ctx context.Context, from, to, token string, amount *big.Int) error {
	respBody, err := c.Call(ctx, "transfer", []interface{}{from, to, token, amount.String()})
	if err != nil {
		return err
	}

	status := gjson.GetBytes(respBody, "result.status")
	if !status.Exists() {
		return fmt.Errorf("transfer response missing status")
	}
	if status.String() != "ok" {
		reason := gjson.GetBytes(respBody, "result.reason").String()
		if reason == "" {
			reason = status.String()
		}
		return fmt.Errorf("transfer rejected: %s", reason)
	}
	return nil
}
