// Package jsonrpc implements the minimal JSON-RPC 2.0 HTTP transport shared
// by the wallet providers and the contract gateway.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/brickvest/coinvest_layer/pkg/logger"
)

const maxResponseBytes = 4 << 20

// RPCError is a JSON-RPC error object returned by the node or wallet bridge.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// CodeUserRejected is the EIP-1193 code for a user-rejected request.
const CodeUserRejected = 4001

// Client is a rate-limited JSON-RPC 2.0 client over HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
	log        *logger.Logger
	nextID     atomic.Int64
}

// NewClient creates a client for the given endpoint. requestsPerSecond <= 0
// disables rate limiting.
func NewClient(endpoint string, timeout time.Duration, requestsPerSecond int, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("jsonrpc")
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		limiter:    limiter,
		log:        log,
	}
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Call invokes a JSON-RPC method and unmarshals the result into out. A nil
// out discards the result. RPC-level failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(struct {
		JSONRPC string        `json:"jsonrpc"`
		ID      int64         `json:"id"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
	}{"2.0", c.nextID.Add(1), method, params})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: status %d", method, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode rpc result: %w", err)
	}
	return nil
}
