// Package rpc implements the JSON-RPC façade over an ordered pool of
// chain endpoints: primary first, fallbacks after, with bounded
// retries and exponential backoff between attempts.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/chainterm/gatekeeper/ports"
)

const (
	// maxAttempts bounds the whole call: one try per endpoint in order,
	// wrapping around if fewer endpoints than attempts are configured.
	maxAttempts = 3

	backoffBase = 2 * time.Second
	backoffMax  = 8 * time.Second
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *responseError  `json:"error"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *responseError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client talks JSON-RPC to the configured endpoint list. Safe for
// concurrent use.
type Client struct {
	endpoints []string
	http      *http.Client
	executor  failsafe.Executor[json.RawMessage]
	logger    *logrus.Logger
}

// NewClient builds a client over the ordered endpoint list. timeout
// bounds each individual attempt; the caller's context bounds the
// whole operation including backoff sleeps.
func NewClient(endpoints []string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpc: at least one endpoint is required")
	}

	retry := retrypolicy.NewBuilder[json.RawMessage]().
		WithBackoff(backoffBase, backoffMax).
		WithMaxRetries(maxAttempts - 1).
		Build()

	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		executor:  failsafe.With(retry),
		logger:    logger,
	}, nil
}

var _ ports.RPCClient = (*Client)(nil)

// Call performs a JSON-RPC request. Every call walks the endpoint
// list from the primary; only retries within the same call move on to
// the fallbacks.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	return c.executor.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[json.RawMessage]) (json.RawMessage, error) {
		endpoint := c.endpoints[(exec.Attempts()-1)%len(c.endpoints)]
		result, err := c.call(ctx, endpoint, method, params)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"method":   method,
				"attempt":  exec.Attempts(),
			}).WithError(err).Warn("rpc attempt failed")
		}
		return result, err
	})
}

func (c *Client) call(ctx context.Context, endpoint, method string, params []any) (json.RawMessage, error) {
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rpc request failed: status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}
