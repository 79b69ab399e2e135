// Package ledger wraps the JSON-RPC surface of the target network: object
// reads, batched object reads, and event queries. It owns no domain logic;
// the synchronizer layers parsing and view construction on top.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	methodGetObject       = "iota_getObject"
	methodMultiGetObjects = "iota_multiGetObjects"
	methodQueryEvents     = "iotax_queryEvents"
	methodChainIdentifier = "iota_getChainIdentifier"

	// JSON-RPC codes that mean the node does not expose the method at all.
	rpcCodeMethodNotFound = -32601

	defaultEventPageLimit = 50
	maxEventPages         = 100

	responseBodyLimit int64 = 8 << 20
)

// ErrBulkUnsupported signals that the node does not serve batched object
// reads and the caller should hydrate per object instead.
var ErrBulkUnsupported = errors.New("ledger: bulk object read unsupported")

// HTTPClient talks JSON-RPC 2.0 to a ledger fullnode.
type HTTPClient struct {
	httpClient     *http.Client
	rpcURL         string
	eventPageLimit int
}

// Option configures optional client behavior.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEventPageLimit overrides the page size used for event queries.
func WithEventPageLimit(limit int) Option {
	return func(c *HTTPClient) {
		if limit > 0 {
			c.eventPageLimit = limit
		}
	}
}

// NewHTTPClient builds a ledger client for the given RPC endpoint.
func NewHTTPClient(rpcURL string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	trimmed := strings.TrimSpace(rpcURL)
	if trimmed == "" {
		return nil, errors.New("ledger rpc url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &HTTPClient{
		rpcURL:         trimmed,
		httpClient:     &http.Client{Timeout: timeout},
		eventPageLimit: defaultEventPageLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

var objectReadOptions = map[string]bool{
	"showContent": true,
	"showOwner":   true,
}

// GetObject resolves a single object identifier.
func (c *HTTPClient) GetObject(ctx context.Context, id string) (*ObjectResult, error) {
	var result ObjectResult
	if err := c.call(ctx, methodGetObject, []any{id, objectReadOptions}, &result); err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	return &result, nil
}

// MultiGetObjects hydrates a batch of identifiers in one round trip.
func (c *HTTPClient) MultiGetObjects(ctx context.Context, ids []string) ([]*ObjectResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var results []*ObjectResult
	err := c.call(ctx, methodMultiGetObjects, []any{ids, objectReadOptions}, &results)
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && rpcErr.Code == rpcCodeMethodNotFound {
			return nil, ErrBulkUnsupported
		}
		return nil, fmt.Errorf("multi get objects: %w", err)
	}
	return results, nil
}

type eventPage struct {
	Data        []Event         `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

// QueryEvents pages through every event of the given move event type.
func (c *HTTPClient) QueryEvents(ctx context.Context, eventType string) ([]Event, error) {
	if strings.TrimSpace(eventType) == "" {
		return nil, errors.New("event type is required")
	}

	query := map[string]any{"MoveEventType": eventType}
	var cursor json.RawMessage
	var events []Event

	for page := 0; page < maxEventPages; page++ {
		params := []any{query, cursor, c.eventPageLimit, false}
		var result eventPage
		if err := c.call(ctx, methodQueryEvents, params, &result); err != nil {
			return nil, fmt.Errorf("query events %s: %w", eventType, err)
		}
		events = append(events, result.Data...)
		if !result.HasNextPage || len(result.NextCursor) == 0 {
			return events, nil
		}
		cursor = result.NextCursor
	}
	// A truncated event list would under-report assets downstream, so an
	// exhausted page budget with more pages pending is a hard failure.
	return nil, fmt.Errorf("query events %s: event log exceeds %d pages", eventType, maxEventPages)
}

// Ping asks the node for its chain identifier to verify reachability.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var chain string
	if err := c.call(ctx, methodChainIdentifier, []any{}, &chain); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
