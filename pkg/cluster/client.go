package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/lukapolovic/moviesearch/pkg/api"
)

// Query-path timeouts, looser than probe timeouts: a slow answer still
// beats a failover.
const (
	queryConnectTimeout  = 500 * time.Millisecond
	queryResponseTimeout = 1500 * time.Millisecond
	searchEndpoint       = "/internal/search"
)

// TransportError wraps a network-level failure talking to a replica, as
// opposed to an HTTP response with a bad status.
type TransportError struct {
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyTransport names a transport failure for attempt records.
func classifyTransport(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "connect_error"
}

// ShardClient posts internal search requests to shard replicas over a
// shared pooled transport. Transport failures are retried exactly once;
// HTTP error statuses are real responses and are never retried.
type ShardClient struct {
	httpClient *http.Client
}

// NewShardClient creates a client with the fan-out timeouts.
func NewShardClient() *ShardClient {
	return &ShardClient{
		httpClient: &http.Client{
			Timeout: queryConnectTimeout + queryResponseTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: queryConnectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: queryResponseTimeout,
				MaxIdleConns:          64,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// Search posts the payload to one replica. On success it returns the
// decoded response and the HTTP status. A non-nil error means the payload
// could not be encoded, the transport failed after the one retry, or a 200
// body could not be decoded (a protocol_error, not retried); resp is nil
// unless status is 200 and the body decoded.
func (c *ShardClient) Search(ctx context.Context, base string, payload api.SearchRequest) (*api.SearchResponse, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode search payload: %w", err)
	}

	resp, err := c.postWithRetry(ctx, base+searchEndpoint, body)
	if err != nil {
		return nil, 0, &TransportError{Kind: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var decoded api.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, resp.StatusCode, &TransportError{Kind: "protocol_error", Err: err}
	}
	return &decoded, resp.StatusCode, nil
}

// postWithRetry retries once on transport errors only. Status codes are
// answers, not failures.
func (c *ShardClient) postWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	resp, err := c.post(ctx, url, body)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return c.post(ctx, url, body)
}

func (c *ShardClient) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
