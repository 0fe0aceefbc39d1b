package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultTimeout bounds a single mirror call.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a remote response is read.
const maxResponseBytes = 16 << 20

// ErrUnavailable wraps failures to reach a mirror or to read its response.
var ErrUnavailable = errors.New("mirror unavailable")

// RemoteError is returned when the mirror answers with a non-success status.
type RemoteError struct {
	Status  string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mirror returned status %q", e.Status)
	}
	return fmt.Sprintf("mirror returned status %q: %s", e.Status, e.Message)
}

// Client talks to mirror web apps. Each endpoint gets its own circuit
// breaker so one dead sheet does not slow down syncs to the others.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a mirror client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncGroup overwrites the remote sheet at endpoint with p.
func (c *Client) SyncGroup(ctx context.Context, endpoint string, p Payload) error {
	body, err := json.Marshal(SyncGroupRequest{Action: ActionSyncGroup, Payload: p})
	if err != nil {
		return fmt.Errorf("failed to encode sync request: %w", err)
	}

	var ack Ack
	err = c.do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &ack)
	if err != nil {
		return err
	}
	if ack.Status != StatusSuccess {
		return &RemoteError{Status: ack.Status, Message: ack.Message}
	}
	return nil
}

// GetAll reads the full snapshot stored at endpoint.
func (c *Client) GetAll(ctx context.Context, endpoint string) (*Payload, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror URL: %w", err)
	}
	q := u.Query()
	q.Set("action", ActionGetAll)
	u.RawQuery = q.Encode()

	var resp GetAllResponse
	err = c.do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusSuccess {
		return nil, &RemoteError{Status: resp.Status, Message: resp.Message}
	}
	return &resp.Data, nil
}

// do runs one request through the endpoint's breaker and decodes the JSON
// response into out.
func (c *Client) do(ctx context.Context, endpoint string, build func(context.Context) (*http.Request, error), out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.breaker(endpoint).Execute(func() (interface{}, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("mirror responded with HTTP %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read mirror response: %w", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("malformed mirror response: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, redact(endpoint), err)
	}
	return nil
}

func (c *Client) breaker(endpoint string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[endpoint]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        redact(endpoint),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Mirror circuit breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[endpoint] = cb
	return cb
}

// redact strips the query so deployment keys do not end up in logs.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "invalid-url"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
