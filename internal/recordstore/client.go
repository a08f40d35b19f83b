// Package recordstore is an HTTP client for the remote record store's
// generic record endpoints. It knows the raw query and upsert payload shapes
// and nothing about the domain.
package recordstore

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
	// DefaultBaseURL is the public API root of the record store.
	DefaultBaseURL = "https://api.quickbase.com/v1"
	// DefaultTimeout bounds every outbound call when Config.Timeout is unset.
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "vesselportal/1.0"

	pathQuery  = "/records/query"
	pathUpsert = "/records"
)

// ErrTimeout is returned when a call does not complete within the
// configured timeout.
var ErrTimeout = errors.New("record store timeout")

// RemoteStoreError reports a non-success HTTP status from the store.
type RemoteStoreError struct {
	// Op is the operation that failed ("query" or "upsert").
	Op string
	// StatusCode is the HTTP status returned by the store.
	StatusCode int
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("record store %s failed with status %d", e.Op, e.StatusCode)
}

// Store is the set of remote operations the client supports.
type Store interface {
	Query(ctx context.Context, q QueryRequest) ([]Row, error)
	Upsert(ctx context.Context, u UpsertRequest) (*UpsertResult, error)
}

// Config holds the process-wide store credentials and transport settings.
type Config struct {
	// BaseURL is the API root, DefaultBaseURL when empty.
	BaseURL string
	// Realm is the realm hostname sent with every request.
	Realm string
	// UserToken is the secret user token. It is never logged or returned.
	UserToken string
	// Timeout bounds each call; DefaultTimeout when zero or negative.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// UserAgent is sent as the User-Agent header.
	UserAgent string
}

// Client performs authenticated calls against the record store.
type Client struct {
	baseURL   string
	realm     string
	token     string
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		realm:     cfg.Realm,
		token:     cfg.UserToken,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// Query runs a records query and returns the matching rows.
func (c *Client) Query(ctx context.Context, q QueryRequest) ([]Row, error) {
	var resp queryResponse
	if err := c.do(ctx, "query", pathQuery, q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Upsert inserts or updates rows and returns the store's acknowledgment.
func (c *Client) Upsert(ctx context.Context, u UpsertRequest) (*UpsertResult, error) {
	var resp UpsertResult
	if err := c.do(ctx, "upsert", pathUpsert, u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("record store %s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("record store %s: build request: %w", op, err)
	}
	req.Header.Set("QB-Realm-Hostname", c.realm)
	req.Header.Set("Authorization", "QB-USER-TOKEN "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("record store %s: %w", op, ErrTimeout)
		}
		return fmt.Errorf("record store %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RemoteStoreError{Op: op, StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("record store %s: %w", op, ErrTimeout)
		}
		return fmt.Errorf("record store %s: decode response: %w", op, err)
	}
	return nil
}
