// Package client is a small Go client for the vessel portal API, used by
// the interactive shell in cmd/client.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
)

// APIError is a non-2xx answer from the portal.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// MutationResult is the body of a successful update.
type MutationResult struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    recordstore.UpsertMetadata `json:"data"`
}

// Client calls the portal API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a Client for baseURL. httpClient may be nil.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// NewHTTPClient returns an HTTP client trusting the PEM certificates in
// caFile, for servers using a development
// certificate. An empty caFile yields a client using the system roots.
func NewHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: 10 * time.Second}, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

// Me returns the caller's client record.
func (c *Client) Me(ctx context.Context) (*models.Client, error) {
	var out models.Client
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContact changes contact fields of the caller's record.
func (c *Client) UpdateContact(ctx context.Context, updates map[string]string) (*MutationResult, error) {
	var out MutationResult
	if err := c.do(ctx, http.MethodPatch, "/api/users/me", updates, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity lists the caller's recent accepted changes.
func (c *Client) Activity(ctx context.Context) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	if err := c.do(ctx, http.MethodGet, "/api/users/me/activity", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vessels lists the caller's vessels.
func (c *Client) Vessels(ctx context.Context) ([]models.Vessel, error) {
	var out []models.Vessel
	if err := c.do(ctx, http.MethodGet, "/api/vessels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vessel returns one of the caller's vessels.
func (c *Client) Vessel(ctx context.Context, id int64) (*models.Vessel, error) {
	var out models.Vessel
	if err := c.do(ctx, http.MethodGet, "/api/vessels/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetVesselStatus activates or deactivates one of the caller's vessels.
func (c *Client) SetVesselStatus(ctx context.Context, id int64, active bool) (*MutationResult, error) {
	var out MutationResult
	path := "/api/vessels/" + strconv.FormatInt(id, 10) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, map[string]bool{"isActive": active}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
