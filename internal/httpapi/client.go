// ABOUTME: HTTP client for the tracker daemon API
// ABOUTME: Used by CLI commands and the MCP server to control a running daemon

package httpapi

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

	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/tracker"
)

// ErrDaemonUnavailable means nothing answered at the daemon address.
var ErrDaemonUnavailable = errors.New("tracker daemon not reachable")

// ErrNotFound mirrors a 404 from the daemon.
var ErrNotFound = errors.New("not found")

// Client talks to a daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets addr, either host:port or a full URL.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// apiError is echo's default error body.
type apiError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+APIPrefix+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrDaemonUnavailable, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = resp.Status
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Start sends START and returns the resulting status.
func (c *Client) Start(ctx context.Context) (*tracker.Status, error) {
	var st tracker.Status
	if err := c.do(ctx, http.MethodPost, "/tracking/start", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Stop sends STOP and returns the resulting status.
func (c *Client) Stop(ctx context.Context) (*tracker.Status, error) {
	var st tracker.Status
	if err := c.do(ctx, http.MethodPost, "/tracking/stop", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Status fetches the tracking status.
func (c *Client) Status(ctx context.Context) (*tracker.Status, error) {
	var st tracker.Status
	if err := c.do(ctx, http.MethodGet, "/tracking", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Locations fetches the stored trace, newest first.
func (c *Client) Locations(ctx context.Context) ([]*models.Sample, error) {
	var samples []*models.Sample
	if err := c.do(ctx, http.MethodGet, "/locations", nil, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Latest fetches the newest sample.
func (c *Client) Latest(ctx context.Context) (*models.Sample, error) {
	var s models.Sample
	if err := c.do(ctx, http.MethodGet, "/locations/latest", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Clear deletes every stored sample.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/locations", nil, nil)
}

// SubmitFixes posts fixes to a daemon using the push source.
func (c *Client) SubmitFixes(ctx context.Context, fixes ...FixRequest) (int, error) {
	var resp FixResponse
	if err := c.do(ctx, http.MethodPost, "/fixes", fixes, &resp); err != nil {
		return 0, err
	}
	return resp.Accepted, nil
}
