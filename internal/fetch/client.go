// Package fetch downloads source CSV files over HTTP with a bounded
// timeout and response size.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTooLarge is returned when a response body exceeds the configured
// size cap.
var ErrTooLarge = errors.New("response too large")

// Client downloads source files.
type Client struct {
	http     *http.Client
	maxBytes int64
}

// NewClient returns a Client. timeout bounds the whole request and
// maxBytes caps the response body size.
func NewClient(timeout time.Duration, maxBytes int64) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads url and returns the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (cap %d bytes)", url, ErrTooLarge, c.maxBytes)
	}

	return data, nil
}

// FetchTo downloads url into path. The body is streamed to a temp file
// next to path and renamed into place only after the download
// completed, so readers never observe a partial file. Returns the
// number of bytes written.
func (c *Client) FetchTo(ctx context.Context, url, path string) (int64, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if n > c.maxBytes {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("fetch %s: %w (cap %d bytes)", url, ErrTooLarge, c.maxBytes)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename into place: %w", err)
	}

	return n, nil
}

// get issues the request and turns HTTP-level failures into errors,
// including a short excerpt of the error body for diagnostics.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: http %d: %s", url, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	return resp, nil
}
