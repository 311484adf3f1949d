// Package supabase talks to a hosted Supabase project over its REST surfaces: the
// PostgREST table API, the storage object API and the GoTrue auth API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"gastos/internal/remote"
)

// APIError is a non-2xx answer from any Supabase endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Config struct {
	URL     string
	AnonKey string
	Table   string
	Bucket  string
	Timeout time.Duration
}

// Client is safe for concurrent use. Requests carry the current user access token
// when one is set and fall back to the anon key otherwise.
type Client struct {
	http    *http.Client
	baseURL string
	anonKey string
	table   string
	bucket  string

	mu    sync.RWMutex
	token string
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase: url and anon key are required")
	}
	if cfg.Table == "" {
		cfg.Table = remote.DefaultTable
	}
	if cfg.Bucket == "" {
		cfg.Bucket = remote.DefaultBucket
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		table:   cfg.Table,
		bucket:  cfg.Bucket,
	}, nil
}

// SetAccessToken switches the bearer used for row and storage calls. An empty token
// reverts to the anon key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		return c.token
	}
	return c.anonKey
}

// Rows returns the table adapter.
func (c *Client) Rows() *RowStore { return &RowStore{c: c} }

// Storage returns the photo bucket adapter.
func (c *Client) Storage() *Bucket { return &Bucket{c: c} }

type request struct {
	method      string
	path        string
	query       map[string]string
	body        io.Reader
	contentType string
	headers     map[string]string
	bearer      string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(r.query) > 0 {
		q := req.URL.Query()
		for k, v := range r.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.bearer()
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query map[string]string, body any, headers map[string]string, out any) error {
	r := request{method: method, path: path, query: query, headers: headers}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}
	return c.do(ctx, r, out)
}

// readAPIError extracts the message from any of the error shapes the three services
// return.
func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription, payload.Error} {
			if m != "" {
				msg = m
				break
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	slog.Debug("Supabase request failed", "status", resp.StatusCode, "message", msg)
	return &APIError{Status: resp.StatusCode, Message: msg}
}
