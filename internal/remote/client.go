// Package remote delivers submissions and sync actions to the external
// workflow webhook.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nhle/po-intake/internal/model"
)

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a delivery. Callers branch on Success; Err
// keeps the underlying error for errors.Is / errors.As.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Queued  bool   `json:"queued,omitempty"`
	Err     error  `json:"-"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error(), Err: err}
}

// Client is the one-attempt webhook client. It never retries; retrying is
// left to the sync engine or to Resilient.
type Client struct {
	mu  sync.RWMutex
	cfg model.RemoteConfig

	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock sets the time source used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a webhook client for cfg.
func NewClient(cfg model.RemoteConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the remote config in use.
func (c *Client) Config() model.RemoteConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetConfig swaps the remote config. Calls already in flight keep the
// config they started with.
func (c *Client) SetConfig(cfg model.RemoteConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Send shapes sub and posts it unwrapped.
func (c *Client) Send(ctx context.Context, sub model.Submission) Result {
	return c.Post(ctx, Shape(sub, c.now()))
}

// Post makes one delivery of payload as a JSON object.
func (c *Client) Post(ctx context.Context, payload any) Result {
	data, err := c.do(ctx, payload)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, Data: data}
}

// TestPost sends a marker payload so an admin can confirm the webhook is
// reachable.
func (c *Client) TestPost(ctx context.Context) Result {
	return c.Post(ctx, map[string]any{
		"test":   true,
		"ts":     model.FormatTime(c.now()),
		"source": "admin_test",
	})
}

// Health is the outcome of HealthCheck.
type Health struct {
	Success bool   `json:"success"`
	Online  bool   `json:"online"`
	Error   string `json:"error,omitempty"`
}

// HealthCheck posts a HEALTH_CHECK action and reports whether the webhook
// answered.
func (c *Client) HealthCheck(ctx context.Context) Health {
	res := c.Post(ctx, map[string]any{
		"action":    model.ActionHealthCheck,
		"timestamp": model.FormatTime(c.now()),
	})
	return Health{Success: res.Success, Online: res.Success, Error: res.Error}
}

// do builds the request, applies the timeout, and decodes the response.
// JSON bodies are decoded when the response says so; anything else is
// returned as text.
func (c *Client) do(ctx context.Context, payload any) (any, error) {
	cfg := c.Config()
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrNoEndpoint
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("x-api-key", cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timeout after %s: %w", c.timeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("webhook responded",
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: http.StatusText(resp.StatusCode),
			Body:   string(respBody),
		}
	}

	return decodeBody(resp.Header.Get("Content-Type"), respBody), nil
}

func decodeBody(contentType string, body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}
