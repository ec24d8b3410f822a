package backend

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

	"go.uber.org/zap"
)

// Error is returned for non-2xx replies and for replies whose body carries
// an error field. Detail is the server-provided message, if any.
type Error struct {
	Op     string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: http %d", e.Op, e.Status)
}

// DetailOf extracts the server-provided detail from err, if err wraps an
// *Error that has one.
func DetailOf(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail, true
	}
	return "", false
}

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger; the default discards.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

// Codes calls GET /api/codes.
func (c *Client) Codes(ctx context.Context) ([]Code, error) {
	var out codesResponse
	if err := c.do(ctx, "codes", http.MethodGet, "/api/codes", nil, &out); err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// Chat calls POST /api/chat.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var out ChatReply
	if err := c.do(ctx, "chat", http.MethodPost, "/api/chat", req, &out); err != nil {
		return ChatReply{}, err
	}
	if msg := strings.TrimSpace(out.Error); msg != "" {
		return ChatReply{}, &Error{Op: "chat", Status: http.StatusOK, Detail: msg}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s request failed on %s: %w", op, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("bytes", len(payload)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, Status: resp.StatusCode, Detail: parseDetail(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: backend returned non-json payload: %w", op, err)
	}
	return nil
}

// parseDetail reads the {"detail": ...} body of an error reply. Validation
// errors carry a list there; only a plain string is used verbatim.
func parseDetail(payload []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || len(parsed.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
