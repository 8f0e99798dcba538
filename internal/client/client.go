// Package client consumes the chatbot backend's session and message
// endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"

	"github.com/lumacart/chatwidget/internal/domain"
)

const (
	sessionPath = "/api/chatbot/session"
	messagePath = "/api/chatbot/message"

	// DefaultHydrateTimeout bounds the session-establishment round trip.
	DefaultHydrateTimeout = 10 * time.Second
)

// Client talks to the chatbot backend. Requests carry cookies so the
// backend can correlate the widget with the storefront session.
type Client struct {
	baseURL        string
	http           *http.Client
	hydrateTimeout time.Duration
	logger         *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithHydrateTimeout overrides the session-establishment deadline.
func WithHydrateTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.hydrateTimeout = d
	}
}

// New creates a backend client for the given base URL
func New(baseURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:        baseURL,
		http:           &http.Client{Jar: jar},
		hydrateTimeout: DefaultHydrateTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartSession establishes or resumes a conversation session. The call
// is bounded by the hydrate timeout; exceeding it yields domain.ErrTimeout.
func (c *Client) StartSession(ctx context.Context, req SessionRequest) (*SessionEnvelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.hydrateTimeout)
	defer cancel()

	var env SessionEnvelope
	if err := c.post(ctx, sessionPath, req, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// SendMessage transmits one user utterance and returns the backend's
// authoritative session state.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (*MessageEnvelope, error) {
	var env MessageEnvelope
	if err := c.post(ctx, messagePath, req, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("chatbot backend returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("chatbot backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// classify maps deadline exhaustion onto domain.ErrTimeout so callers can
// distinguish "try again" from a persistent failure.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("chatbot backend unreachable: %w", err)
}
