// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/config"
	"github.com/jeranaias/trialdesk/internal/session"
)

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries for GET requests.
	DefaultMaxRetries = 2

	// MePath is the operator profile endpoint.
	MePath = "/auth/me"

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize bounds every response body.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "trialdesk/1.0"
)

// Session is the part of the session controller Do needs.
type Session interface {
	AuthToken(ctx context.Context) (string, bool)
	Touch()
	Terminate(reason session.Reason)
}

// Client talks to the recruitment platform API.
type Client struct {
	baseURL     string
	loginPath   string
	refreshPath string
	renewal     bool

	httpClient *http.Client
	maxRetries int
	clock      clockwork.Clock
	logger     *zap.Logger
	session    Session
}

// New returns a client configured from the [api] section.
func New(cfg config.APIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		loginPath:   cfg.LoginPath,
		refreshPath: cfg.RefreshPath,
		renewal:     cfg.RenewalEnabled && cfg.RefreshPath != "",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		maxRetries: cfg.MaxRetries,
		clock:      clockwork.NewRealClock(),
		logger:     logger.Named("api"),
	}
}

// WithBaseURL sets the API base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithMaxRetries sets the number of retries for GET requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithClock sets the clock used to resolve expires_in.
func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

// WithSession attaches the session used by Do.
func (c *Client) WithSession(s Session) *Client {
	c.session = s
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RenewalEnabled reports whether Renew can be used.
func (c *Client) RenewalEnabled() bool {
	return c.renewal
}

// Renewer returns c as a session.Renewer, or nil when renewal is disabled.
func (c *Client) Renewer() session.Renewer {
	if !c.renewal {
		return nil
	}
	return c
}

// =============================================================================
// TOKEN ENDPOINTS
// =============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (session.Grant, error) {
	body, err := json.Marshal(loginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return session.Grant{}, fmt.Errorf("encode login request: %w", err)
	}

	resp, data, err := c.send(ctx, http.MethodPost, c.loginPath, body, "")
	if err != nil {
		return session.Grant{}, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.logger.Info("login refused", zap.Int("status", resp.StatusCode))
		return session.Grant{}, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return session.Grant{}, parseError(resp.StatusCode, data)
	}
	return c.decodeGrant(data)
}

// Renew exchanges token at the refresh endpoint.
func (c *Client) Renew(ctx context.Context, token string) (session.Grant, error) {
	if !c.renewal {
		return session.Grant{}, ErrRenewalDisabled
	}

	resp, data, err := c.send(ctx, http.MethodPost, c.refreshPath, []byte("{}"), token)
	if err != nil {
		return session.Grant{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session.Grant{}, parseError(resp.StatusCode, data)
	}
	return c.decodeGrant(data)
}

func (c *Client) decodeGrant(data []byte) (session.Grant, error) {
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return session.Grant{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return tr.toGrant(c.clock.Now())
}

// =============================================================================
// AUTHENTICATED CALLS
// =============================================================================

// Operator is the signed-in operator's profile.
type Operator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Me fetches the operator profile.
func (c *Client) Me(ctx context.Context) (*Operator, error) {
	var op Operator
	if err := c.Do(ctx, http.MethodGet, MePath, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Do performs an authenticated request. in, when non-nil, is sent as JSON;
// out, when non-nil, receives the decoded 2xx body.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	if c.session == nil {
		return session.ErrUnauthenticated
	}
	token, ok := c.session.AuthToken(ctx)
	if !ok {
		return session.ErrUnauthenticated
	}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet && c.maxRetries > 0 {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(calculateBackoff(attempt - 1)):
			}
		}

		resp, data, err := c.send(ctx, method, path, body, token)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.logger.Warn("token rejected, ending session", zap.String("path", path))
			c.session.Terminate(session.ReasonUnauthorized)
			return parseError(resp.StatusCode, data)
		case resp.StatusCode >= 500:
			lastErr = parseError(resp.StatusCode, data)
			continue
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return parseError(resp.StatusCode, data)
		}

		c.session.Touch()
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if attempts > 1 {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return lastErr
}

// =============================================================================
// TRANSPORT
// =============================================================================

// send performs one request and reads the bounded body.
func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", c.clock.Since(start)),
	)
	if err != nil {
		return nil, nil, err
	}
	return resp, data, nil
}

func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// calculateBackoff returns the delay before retry attempt+1.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// IsUnauthorized reports whether err means the session is gone.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, session.ErrUnauthenticated)
}
