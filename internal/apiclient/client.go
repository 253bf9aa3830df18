// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apiclient performs authenticated calls against the clinic REST API
// and normalizes the response shapes it returns.
package apiclient

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
	"time"

	"github.com/google/uuid"
)

// Request header names.
const (
	HeaderAuthorization = "Authorization"
	HeaderLegacyToken   = "x-auth-token"
	HeaderRequestID     = "X-Request-ID"
)

// Client defaults.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "clinic-admin/1.0"
	maxErrorBodyLen  = 64 * 1024
)

// successPayload is returned for 204 responses and for 2xx bodies that are not JSON.
var successPayload = json.RawMessage(`{"success":true}`)

// TokenSource supplies the session token for a request.
type TokenSource interface {
	Token(ctx context.Context) string
}

// AuthObserver receives the client's authentication side effects.
type AuthObserver interface {
	// LoginRequired is called when a call is attempted without a token.
	LoginRequired(ctx context.Context)
	// SessionExpired is called after a 401; implementations clear the stored session.
	SessionExpired(ctx context.Context)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Tokens     TokenSource
	Observer   AuthObserver
	Logger     *slog.Logger
}

// Client talks to the clinic API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	tokens    TokenSource
	observer  AuthObserver
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
		tokens:    cfg.Tokens,
		observer:  cfg.Observer,
		logger:    logger,
	}, nil
}

// SetTokenSource replaces the token source. Used when the source is built after the client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SetObserver replaces the auth observer.
func (c *Client) SetObserver(o AuthObserver) {
	c.observer = o
}

type ctxKey int

const tokenOverrideKey ctxKey = iota

// WithToken returns a context whose calls use token instead of the TokenSource.
// Calls made this way never trigger AuthObserver side effects; they are meant for
// background work acting on behalf of a session that is not loaded in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey, token)
}

// Do performs an authenticated request and returns the JSON payload.
// A 204 response or an unparsable 2xx body yields a synthetic {"success":true} payload.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	token, override := ctx.Value(tokenOverrideKey).(string)
	if !override && c.tokens != nil {
		token = c.tokens.Token(ctx)
	}
	if token == "" {
		if !override && c.observer != nil {
			c.observer.LoginRequired(ctx)
		}
		return nil, ErrUnauthenticated
	}

	status, payload, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.logger.Info("api rejected session token", "method", method, "path", path)
		if !override && c.observer != nil {
			c.observer.SessionExpired(ctx)
		}
		return nil, ErrSessionExpired
	}
	return c.result(status, payload)
}

// send performs one HTTP round trip and returns the status and raw body.
func (c *Client) send(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("apiclient: encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
		req.Header.Set(HeaderLegacyToken, token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		c.logger.Warn("api request failed", "method", method, "path", path, "error", err)
		return 0, nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, &NetworkError{Err: err}
	}
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp.StatusCode, payload, nil
}

// result converts a non-401 response into a payload or a RequestError.
func (c *Client) result(status int, payload []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		return nil, &RequestError{Status: status, Message: errorMessage(status, payload)}
	}
	if status == http.StatusNoContent {
		return successPayload, nil
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return successPayload, nil
	}
	return json.RawMessage(trimmed), nil
}

// url joins path to the base URL, dropping any leading slashes from path.
func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// errorMessage extracts a message from a JSON error body, falling back to the status text.
func errorMessage(status int, payload []byte) string {
	if len(payload) > maxErrorBodyLen {
		payload = payload[:maxErrorBodyLen]
	}
	var body struct {
		Message string          `json:"message"`
		Msg     string          `json:"msg"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Msg != "" {
			return body.Msg
		}
		if len(body.Error) > 0 {
			var s string
			if err := json.Unmarshal(body.Error, &s); err == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(body.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
