// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// Configuration constants for the inference service.
const (
	// DefaultBaseURL is where the service listens in local development.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit and DefaultRateBurst throttle requests client side.
	DefaultRateLimit = 2.0
	DefaultRateBurst = 4

	// MaxResponseSize is the largest body read from the service.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// TokenSource returns the bearer token for the current user, or "".
type TokenSource func(ctx context.Context) (string, error)

// =============================================================================
// CLIENT
// =============================================================================

// Client is the inference service client.
type Client struct {
	http    *resty.Client
	baseURL string
	limiter *rate.Limiter
	token   TokenSource
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a client for the service at baseURL. Resty's own retry
// is disabled: a failed send is reported, and retrying is the caller's call.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "modechat")

	return &Client{
		http:    hc,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		log:     log.With().Str("component", "dispatcher").Logger(),
		now:     time.Now,
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.http.SetTimeout(timeout)
	}
	return c
}

// WithRateLimit sets the client-side request rate. perSecond <= 0 disables
// throttling.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithTokenSource sets where the bearer token comes from.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	c.token = ts
	return c
}

// BaseURL returns the service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Send posts one chat turn. It does not retry. Every error it returns is a
// *DispatchError.
func (c *Client) Send(ctx context.Context, req Request) (Turn, error) {
	log := c.log.With().Str("mode", req.Mode.String()).Int("history", len(req.History)).Logger()
	if req.APIKey != "" {
		log = log.With().Str("key_fp", KeyFingerprint(req.APIKey)).Logger()
	}

	status, body, err := c.do(ctx, http.MethodPost, "/api/chat", toWire(req))
	if err != nil {
		log.Warn().Err(err).Msg("dispatch failed")
		return Turn{}, err
	}
	if status < 200 || status >= 300 {
		de := &DispatchError{Kind: KindServerRejected, Status: status, Detail: serverDetail(body)}
		log.Warn().Int("status", status).Str("detail", de.Detail).Msg("dispatch rejected")
		return Turn{}, de
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		log.Warn().Err(err).Msg("dispatch: malformed response")
		return Turn{}, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if out.Message == nil {
		log.Warn().Msg("dispatch: response has no message")
		return Turn{}, &DispatchError{Kind: KindUnexpected, Err: errors.New("response has no message")}
	}

	return Turn{
		Content:   *out.Message,
		Timestamp: parseTimestamp(out.Timestamp, c.now()),
		Language:  out.Language,
		HasCode:   out.HasCode,
	}, nil
}

// Languages lists the programming languages the service supports.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/languages", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &DispatchError{Kind: KindServerRejected, Status: status, Detail: serverDetail(body)}
	}
	var out languagesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("malformed languages response: %w", err)}
	}
	return out.Languages, nil
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) (Health, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return Health{}, err
	}
	if status != http.StatusOK {
		return Health{}, &DispatchError{Kind: KindServerRejected, Status: status, Detail: serverDetail(body)}
	}
	var out Health
	if err := json.Unmarshal(body, &out); err != nil {
		return Health{}, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("malformed health response: %w", err)}
	}
	return out, nil
}

// do performs one request and reads the whole body. Transport failures come
// back as KindUnreachable.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	requestID := uuid.NewString()
	r := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetDoNotParseResponse(true)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return 0, nil, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("identity token: %w", err)}
		}
		if tok != "" {
			r.SetHeader("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := r.Execute(method, path)
	if err != nil {
		return 0, nil, &DispatchError{Kind: KindUnreachable, Err: err}
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return 0, nil, &DispatchError{Kind: KindUnexpected, Err: errors.New("empty response")}
	}
	defer resp.RawResponse.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.RawResponse.Body, MaxResponseSize+1))
	if err != nil {
		return 0, nil, &DispatchError{Kind: KindUnreachable, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if len(data) > MaxResponseSize {
		return 0, nil, &DispatchError{Kind: KindUnexpected, Err: fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)}
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("HTTP client request")
	return resp.StatusCode(), data, nil
}

// KeyFingerprint returns a short SHA-256 fingerprint of an API key.
// CLOUD: Secure logging - use fingerprint instead of exposing key fragments.
func KeyFingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}
