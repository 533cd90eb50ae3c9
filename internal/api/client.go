// Package api provides the authenticated HTTP client for the remote
// benefits-card API. It injects the bearer token, rate-limits outgoing
// calls, and centralizes the refresh-on-401 retry that screens used to
// implement ad hoc.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
)

// TokenSource exposes the current bearer token. An empty token means the
// request goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Refresher triggers a token refresh. Implementations must coalesce
// concurrent calls into a single in-flight refresh.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Response carries the decoded-enough result of one API call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client is the remote API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	tokens     TokenSource
	refresher  Refresher
	log        *logging.Logger
}

// Config configures the client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	Tokens         TokenSource
	Refresher      Refresher
	Logger         *logging.Logger
}

// New creates a configured client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("api")
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    limiter,
		tokens:     cfg.Tokens,
		refresher:  cfg.Refresher,
		log:        log,
	}
}

// Do executes one request. On a 401 it triggers a single token refresh and
// retries once with the new token; a second 401 surfaces as Unauthorized.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	resp, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || c.refresher == nil {
		return resp, nil
	}

	c.log.WithField("path", path).Debug("401 received, refreshing token and retrying once")
	if err := c.refresher.Refresh(ctx); err != nil {
		return nil, apperrors.Unauthorized("token refresh after 401 failed").WithDetails("path", path)
	}

	retried, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if retried.StatusCode == http.StatusUnauthorized {
		return nil, apperrors.Unauthorized("request unauthorized after refresh").WithDetails("path", path)
	}
	return retried, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.Network("rate limiter wait interrupted", err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Internal("marshal request body", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, apperrors.Internal("create request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(method, 0, time.Since(start))
		return nil, apperrors.Network(fmt.Sprintf("%s %s", method, path), err)
	}
	defer httpResp.Body.Close()

	respBody, err := readAllWithLimit(httpResp.Body, 8<<20)
	metrics.RecordAPIRequest(method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, apperrors.Network("read response body", err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// GetJSON performs a GET and decodes the response into target.
func (c *Client) GetJSON(ctx context.Context, path string, target any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, target)
}

// PostJSON performs a POST and decodes the response into target. A nil
// target discards the body.
func (c *Client) PostJSON(ctx context.Context, path string, body, target any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, target)
}

// DecodeResponse maps error statuses to ServiceErrors and decodes success
// bodies into target.
func DecodeResponse(resp *Response, target any) error {
	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	if target == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return apperrors.Internal("decode response", err)
	}
	return nil
}

func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
