// Package apiclient provides the shared client for the remote recipe API
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	apperrors "github.com/pantrypilot/web/pkg/errors"
)

const (
	bearerPrefix       = "Bearer "
	sessionTokenHeader = "x-session-token"
	serviceName        = "recipe-api"
)

// UnauthorizedHandler is told about every 401 answered by the API. The
// client never clears credentials itself.
type UnauthorizedHandler func(ctx context.Context, err *apperrors.AppError)

// Client handles communication with the recipe API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *monitoring.MetricsCollector

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// New creates a new API client instance. metrics may be nil.
func New(cfg *config.Config, logger *zap.Logger, metrics *monitoring.MetricsCollector) *Client {
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.API.BaseURL, "/"),
		userAgent: cfg.API.UserAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger,
		metrics: metrics,
	}
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetUnauthorizedHandler installs the 401 hook
func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	c.mu.Lock()
	c.onUnauthorized = h
	c.mu.Unlock()
}

// AuthHeader returns the Authorization header value for a stored token.
// Tokens already carrying the Bearer scheme are sent unchanged.
func AuthHeader(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}
	return bearerPrefix + token
}

// request describes one API call
type request struct {
	method string
	path   string
	token  string
	query  url.Values
	body   interface{}
}

func (c *Client) get(ctx context.Context, path, token string, query url.Values, response interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, token: token, query: query}, response)
}

func (c *Client) post(ctx context.Context, path, token string, body, response interface{}) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, token: token, body: body}, response)
}

func (c *Client) patch(ctx context.Context, path, token string, body, response interface{}) error {
	return c.do(ctx, request{method: http.MethodPatch, path: path, token: token, body: body}, response)
}

func (c *Client) delete(ctx context.Context, path, token string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path, token: token}, nil)
}

// do sends the request and decodes a successful body into response. A nil
// response discards the body.
func (c *Client) do(ctx context.Context, r request, response interface{}) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		jsonBody, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.token != "" {
		req.Header.Set("Authorization", AuthHeader(r.token))
		req.Header.Set(sessionTokenHeader, r.token)
	}

	c.logger.Debug("API request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Bool("authenticated", r.token != ""),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(r, 0, start)
		c.logger.Warn("API request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return apperrors.NewExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()
	c.observe(r, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewExternalServiceError(serviceName, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		appErr := apperrors.FromResponse(resp.StatusCode, respBody).
			WithMetadata("method", r.method).
			WithMetadata("path", r.path)

		c.logger.Info("API error response",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", appErr.Message),
		)

		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook(ctx, appErr)
			}
		}
		return appErr
	}

	if response == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, response); err != nil {
		return apperrors.NewExternalServiceError(serviceName, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}

func (c *Client) observe(r request, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequest(r.method, endpointLabel(r.path), status, time.Since(start))
}

// endpointLabel collapses ids out of the path to keep label cardinality low:
// /recipes/abc/feedback becomes /recipes/:id/feedback.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "recipes" {
		return path
	}
	switch parts[1] {
	case "generate", "cuisines", "search", "alternatives", "save":
		return path
	case "saved":
		if len(parts) > 2 {
			return "/recipes/saved/:id"
		}
		return path
	case "shared":
		return "/recipes/shared/:shareId"
	}
	parts[1] = ":id"
	return "/" + strings.Join(parts, "/")
}
