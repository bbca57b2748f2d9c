package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxResponseBody bounds how much of a typed backend response is read
const maxResponseBody = 4 << 20

// NewHTTPClient returns the pooled HTTP client shared by every backend call.
// It has no overall timeout; callers bound each request with a context.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Transport: transport,
		// Redirects are relayed to the caller rather than followed
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Client talks to the unified digiMall backend
type Client struct {
	httpClient *http.Client
	cfg        config.BackendConfig
	version    string
	metrics    *telemetry.GatewayMetrics
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the pooled HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records upstream metrics for every call
func WithMetrics(m *telemetry.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a backend client. version is sent as x-service-version.
func NewClient(cfg config.BackendConfig, version string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		httpClient: NewHTTPClient(),
		cfg:        cfg,
		version:    version,
		logger:     log.Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Config returns the backend configuration
func (c *Client) Config() config.BackendConfig {
	return c.cfg
}

// Metrics returns the upstream metrics recorder, which may be nil
func (c *Client) Metrics() *telemetry.GatewayMetrics {
	return c.metrics
}

// URL returns the absolute URL of an /api/v1 resource path
func (c *Client) URL(path string) string {
	return c.cfg.APIURL(path)
}

// call describes one typed request to the backend
type call struct {
	method   string
	path     string // relative to the API prefix
	route    string // low-cardinality name for metrics and spans
	body     any
	identity *identity.Identity
	header   http.Header
}

// doJSON performs c and decodes the envelope's data into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.send(ctx, cl, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return classify(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return decodeData(raw, out)
}

// send performs a single attempt and returns the raw response.
// Transport errors are classified into ErrTimeout or ErrUnavailable.
func (c *Client) send(ctx context.Context, cl call, body io.Reader, contentType string) (*http.Response, error) {
	route := cl.route
	if route == "" {
		route = cl.path
	}

	ctx, span := telemetry.StartClientSpan(ctx, "backend "+cl.method+" "+route,
		attribute.String(telemetry.SpanAttrBackendPath, cl.path),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, cl.method, c.URL(cl.path), body)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for name, values := range cl.header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if cl.identity != nil {
		ApplyIdentityHeaders(req.Header, *cl.identity)
	}
	c.ApplyServiceHeaders(ctx, req.Header)

	done := c.metrics.UpstreamStarted(ctx, route, cl.method)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classify(err)
		outcome := telemetry.OutcomeError
		switch {
		case IsTimeout(err):
			outcome = telemetry.OutcomeTimeout
		case IsNetworkError(err):
			outcome = telemetry.OutcomeUnavailable
		}
		done(0, outcome)
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, c.logger).Warn("Backend request failed",
			zap.String("request_id", logger.GetRequestID(ctx)),
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Error(err),
		)
		return nil, err
	}

	done(resp.StatusCode, telemetry.OutcomeSuccess)
	span.SetAttributes(attribute.Int(telemetry.SpanAttrBackendStatus, resp.StatusCode))
	return resp, nil
}

// envelope is the backend's standard JSON wrapper
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type errorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeData unmarshals the envelope's data field into out. Bodies without an
// envelope are decoded as-is.
func decodeData(raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	payload := raw
	if env.Success != nil || len(env.Data) > 0 {
		if env.Success != nil && !*env.Success {
			return parseAPIError(http.StatusOK, raw)
		}
		payload = env.Data
	}
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("%w: missing data", ErrInvalidResponse)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// parseAPIError builds an APIError from a failed response. The backend sends
// error either as a string or as {code, message}.
func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	apiErr.Code = env.Code
	apiErr.Message = env.Message
	if len(env.Error) > 0 {
		var obj errorObject
		var text string
		switch {
		case json.Unmarshal(env.Error, &obj) == nil:
			if obj.Code != "" {
				apiErr.Code = obj.Code
			}
			if obj.Message != "" {
				apiErr.Message = obj.Message
			}
		case json.Unmarshal(env.Error, &text) == nil:
			if apiErr.Message == "" {
				apiErr.Message = text
			} else if apiErr.Code == "" {
				apiErr.Code = text
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
