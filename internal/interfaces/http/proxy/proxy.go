// Package proxy forwards authenticated admin requests to the digiMall
// backend. Every /api/v1/<resource> endpoint of the backend is reachable as
// /api/proxy/<resource>; the gateway attaches the caller's identity and
// relays the backend's response.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a proxied round-trip when the backend config has none
const DefaultTimeout = 30 * time.Second

// DefaultBufferLimit is how much of a text response is held in memory before
// the rest is streamed
const DefaultBufferLimit int64 = 16 << 20

// metricsRoute labels proxied calls in upstream metrics. Resource paths are
// unbounded, so they are kept out of the metric attributes.
const metricsRoute = "proxy"

// Handler forwards /api/proxy/*path to the backend API
type Handler struct {
	client         *backend.Client
	timeout        time.Duration
	exemptPrefixes []string
	bufferLimit    int64
	logger         *zap.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithTimeout overrides the backend timeout for proxied requests
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithExemptPrefixes replaces the paths that may be forwarded anonymously
func WithExemptPrefixes(prefixes ...string) Option {
	return func(h *Handler) {
		h.exemptPrefixes = prefixes
	}
}

// WithBufferLimit overrides how much of a text response is buffered
func WithBufferLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.bufferLimit = n
		}
	}
}

// NewHandler creates a proxy handler. Timeout and exempt prefixes default
// to the client's backend configuration.
func NewHandler(client *backend.Client, log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := client.Config()
	h := &Handler{
		client:         client,
		timeout:        cfg.Timeout,
		exemptPrefixes: cfg.ExemptPrefix,
		bufferLimit:    DefaultBufferLimit,
		logger:         log.Named("proxy"),
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Timeout returns the per-request deadline
func (h *Handler) Timeout() time.Duration {
	return h.timeout
}

// Forward handles ANY /api/proxy/*path
func (h *Handler) Forward(c *gin.Context) {
	path, err := CleanPath(c.Param("path"))
	if err != nil {
		fail(c, http.StatusBadRequest, dto.ProxyErrInvalidPath,
			"Path must name a backend resource without dot segments or a scheme")
		return
	}

	id := identity.FromContext(c.Request.Context())
	if !id.Authenticated() && !IsExempt(path, h.exemptPrefixes) {
		fail(c, http.StatusUnauthorized, dto.ProxyErrUnauthorized, "Authentication required")
		return
	}

	// The deadline covers the body relay as well as the round-trip
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	ctx, span := telemetry.StartClientSpan(ctx, "proxy "+c.Request.Method,
		attribute.String(telemetry.SpanAttrBackendPath, path),
		attribute.String(telemetry.SpanAttrAuthSource, string(id.Source)),
	)
	defer span.End()

	log := logger.WithLogger(ctx, h.logger).With(
		zap.String("request_id", logger.GetRequestID(ctx)),
		zap.String("method", c.Request.Method),
		zap.String("path", path),
	)

	req, err := h.newOutboundRequest(ctx, c, path, id)
	if err != nil {
		telemetry.RecordError(span, err)
		fail(c, http.StatusInternalServerError, dto.ProxyErrInternal, err.Error())
		return
	}

	done := h.client.Metrics().UpstreamStarted(ctx, metricsRoute, c.Request.Method)
	resp, err := h.client.HTTPClient().Do(req)
	if err != nil {
		status, label, message, outcome := h.classify(ctx, err)
		done(0, outcome)
		telemetry.RecordError(span, err)
		log.Warn("Proxy request failed", zap.Int("status", status), zap.Error(err))
		fail(c, status, label, message)
		return
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int(telemetry.SpanAttrBackendStatus, resp.StatusCode))

	started, err := h.relay(c, resp)
	if err != nil {
		status, label, message, outcome := h.classify(ctx, err)
		done(resp.StatusCode, outcome)
		telemetry.RecordError(span, err)
		if started {
			// Status and headers are already on the wire
			log.Warn("Proxy response relay interrupted", zap.Int("backend_status", resp.StatusCode), zap.Error(err))
			c.Abort()
			return
		}
		log.Warn("Proxy response read failed", zap.Int("status", status), zap.Error(err))
		fail(c, status, label, message)
		return
	}
	done(resp.StatusCode, telemetry.OutcomeSuccess)
}

// newOutboundRequest builds the backend request for path. The incoming body
// is passed through unread.
func (h *Handler) newOutboundRequest(ctx context.Context, c *gin.Context, path string, id identity.Identity) (*http.Request, error) {
	target := h.client.URL(EscapePath(path))
	if raw := c.Request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}

	in := c.Request
	var body io.Reader = http.NoBody
	if hasBody(in) {
		body = in.Body
	}

	req, err := http.NewRequestWithContext(ctx, in.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	if body != http.NoBody {
		req.ContentLength = in.ContentLength
	}

	copyRequestHeaders(req.Header, in.Header)
	if id.Authenticated() {
		backend.ApplyIdentityHeaders(req.Header, id)
	}
	setForwardedHeaders(req.Header, c)
	h.client.ApplyServiceHeaders(ctx, req.Header)
	return req, nil
}

// classify maps a proxy failure onto the response status and error body
func (h *Handler) classify(ctx context.Context, err error) (status int, label, message, outcome string) {
	switch {
	case backend.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return http.StatusGatewayTimeout, dto.ProxyErrTimeout,
			fmt.Sprintf("Backend did not respond within %s", h.timeout), telemetry.OutcomeTimeout
	case backend.IsNetworkError(err):
		return http.StatusServiceUnavailable, dto.ProxyErrUnavailable,
			"Backend service is unreachable", telemetry.OutcomeUnavailable
	default:
		return http.StatusInternalServerError, dto.ProxyErrInternal, err.Error(), telemetry.OutcomeError
	}
}

// relay writes the backend response to the client. Binary bodies are
// streamed as they arrive. Text bodies are buffered up to bufferLimit first,
// so a failure while reading a typical JSON body can still be reported as
// an error response; anything past the limit is streamed. started reports
// whether the status line was already sent.
func (h *Handler) relay(c *gin.Context, resp *http.Response) (started bool, err error) {
	var head []byte
	if !IsBinaryContentType(resp.Header.Get("Content-Type")) {
		head, err = io.ReadAll(io.LimitReader(resp.Body, h.bufferLimit))
		if err != nil {
			return false, err
		}
	}

	copyResponseHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if len(head) > 0 {
		if _, err := c.Writer.Write(head); err != nil {
			return true, err
		}
	}
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		return true, err
	}
	return true, nil
}

// setForwardedHeaders records the original client, scheme and host
func setForwardedHeaders(h http.Header, c *gin.Context) {
	in := c.Request

	forwardedFor := c.RemoteIP()
	if prior := in.Header.Values("X-Forwarded-For"); len(prior) > 0 {
		chain := strings.Join(prior, ", ")
		if forwardedFor != "" {
			chain += ", " + forwardedFor
		}
		forwardedFor = chain
	}
	if forwardedFor != "" {
		h.Set("X-Forwarded-For", forwardedFor)
	}

	proto := in.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if in.TLS != nil {
			proto = "https"
		}
	}
	h.Set("X-Forwarded-Proto", proto)

	host := in.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = in.Host
	}
	if host != "" {
		h.Set("X-Forwarded-Host", host)
	}
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return r.ContentLength != 0 || len(r.TransferEncoding) > 0
}

func fail(c *gin.Context, status int, label, message string) {
	c.AbortWithStatusJSON(status, dto.NewProxyError(label, message))
}
