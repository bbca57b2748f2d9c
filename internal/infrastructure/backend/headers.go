package backend

import (
	"context"
	"net/http"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
)

// Backend-facing header names
const (
	HeaderUserID         = "x-user-id"
	HeaderUserEmail      = "x-user-email"
	HeaderUserRole       = "x-user-role"
	HeaderServiceName    = "x-service-name"
	HeaderServiceVersion = "x-service-version"
	HeaderServiceKey     = "x-service-key"
	HeaderRequestID      = "x-request-id"
	HeaderSetupToken     = "x-setup-token"
)

// identityHeaders are only ever set by the gateway
var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole}

// ApplyServiceHeaders identifies the gateway to the backend and propagates
// the request ID and trace context found in ctx.
func (c *Client) ApplyServiceHeaders(ctx context.Context, h http.Header) {
	h.Set(HeaderServiceName, c.cfg.ServiceName)
	h.Set(HeaderServiceVersion, c.version)
	if c.cfg.ServiceKey != "" {
		h.Set(HeaderServiceKey, c.cfg.ServiceKey)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		h.Set(HeaderRequestID, requestID)
	}
	telemetry.InjectHTTPHeaders(ctx, h)
}

// ApplyIdentityHeaders sets the bearer token and x-user-* headers for id.
// Any client-supplied x-user-* headers are removed first.
func ApplyIdentityHeaders(h http.Header, id identity.Identity) {
	StripIdentityHeaders(h)

	if id.AccessToken != "" {
		h.Set("Authorization", "Bearer "+id.AccessToken)
	}
	setIfNotEmpty(h, HeaderUserID, id.UserID)
	setIfNotEmpty(h, HeaderUserEmail, id.Email)
	setIfNotEmpty(h, HeaderUserRole, id.Role)
}

// StripIdentityHeaders removes x-user-* headers from h
func StripIdentityHeaders(h http.Header) {
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

func setIfNotEmpty(h http.Header, name, value string) {
	if value != "" {
		h.Set(name, value)
	}
}
