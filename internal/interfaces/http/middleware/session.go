package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/digimall/admin-gateway/internal/application/session"
	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/auth"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Session context keys
const (
	SessionKey    = "session"
	AuthHeaderKey = "Authorization"
)

// SessionResolver verifies session cookie values
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Result, error)
}

// SessionAuthConfig holds configuration for the session middleware
type SessionAuthConfig struct {
	Sessions SessionResolver
	Cookie   *SessionCookie
	// AllowBearer accepts "Authorization: Bearer" when no valid session cookie
	// is present. The token is not verified here; the backend does that.
	AllowBearer bool
}

// SessionAuth resolves the caller's identity and stores it in the request
// context. It never rejects a request; use RequireIdentity for that.
//
// Resolution order: session cookie, then bearer token. A session that was
// refreshed during resolution has its cookie rewritten on the response.
func SessionAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity.Anonymous()

		if token := cfg.Cookie.Read(c); token != "" {
			id = resolveSession(c, cfg, token)
		}
		if !id.Authenticated() && cfg.AllowBearer {
			id = bearerIdentity(c)
		}

		setIdentity(c, id)
		c.Next()
	}
}

func resolveSession(c *gin.Context, cfg SessionAuthConfig, token string) identity.Identity {
	ctx := c.Request.Context()

	result, err := cfg.Sessions.Resolve(ctx, token)
	if err != nil {
		if isSessionRejection(err) {
			logger.L(ctx).Debug("Session cookie rejected", zap.Error(err))
			cfg.Cookie.Clear(c)
		} else {
			// Store or backend trouble: keep the cookie so the next request can retry
			logger.L(ctx).Warn("Session resolution failed", zap.Error(err))
		}
		return identity.Anonymous()
	}

	if result.Refreshed {
		cfg.Cookie.Write(c, result.Token, result.Session.ExpiresAt)
	}
	c.Set(SessionKey, result.Session)
	return result.Session.Identity()
}

func isSessionRejection(err error) bool {
	return errors.Is(err, identity.ErrSessionExpired) ||
		errors.Is(err, identity.ErrSessionRevoked) ||
		errors.Is(err, identity.ErrRefreshRejected) ||
		errors.Is(err, session.ErrSessionInvalid)
}

func bearerIdentity(c *gin.Context) identity.Identity {
	token := auth.ExtractBearerToken(c.GetHeader(AuthHeaderKey))
	if token == "" {
		return identity.Anonymous()
	}

	id := identity.Identity{Source: identity.SourceBearer, AccessToken: token}
	claims, err := auth.PeekBearerClaims(token)
	if err != nil {
		// Opaque tokens are forwarded without identity headers
		logger.L(c.Request.Context()).Debug("Bearer token carries no readable claims", zap.Error(err))
		return id
	}
	id.UserID = claims.UserID
	id.Email = claims.Email
	id.Role = claims.Role
	return id
}

func setIdentity(c *gin.Context, id identity.Identity) {
	ctx := identity.WithIdentity(c.Request.Context(), id)

	if id.Authenticated() {
		log := logger.FromContext(ctx)
		if id.UserID != "" {
			ctx, log = logger.WithUserID(ctx, log, id.UserID)
			c.Set(logger.GinUserIDKey, id.UserID)
		}
		if id.Role != "" {
			ctx, _ = logger.WithRole(ctx, log, id.Role)
		}
		c.Set(logger.GinAuthKey, string(id.Source))
	}

	c.Request = c.Request.WithContext(ctx)
}

// RequireIdentity aborts with 401 unless SessionAuth resolved an identity
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"Authentication required",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity resolved for this request
func GetIdentity(c *gin.Context) identity.Identity {
	return identity.FromContext(c.Request.Context())
}

// GetSession returns the resolved session, or nil for bearer and anonymous callers
func GetSession(c *gin.Context) *identity.Session {
	if v, exists := c.Get(SessionKey); exists {
		if s, ok := v.(*identity.Session); ok {
			return s
		}
	}
	return nil
}
