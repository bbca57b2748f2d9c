// Package session manages staff sessions backed by the unified backend's
// staff auth endpoints.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/domain/shared"
	"github.com/digimall/admin-gateway/internal/infrastructure/auth"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session service errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrSessionInvalid     = shared.NewDomainError("SESSION_INVALID", "Session is invalid")
)

// Session events recorded in metrics
const (
	EventSignIn  = "sign_in"
	EventRefresh = "refresh"
	EventResolve = "resolve"
	EventSignOut = "sign_out"
)

// Backend is the subset of the backend client the session service needs
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (identity.TokenPair, error)
	Logout(ctx context.Context, id identity.Identity, refreshToken string) error
}

// TokenCodec signs and verifies session cookie values
type TokenCodec interface {
	Issue(session *identity.Session) (string, error)
	Parse(token string) (*identity.Session, error)
}

// Config contains session lifetime settings
type Config struct {
	MaxAge        time.Duration
	RefreshWindow time.Duration
}

// SignInInput is a staff credential pair
type SignInInput struct {
	Email    string
	Password string
}

// Result is a session together with its signed cookie value.
// Refreshed is true when the cookie must be written back to the client.
type Result struct {
	Session   *identity.Session
	Token     string
	Refreshed bool
}

// Service issues, resolves, refreshes and revokes sessions
type Service struct {
	backend     Backend
	tokens      TokenCodec
	revocations auth.RevocationStore
	metrics     *telemetry.GatewayMetrics
	config      Config
	now         func() time.Time
	refreshes   singleflight.Group
	logger      *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records session events
func WithMetrics(m *telemetry.GatewayMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new session service
func NewService(
	backend Backend,
	tokens TokenCodec,
	revocations auth.RevocationStore,
	config Config,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		backend:     backend,
		tokens:      tokens,
		revocations: revocations,
		config:      config,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn authenticates staff credentials against the backend and issues a session
func (s *Service) SignIn(ctx context.Context, input SignInInput) (*Result, error) {
	log := logger.WithLogger(ctx, s.logger)
	log.Info("Sign-in attempt", zap.String("email", input.Email))

	login, err := s.backend.Login(ctx, input.Email, input.Password)
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventSignIn, outcomeOf(err))
		if apiErr, ok := backend.AsAPIError(err); ok && isCredentialRejection(apiErr) {
			log.Warn("Backend rejected credentials",
				zap.String("email", input.Email),
				zap.Int("status", apiErr.StatusCode),
			)
			return nil, ErrInvalidCredentials
		}
		log.Error("Sign-in failed", zap.String("email", input.Email), zap.Error(err))
		return nil, err
	}

	session, err := identity.NewSession(login.User, login.Tokens, s.now(), s.config.MaxAge)
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventSignIn, telemetry.OutcomeError)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(session)
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventSignIn, telemetry.OutcomeError)
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	s.metrics.RecordSessionEvent(ctx, EventSignIn, telemetry.OutcomeSuccess)
	log.Info("Staff signed in",
		zap.String("user_id", session.User.ID),
		zap.String("role", session.User.Role),
		zap.String("session_id", session.ID),
	)
	return &Result{Session: session, Token: token, Refreshed: true}, nil
}

// Resolve verifies a session cookie value. A session whose access token is
// about to expire is refreshed; if the refresh fails and the access token has
// already expired the session is rejected.
func (s *Service) Resolve(ctx context.Context, token string) (*Result, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, identity.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	if err := s.checkRevoked(ctx, session); err != nil {
		s.metrics.RecordSessionEvent(ctx, EventResolve, "revoked")
		return nil, err
	}

	now := s.now()
	if session.Expired(now) {
		return nil, identity.ErrSessionExpired
	}
	if !session.NeedsRefresh(now, s.config.RefreshWindow) {
		return &Result{Session: session, Token: token}, nil
	}

	refreshed, err := s.Refresh(ctx, session)
	if err == nil {
		return refreshed, nil
	}
	if session.AccessTokenExpired(now) {
		logger.WithLogger(ctx, s.logger).Info("Session dropped after failed refresh",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, identity.ErrSessionExpired
	}

	// Access token still valid; retry the refresh on the next request
	logger.WithLogger(ctx, s.logger).Warn("Session refresh failed, keeping current tokens",
		zap.String("session_id", session.ID),
		zap.Error(err),
	)
	return &Result{Session: session, Token: token}, nil
}

// Refresh trades the session's refresh token for a new access token and
// re-signs the session. Concurrent refreshes of one session share one call.
func (s *Service) Refresh(ctx context.Context, session *identity.Session) (*Result, error) {
	if !session.CanRefresh() {
		return nil, identity.ErrRefreshRejected
	}

	v, err, _ := s.refreshes.Do(session.ID+":"+session.RefreshToken, func() (any, error) {
		return s.refresh(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Service) refresh(ctx context.Context, session *identity.Session) (*Result, error) {
	tokens, err := s.backend.RefreshToken(ctx, session.RefreshToken)
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventRefresh, outcomeOf(err))
		if apiErr, ok := backend.AsAPIError(err); ok && isCredentialRejection(apiErr) {
			return nil, identity.ErrRefreshRejected
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	next, err := session.WithTokens(tokens, s.now())
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventRefresh, telemetry.OutcomeError)
		return nil, err
	}

	token, err := s.tokens.Issue(next)
	if err != nil {
		s.metrics.RecordSessionEvent(ctx, EventRefresh, telemetry.OutcomeError)
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	s.metrics.RecordSessionEvent(ctx, EventRefresh, telemetry.OutcomeSuccess)
	logger.WithLogger(ctx, s.logger).Debug("Session refreshed",
		zap.String("session_id", next.ID),
		zap.Time("access_token_expires_at", next.AccessTokenExpiresAt),
	)
	return &Result{Session: next, Token: token, Refreshed: true}, nil
}

// SignOut logs the session out of the backend (best effort) and revokes it
// locally. everywhere also invalidates every other session of the user.
func (s *Service) SignOut(ctx context.Context, session *identity.Session, everywhere bool) error {
	log := logger.WithLogger(ctx, s.logger)

	if err := s.backend.Logout(ctx, session.Identity(), session.RefreshToken); err != nil {
		log.Warn("Backend logout failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		if err := s.revocations.Revoke(ctx, session.ID, ttl); err != nil {
			s.metrics.RecordSessionEvent(ctx, EventSignOut, telemetry.OutcomeError)
			return fmt.Errorf("failed to revoke session: %w", err)
		}
	}

	if everywhere {
		if err := s.revocations.RevokeUser(ctx, session.User.ID, s.config.MaxAge); err != nil {
			s.metrics.RecordSessionEvent(ctx, EventSignOut, telemetry.OutcomeError)
			return fmt.Errorf("failed to revoke user sessions: %w", err)
		}
	}

	s.metrics.RecordSessionEvent(ctx, EventSignOut, telemetry.OutcomeSuccess)
	log.Info("Staff signed out",
		zap.String("user_id", session.User.ID),
		zap.String("session_id", session.ID),
		zap.Bool("everywhere", everywhere),
	)
	return nil
}

func (s *Service) checkRevoked(ctx context.Context, session *identity.Session) error {
	revoked, err := s.revocations.IsRevoked(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return identity.ErrSessionRevoked
	}

	revoked, err = s.revocations.IsUserRevoked(ctx, session.User.ID, session.IssuedAt)
	if err != nil {
		return fmt.Errorf("failed to check user revocation: %w", err)
	}
	if revoked {
		return identity.ErrSessionRevoked
	}
	return nil
}

// isCredentialRejection reports whether the backend refused the credentials
// themselves, as opposed to failing.
func isCredentialRejection(apiErr *backend.APIError) bool {
	return apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.StatusCode == http.StatusBadRequest ||
		apiErr.StatusCode == http.StatusForbidden
}

func outcomeOf(err error) string {
	switch {
	case backend.IsTimeout(err):
		return telemetry.OutcomeTimeout
	case backend.IsNetworkError(err):
		return telemetry.OutcomeUnavailable
	default:
		return telemetry.OutcomeError
	}
}
