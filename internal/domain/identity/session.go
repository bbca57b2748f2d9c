package identity

import (
	"time"

	"github.com/digimall/admin-gateway/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is assumed when the backend omits expiresIn
const DefaultAccessTokenTTL = 15 * time.Minute

// Session domain errors
var (
	ErrSessionExpired  = shared.NewDomainError("SESSION_EXPIRED", "Session has expired")
	ErrSessionRevoked  = shared.NewDomainError("SESSION_REVOKED", "Session has been revoked")
	ErrMissingTokens   = shared.NewDomainError("MISSING_TOKENS", "Backend did not return an access token")
	ErrInvalidMaxAge   = shared.NewDomainError("INVALID_SESSION_MAX_AGE", "Session max age must be positive")
	ErrRefreshRejected = shared.NewDomainError("REFRESH_REJECTED", "Backend rejected the refresh token")
)

// TokenPair is the token bundle issued by the backend
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

// AccessTokenExpiresAt returns the absolute expiry of the access token
func (p TokenPair) AccessTokenExpiresAt(now time.Time) time.Time {
	if p.ExpiresIn <= 0 {
		return now.Add(DefaultAccessTokenTTL)
	}
	return now.Add(time.Duration(p.ExpiresIn) * time.Second)
}

// Session is an immutable snapshot of a signed-in staff member.
// Refreshing produces a new Session; existing values are never mutated.
type Session struct {
	ID                   string
	User                 StaffUser
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
	IssuedAt             time.Time
	ExpiresAt            time.Time
}

// NewSession creates a session for user from a fresh backend token pair
func NewSession(user StaffUser, tokens TokenPair, now time.Time, maxAge time.Duration) (*Session, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, ErrMissingTokens
	}
	if maxAge <= 0 {
		return nil, ErrInvalidMaxAge
	}

	return &Session{
		ID:                   uuid.New().String(),
		User:                 user,
		AccessToken:          tokens.AccessToken,
		RefreshToken:         tokens.RefreshToken,
		AccessTokenExpiresAt: tokens.AccessTokenExpiresAt(now),
		IssuedAt:             now,
		ExpiresAt:            now.Add(maxAge),
	}, nil
}

// Expired reports whether the session itself has reached its max age
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AccessTokenExpired reports whether the backend access token is no longer valid
func (s *Session) AccessTokenExpired(now time.Time) bool {
	return !now.Before(s.AccessTokenExpiresAt)
}

// NeedsRefresh reports whether the access token expires within window
func (s *Session) NeedsRefresh(now time.Time, window time.Duration) bool {
	return s.AccessTokenExpiresAt.Sub(now) < window
}

// CanRefresh reports whether a refresh token is available
func (s *Session) CanRefresh() bool {
	return s.RefreshToken != ""
}

// WithTokens returns a copy of the session carrying the new token pair.
// The session ID, user and absolute expiry are preserved. A backend that
// does not rotate refresh tokens keeps the previous one.
func (s *Session) WithTokens(tokens TokenPair, now time.Time) (*Session, error) {
	if tokens.AccessToken == "" {
		return nil, ErrMissingTokens
	}

	next := *s
	next.User.Permissions = append([]string(nil), s.User.Permissions...)
	next.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	next.AccessTokenExpiresAt = tokens.AccessTokenExpiresAt(now)
	return &next, nil
}

// Identity returns the per-request identity derived from this session
func (s *Session) Identity() Identity {
	return Identity{
		Source:      SourceSession,
		SessionID:   s.ID,
		UserID:      s.User.ID,
		Email:       s.User.Email,
		Role:        s.User.Role,
		AccessToken: s.AccessToken,
	}
}
