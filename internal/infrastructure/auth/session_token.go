package auth

import (
	"errors"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSessionID = errors.New("missing jti in claims")
	ErrMissingUserID    = errors.New("missing user in claims")
	ErrMissingSecret    = errors.New("session secret is empty")
	ErrTokenTooLarge    = errors.New("session token exceeds the cookie size limit")
)

// MaxTokenSize is the largest cookie value Issue produces. Browsers drop
// cookies over 4096 bytes including the name and attributes.
const MaxTokenSize = 3800

// SessionClaims is the payload of the signed session cookie
type SessionClaims struct {
	jwt.RegisteredClaims
	User                 identity.StaffUser `json:"user"`
	AccessToken          string             `json:"access_token"`
	RefreshToken         string             `json:"refresh_token,omitempty"`
	AccessTokenExpiresAt int64              `json:"access_token_expires_at"`
}

// SessionTokenService signs and verifies session cookies (HS256)
type SessionTokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// SessionTokenOption configures a SessionTokenService
type SessionTokenOption func(*SessionTokenService)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) SessionTokenOption {
	return func(s *SessionTokenService) {
		s.now = now
	}
}

// NewSessionTokenService creates a new session token service
func NewSessionTokenService(cfg config.SessionConfig, opts ...SessionTokenOption) (*SessionTokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	s := &SessionTokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs session into a cookie value. The JWT exp is the session's
// absolute expiry, not the backend access token's. The value is signed, not
// encrypted, and ErrTokenTooLarge is returned rather than a cookie the
// browser would discard.
func (s *SessionTokenService) Issue(session *identity.Session) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.issuer,
			Subject:   session.User.ID,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			NotBefore: jwt.NewNumericDate(session.IssuedAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		},
		User:                 session.User,
		AccessToken:          session.AccessToken,
		RefreshToken:         session.RefreshToken,
		AccessTokenExpiresAt: session.AccessTokenExpiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if len(signed) > MaxTokenSize {
		return "", ErrTokenTooLarge
	}
	return signed, nil
}

// Parse verifies a session cookie and returns the session snapshot it carries
func (s *SessionTokenService) Parse(tokenString string) (*identity.Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ID == "" {
		return nil, ErrMissingSessionID
	}
	if claims.User.ID == "" || claims.User.ID != claims.Subject {
		return nil, ErrMissingUserID
	}
	if claims.AccessToken == "" {
		return nil, ErrInvalidClaims
	}

	return &identity.Session{
		ID:                   claims.ID,
		User:                 claims.User,
		AccessToken:          claims.AccessToken,
		RefreshToken:         claims.RefreshToken,
		AccessTokenExpiresAt: time.Unix(claims.AccessTokenExpiresAt, 0),
		IssuedAt:             claims.IssuedAt.Time,
		ExpiresAt:            claims.ExpiresAt.Time,
	}, nil
}
