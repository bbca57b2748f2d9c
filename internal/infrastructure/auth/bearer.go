package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims are the identity fields read from a backend-issued access token
type BearerClaims struct {
	UserID string
	Email  string
	Role   string
}

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header value, or "" when the header does not carry one.
func ExtractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PeekBearerClaims reads identity claims from a JWT without verifying its
// signature. The gateway never trusts these for authorization; they only
// populate the x-user-* headers and the backend re-verifies the token.
func PeekBearerClaims(token string) (BearerClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return BearerClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return BearerClaims{
		UserID: firstString(claims, "sub", "id", "userId", "user_id"),
		Email:  firstString(claims, "email"),
		Role:   firstString(claims, "role"),
	}, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
