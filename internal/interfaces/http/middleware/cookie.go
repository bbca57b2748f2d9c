package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
)

// SessionCookie reads and writes the signed session cookie
type SessionCookie struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// NewSessionCookie builds the cookie settings from configuration
func NewSessionCookie(session config.SessionConfig, cookie config.CookieConfig) *SessionCookie {
	path := cookie.Path
	if path == "" {
		path = "/"
	}
	return &SessionCookie{
		Name:     session.CookieName,
		Domain:   cookie.Domain,
		Path:     path,
		Secure:   cookie.Secure,
		SameSite: ParseSameSite(cookie.SameSite),
	}
}

// ParseSameSite converts "strict", "lax" or "none" to http.SameSite.
// Anything else yields Lax.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Read returns the cookie value, or "" when absent
func (sc *SessionCookie) Read(c *gin.Context) string {
	value, err := c.Cookie(sc.Name)
	if err != nil {
		return ""
	}
	return value
}

// Write sets the session cookie to expire at expiresAt
func (sc *SessionCookie) Write(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		sc.Clear(c)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     sc.Path,
		Domain:   sc.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		Secure:   sc.Secure,
		HttpOnly: true,
		SameSite: sc.SameSite,
	})
}

// Clear expires the session cookie on the client
func (sc *SessionCookie) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     sc.Path,
		Domain:   sc.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   sc.Secure,
		HttpOnly: true,
		SameSite: sc.SameSite,
	})
}
