package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/digimall/admin-gateway/internal/application/session"
	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SessionService is the session use case behind the auth routes
type SessionService interface {
	SignIn(ctx context.Context, input session.SignInInput) (*session.Result, error)
	Refresh(ctx context.Context, s *identity.Session) (*session.Result, error)
	SignOut(ctx context.Context, s *identity.Session, everywhere bool) error
}

// AuthHandler handles staff sign-in and the session cookie lifecycle
type AuthHandler struct {
	BaseHandler
	sessions SessionService
	cookie   *middleware.SessionCookie
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions SessionService, cookie *middleware.SessionCookie) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		cookie:   cookie,
	}
}

// SignOutResponse confirms a sign-out
type SignOutResponse struct {
	SignedOut  bool `json:"signedOut"`
	Everywhere bool `json:"everywhere"`
}

// SignIn godoc
// @Summary      Staff sign-in
// @Description  Verify credentials with the backend and issue the session cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignInRequest true "Staff credentials"
// @Success      200 {object} dto.Response{data=dto.SessionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.sessions.SignIn(c.Request.Context(), session.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.cookie.Write(c, result.Token, result.Session.ExpiresAt)
	h.Success(c, toSessionResponse(result.Session))
}

// GetSession godoc
// @Summary      Current session
// @Description  Returns the signed-in staff member, or null data when there is no session
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.SessionResponse}
// @Router       /auth/session [get]
func (h *AuthHandler) GetSession(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		h.Success(c, nil)
		return
	}
	h.Success(c, toSessionResponse(s))
}

// Refresh godoc
// @Summary      Refresh session
// @Description  Trade the session's backend refresh token for a new access token
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.SessionResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := h.sessions.Refresh(c.Request.Context(), s)
	if err != nil {
		if errors.Is(err, identity.ErrRefreshRejected) {
			h.cookie.Clear(c)
		}
		h.HandleError(c, err)
		return
	}

	h.cookie.Write(c, result.Token, result.Session.ExpiresAt)
	h.Success(c, toSessionResponse(result.Session))
}

// SignOut godoc
// @Summary      Staff sign-out
// @Description  Log out of the backend, revoke the session and clear the cookie
// @Tags         auth
// @Produce      json
// @Param        everywhere query bool false "Also revoke every other session of the user"
// @Success      200 {object} dto.Response{data=SignOutResponse}
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	everywhere, _ := strconv.ParseBool(c.Query("everywhere"))

	// The browser cookie goes regardless of what happens server-side
	h.cookie.Clear(c)

	s := middleware.GetSession(c)
	if s == nil {
		h.Success(c, SignOutResponse{SignedOut: true})
		return
	}

	if err := h.sessions.SignOut(c.Request.Context(), s, everywhere); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SignOutResponse{SignedOut: true, Everywhere: everywhere})
}

func toSessionResponse(s *identity.Session) dto.SessionResponse {
	permissions := s.User.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return dto.SessionResponse{
		User: dto.SessionUser{
			ID:          s.User.ID,
			Email:       s.User.Email,
			Name:        s.User.Name,
			Role:        s.User.Role,
			Permissions: permissions,
		},
		ExpiresAt:            s.ExpiresAt,
		AccessTokenExpiresAt: s.AccessTokenExpiresAt,
	}
}
