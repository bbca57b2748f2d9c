package handler

import (
	"context"
	"encoding/json"

	"github.com/digimall/admin-gateway/internal/application/setup"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupService is the first-run bootstrap use case
type SetupService interface {
	Status(ctx context.Context) (*setup.Status, error)
	CreateSuperAdmin(ctx context.Context, input setup.CreateSuperAdminInput) (json.RawMessage, error)
}

// SetupHandler handles the first-run setup routes
type SetupHandler struct {
	BaseHandler
	setup SetupService
}

// NewSetupHandler creates a new setup handler
func NewSetupHandler(setup SetupService) *SetupHandler {
	return &SetupHandler{setup: setup}
}

// Check godoc
// @Summary      Setup status
// @Description  Reports whether the backend still needs its first super admin
// @Tags         setup
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.SetupStatusResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /setup/check [get]
func (h *SetupHandler) Check(c *gin.Context) {
	status, err := h.setup.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.SetupStatusResponse{
		NeedsSetup:   status.NeedsSetup,
		SetupEnabled: status.SetupEnabled,
	})
}

// CreateSuperAdmin godoc
// @Summary      Create the first super admin
// @Description  Requires setup to be enabled and the configured setup token
// @Tags         setup
// @Accept       json
// @Produce      json
// @Param        request body dto.SuperAdminRequest true "Super admin account"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /setup/super-admin [post]
func (h *SetupHandler) CreateSuperAdmin(c *gin.Context) {
	var req dto.SuperAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	created, err := h.setup.CreateSuperAdmin(c.Request.Context(), setup.CreateSuperAdminInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		SetupToken: req.SetupToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var data any
	if len(created) > 0 {
		data = created
	}
	h.Created(c, data)
}
