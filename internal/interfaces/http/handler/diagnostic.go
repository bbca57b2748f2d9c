package handler

import (
	"context"
	"time"

	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// DefaultProbeTimeout bounds the backend health probe of /api/test-proxy
const DefaultProbeTimeout = 5 * time.Second

// BackendProber checks backend reachability
type BackendProber interface {
	Health(ctx context.Context, timeout time.Duration) backend.HealthResult
}

// DiagnosticHandler serves connectivity checks for operators
type DiagnosticHandler struct {
	BaseHandler
	backend BackendProber
	timeout time.Duration
}

// NewDiagnosticHandler creates a new diagnostic handler
func NewDiagnosticHandler(prober BackendProber, timeout time.Duration) *DiagnosticHandler {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &DiagnosticHandler{backend: prober, timeout: timeout}
}

// TestProxy godoc
// @Summary      Test backend connectivity
// @Description  Probes the backend health endpoint and reports how the caller was identified
// @Tags         diagnostic
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.TestProxyResponse}
// @Router       /test-proxy [get]
func (h *DiagnosticHandler) TestProxy(c *gin.Context) {
	result := h.backend.Health(c.Request.Context(), h.timeout)
	id := middleware.GetIdentity(c)

	// An unreachable backend is a finding, not a failure of this endpoint
	h.Success(c, dto.TestProxyResponse{
		BackendURL: result.URL,
		Reachable:  result.Reachable,
		StatusCode: result.StatusCode,
		LatencyMS:  result.LatencyMS,
		Error:      result.Error,
		HasSession: middleware.GetSession(c) != nil,
		AuthSource: string(id.Source),
	})
}
