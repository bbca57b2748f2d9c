package handler

import (
	"errors"
	"net/http"

	"github.com/digimall/admin-gateway/internal/domain/shared"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ServiceUnavailable sends a 503 response
func (h *BaseHandler) ServiceUnavailable(c *gin.Context, message string) {
	h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, message)
}

// HandleError is a generic error handler for domain, backend and transport errors
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	// Check for domain error using errors.As for wrapped error support
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
		return
	}

	switch {
	case backend.IsTimeout(err):
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeGatewayTimeout, "Backend did not respond in time")
		return
	case backend.IsNetworkError(err):
		h.ServiceUnavailable(c, "Backend service is unavailable")
		return
	}

	if apiErr, ok := backend.AsAPIError(err); ok {
		h.handleBackendError(c, apiErr)
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled handler error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// handleBackendError relays client errors from the backend with their status
// and message. Backend server errors become a generic 502.
func (h *BaseHandler) handleBackendError(c *gin.Context, apiErr *backend.APIError) {
	if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(apiErr.StatusCode)
		}
		code := dto.ErrCodeBackendError
		if apiErr.Code != "" {
			code = apiErr.Code
		}
		h.Error(c, apiErr.StatusCode, code, message)
		return
	}

	logger.L(c.Request.Context()).Warn("Backend returned an error",
		zap.Int("status", apiErr.StatusCode),
		zap.String("code", apiErr.Code),
		zap.String("message", apiErr.Message),
	)
	h.Error(c, http.StatusBadGateway, dto.ErrCodeBackendError, "Backend request failed")
}
