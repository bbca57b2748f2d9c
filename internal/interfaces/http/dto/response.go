package dto

import "time"

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ValidationDetail describes a single invalid request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProxyError is the flat error body returned by the proxy route.
// The admin UI reads error and message directly, so it does not use Response.
type ProxyError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Proxy error labels
const (
	ProxyErrInvalidPath  = "Invalid path"
	ProxyErrUnauthorized = "Unauthorized"
	ProxyErrTimeout      = "Request timeout"
	ProxyErrUnavailable  = "Service unavailable"
	ProxyErrInternal     = "Proxy error"
)

// NewProxyError creates a proxy error body
func NewProxyError(label, message string) ProxyError {
	return ProxyError{Success: false, Error: label, Message: message}
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response with a normalized code
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      NormalizeErrorCode(code),
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// SignInRequest is the body of POST /api/auth/signin
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=1,max=256"`
}

// SuperAdminRequest is the body of POST /api/setup/super-admin
type SuperAdminRequest struct {
	Email      string `json:"email" binding:"required,email,max=254"`
	Password   string `json:"password" binding:"required,min=8,max=256"`
	Name       string `json:"name" binding:"required,min=1,max=200"`
	SetupToken string `json:"setupToken" binding:"required"`
}

// SessionUser is the public view of the signed-in staff member
type SessionUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// SessionResponse is the public view of a session. Backend tokens are never exposed.
type SessionResponse struct {
	User                 SessionUser `json:"user"`
	ExpiresAt            time.Time   `json:"expires"`
	AccessTokenExpiresAt time.Time   `json:"accessTokenExpiresAt"`
}

// SetupStatusResponse is the body of GET /api/setup/check
type SetupStatusResponse struct {
	NeedsSetup   bool `json:"needsSetup"`
	SetupEnabled bool `json:"setupEnabled"`
}

// MediaUploadResponse describes an object stored by the gateway
type MediaUploadResponse struct {
	Key         string     `json:"key"`
	URL         string     `json:"url"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Size        int64      `json:"size"`
	ContentType string     `json:"contentType"`
	Filename    string     `json:"filename"`
}

// TestProxyResponse is the body of GET /api/test-proxy
type TestProxyResponse struct {
	BackendURL string `json:"backendUrl"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"statusCode,omitempty"`
	LatencyMS  int64  `json:"latencyMs"`
	Error      string `json:"error,omitempty"`
	HasSession bool   `json:"hasSession"`
	AuthSource string `json:"authSource"`
}
