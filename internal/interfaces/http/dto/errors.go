package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeInvalidCredentials is used when the backend rejects a sign-in
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	// ErrCodeSessionExpired is used when the session or its refresh chain has ended
	ErrCodeSessionExpired = "ERR_SESSION_EXPIRED"
	// ErrCodeSessionRevoked is used when the session was signed out elsewhere
	ErrCodeSessionRevoked = "ERR_SESSION_REVOKED"
	// ErrCodeSessionInvalid is used for tampered or malformed session cookies
	ErrCodeSessionInvalid = "ERR_SESSION_INVALID"
	// ErrCodeRefreshRejected is used when the backend refuses a refresh token
	ErrCodeRefreshRejected = "ERR_REFRESH_REJECTED"
)

// Setup error codes
const (
	ErrCodeSetupDisabled     = "ERR_SETUP_DISABLED"
	ErrCodeInvalidSetupToken = "ERR_INVALID_SETUP_TOKEN"
	ErrCodeSetupCompleted    = "ERR_SETUP_COMPLETED"
)

// Media error codes
const (
	ErrCodeEmptyFile            = "ERR_EMPTY_FILE"
	ErrCodeFileTooLarge         = "ERR_FILE_TOO_LARGE"
	ErrCodeUnsupportedMediaType = "ERR_UNSUPPORTED_MEDIA_TYPE"
	ErrCodeInvalidFolder        = "ERR_INVALID_FOLDER"
	ErrCodeStorageNotConfigured = "ERR_STORAGE_NOT_CONFIGURED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when a request body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Upstream error codes
const (
	// ErrCodeBackendError is used when the backend answers with an unexpected error
	ErrCodeBackendError = "ERR_BACKEND_ERROR"
	// ErrCodeServiceUnavailable is used when the backend cannot be reached
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	// ErrCodeGatewayTimeout is used when the backend does not answer in time
	ErrCodeGatewayTimeout = "ERR_GATEWAY_TIMEOUT"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeSessionExpired:     http.StatusUnauthorized,
	ErrCodeSessionRevoked:     http.StatusUnauthorized,
	ErrCodeSessionInvalid:     http.StatusUnauthorized,
	ErrCodeRefreshRejected:    http.StatusUnauthorized,

	// Setup errors
	ErrCodeSetupDisabled:     http.StatusForbidden,
	ErrCodeInvalidSetupToken: http.StatusUnauthorized,
	ErrCodeSetupCompleted:    http.StatusConflict,

	// Media errors
	ErrCodeEmptyFile:            http.StatusBadRequest,
	ErrCodeFileTooLarge:         http.StatusRequestEntityTooLarge,
	ErrCodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
	ErrCodeInvalidFolder:        http.StatusBadRequest,
	ErrCodeStorageNotConfigured: http.StatusServiceUnavailable,

	// Resource errors
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Upstream errors
	ErrCodeBackendError:       http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeGatewayTimeout:     http.StatusGatewayTimeout,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"SERVICE_UNAVAILABLE":    ErrCodeServiceUnavailable,
	"INVALID_CREDENTIALS":    ErrCodeInvalidCredentials,
	"SESSION_EXPIRED":        ErrCodeSessionExpired,
	"SESSION_REVOKED":        ErrCodeSessionRevoked,
	"SESSION_INVALID":        ErrCodeSessionInvalid,
	"REFRESH_REJECTED":       ErrCodeRefreshRejected,
	"MISSING_TOKENS":         ErrCodeBackendError,
	"INVALID_STAFF_USER":     ErrCodeBackendError,
	"SETUP_DISABLED":         ErrCodeSetupDisabled,
	"INVALID_SETUP_TOKEN":    ErrCodeInvalidSetupToken,
	"SETUP_COMPLETED":        ErrCodeSetupCompleted,
	"EMPTY_FILE":             ErrCodeEmptyFile,
	"FILE_TOO_LARGE":         ErrCodeFileTooLarge,
	"UNSUPPORTED_MEDIA_TYPE": ErrCodeUnsupportedMediaType,
	"INVALID_FOLDER":         ErrCodeInvalidFolder,
	"STORAGE_NOT_CONFIGURED": ErrCodeStorageNotConfigured,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
