package dto

import (
	"net/http"

	"github.com/communal/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	// ErrCodeValidation is used when binding tags reject the request
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidInput is used when a domain rule rejects input data
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	// ErrCodeConcurrentModification is used when a write lost a version race
	ErrCodeConcurrentModification = "ERR_CONCURRENT_MODIFICATION"
)

// Billing error codes
const (
	// ErrCodeConcurrentComputation is used when the house and period are locked
	// by another computation
	ErrCodeConcurrentComputation = "ERR_CONCURRENT_COMPUTATION"
	ErrCodeComputationFailed     = "ERR_COMPUTATION_FAILED"
	// ErrCodeQueueUnavailable is used when the worker pool refuses the job
	ErrCodeQueueUnavailable = "ERR_QUEUE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeAlreadyExists:          http.StatusConflict,
	ErrCodeInvalidState:           http.StatusConflict,
	ErrCodeConcurrentModification: http.StatusConflict,

	ErrCodeConcurrentComputation: http.StatusConflict,
	ErrCodeComputationFailed:     http.StatusInternalServerError,
	ErrCodeQueueUnavailable:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[NormalizeErrorCode(code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeAlreadyExists:          ErrCodeAlreadyExists,
	shared.CodeInvalidInput:           ErrCodeInvalidInput,
	shared.CodeInvalidState:           ErrCodeInvalidState,
	shared.CodeComputationFailed:      ErrCodeComputationFailed,
	shared.CodeConcurrentComputation:  ErrCodeConcurrentComputation,
	shared.CodeQueueUnavailable:       ErrCodeQueueUnavailable,
	shared.CodeConcurrentModification: ErrCodeConcurrentModification,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
