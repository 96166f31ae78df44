package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest            ErrorCode = "bad_request"
	errCodeNotFound              ErrorCode = "not_found"
	errCodeValidationFailed      ErrorCode = "validation_failed"
	errCodeDuplicateReference    ErrorCode = "duplicate_reference"
	errCodeInsufficientAvailable ErrorCode = "insufficient_available"
	errCodeAccountFrozen         ErrorCode = "account_frozen"
	errCodeInvalidHoldState      ErrorCode = "invalid_hold_state"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
	errCodeConflict      ErrorCode = "storage_conflict"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message, details...)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps a ledger taxonomy error onto an HTTP response.
// Callers that already handled the happy path funnel every error through
// here so the status codes stay consistent across endpoints.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateReference):
		respondWithError(c, http.StatusConflict, errCodeDuplicateReference, err.Error())
	case errors.Is(err, domain.ErrInsufficientAvailable):
		respondWithError(c, http.StatusConflict, errCodeInsufficientAvailable, err.Error())
	case errors.Is(err, domain.ErrAccountFrozen):
		respondWithError(c, http.StatusConflict, errCodeAccountFrozen, err.Error())
	case errors.Is(err, domain.ErrInvalidHoldState):
		respondWithError(c, http.StatusConflict, errCodeInvalidHoldState, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnbalancedEntry),
		errors.Is(err, domain.ErrAssetDisabled):
		respondWithError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrStorageConflict):
		// The engine already retried; the caller may try again later
		respondWithError(c, http.StatusServiceUnavailable, errCodeConflict, err.Error())
	default:
		respondInternalError(c, err, "Internal server error")
	}
}
