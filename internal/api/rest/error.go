package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest          ErrorCode = "bad_request"
	errCodeBadAuthorization    ErrorCode = "bad_authorization"
	errCodePaymentFailed       ErrorCode = "payment_failed"
	errCodeInsufficientBalance ErrorCode = "insufficient_balance"
	errCodeForbidden           ErrorCode = "forbidden"
	errCodeNotFound            ErrorCode = "not_found"
	errCodeNothingToWithdraw   ErrorCode = "nothing_to_withdraw"
	errCodeTermsMismatch       ErrorCode = "terms_mismatch"

	// Server errors (5xx)
	errCodeInternalError  ErrorCode = "internal_error"
	errCodeTransferFailed ErrorCode = "currency_transfer_failed"
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

// respondRegistryError maps a registry error to its HTTP status and stable
// error code. The codes let a caller distinguish retry-worthy failures
// (payment_failed after re-approving) from terminal ones (bad_authorization).
func respondRegistryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBadAuthorization):
		respondWithError(c, http.StatusUnauthorized, errCodeBadAuthorization, "Mint authorization rejected", err.Error())
	case errors.Is(err, domain.ErrPaymentFailed):
		respondWithError(c, http.StatusPaymentRequired, errCodePaymentFailed, "Settlement currency refused the payment", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondWithError(c, http.StatusConflict, errCodeInsufficientBalance, "Transfer amount exceeds the holding", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Caller is not the content's service provider", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Content not found", err.Error())
	case errors.Is(err, domain.ErrNothingToWithdraw):
		respondWithError(c, http.StatusConflict, errCodeNothingToWithdraw, "No withdrawable fee balance", err.Error())
	case errors.Is(err, domain.ErrTermsMismatch):
		respondWithError(c, http.StatusConflict, errCodeTermsMismatch, "Content terms do not match the registered ones", err.Error())
	case errors.Is(err, domain.ErrTransferFailed):
		respondWithError(c, http.StatusBadGateway, errCodeTransferFailed, "Settlement currency transfer failed", err.Error())
	default:
		logger.Error(err, zap.String("path", c.Request.URL.Path))
		respondWithError(c, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
	}
}
