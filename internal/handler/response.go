package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authservice "github.com/jwalitptl/credchain-api/internal/service/auth"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error maps a service error to its HTTP response. Domain errors keep
// their message; everything unmapped collapses to a bare 500 so
// internals never leak to the client.
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(statusForCode(appErr.Code), NewErrorResponse(appErr.Message))
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	case errors.Is(err, apperrors.ErrInvalidVerdict):
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case errors.Is(err, apperrors.ErrSignatureInvalid):
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
	case errors.Is(err, apperrors.ErrKeyPairNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case errors.Is(err, apperrors.ErrChainTampered):
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(err.Error()))
	case errors.Is(err, authservice.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
	}
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
