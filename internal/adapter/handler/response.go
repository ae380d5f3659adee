package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/ventures/internal/core/domain"
)

var ErrDuplicateRequest = errors.New("duplicate request")

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    gin.H  `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func successResponse(message string, data gin.H) SuccessResponse {
	return SuccessResponse{Success: true, Message: message, Data: data}
}

// classify maps an error onto the status, code and client-safe message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, ErrDuplicateRequest):
		return http.StatusConflict, "duplicate_request", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}
