package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront-service/internal/service"
)

const internalErrorMessage = "Internal Server Error"

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Message: message,
		Code:    code,
	})
}

// handleServiceError converts service errors to HTTP status codes. Only client
// errors carry the service message; everything else is reported generically.
func handleServiceError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, service.ErrValidation):
		httpStatus = http.StatusBadRequest
		code = "validation_failed"
	case errors.Is(err, service.ErrInvalidResetCode):
		httpStatus = http.StatusBadRequest
		code = "invalid_reset_code"
	case errors.Is(err, service.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, service.ErrUnauthorized):
		httpStatus = http.StatusUnauthorized
		code = "unauthorized"
	case errors.Is(err, service.ErrInvalidCredentials):
		httpStatus = http.StatusUnauthorized
		code = "invalid_credentials"
	case errors.Is(err, service.ErrEmailExists):
		httpStatus = http.StatusConflict
		code = "email_exists"
	case errors.Is(err, service.ErrExternalService):
		respondError(w, http.StatusInternalServerError, "external_service_error", internalErrorMessage)
		return
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", internalErrorMessage)
		return
	}

	message := http.StatusText(httpStatus)
	var svcErr *service.Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		message = svcErr.Message
	}
	respondError(w, httpStatus, code, message)
}
