package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rkotari/smartdrive"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the error response matching the error kind. Upstream
// failures are collapsed into a single generic message for clients; the cause
// only reaches the log.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, smartdrive.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, smartdrive.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, smartdrive.ErrUnauthenticated),
		errors.Is(err, smartdrive.ErrTokenExpired),
		errors.Is(err, smartdrive.ErrTokenMalformed):
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid token")
	case errors.Is(err, smartdrive.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "You cannot delete this file")
	case errors.Is(err, smartdrive.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
	case errors.Is(err, smartdrive.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, "already_exists", "User already exists")
	case errors.Is(err, smartdrive.ErrUpstream):
		WriteError(w, http.StatusBadGateway, "upstream_error", "Storage operation failed")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
