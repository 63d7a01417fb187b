package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// success shape and one error shape:
//
//	{"error": "username_taken", "message": "username \"alice\" is already taken", "field": "username"}
//
// ERROR MAPPING:
// The service layer returns apperror sentinels and knows nothing about HTTP.
// writeError is the single place where those sentinels become status codes.
//
//	ErrValidation          → 400 validation_error
//	ErrInvalidCredentials  → 401 invalid_credentials
//	ErrUnauthorized        → 401 unauthorized
//	ErrNotFound            → 404 not_found
//	ErrUsernameTaken       → 409 username_taken
//	ErrEmailTaken          → 409 email_taken
//	ErrConflict            → 409 conflict
//	ErrUnavailable         → 503 backend_unavailable
//	anything else          → 500 internal_error

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/healthchat/internal/apperror"
)

// maxBodyBytes caps request bodies. Chat questions are the largest payload.
const maxBodyBytes = 64 << 10

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status code.
// Headers and status must be written before the body; once Encode starts
// writing, header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and error code.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never leak internal error text; it can carry queries or file paths.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal_error"

	// Order matters: the taken-errors wrap ErrConflict, so they are checked first.
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUsernameTaken):
		status, code = http.StatusConflict, "username_taken"
	case errors.Is(err, apperror.ErrEmailTaken):
		status, code = http.StatusConflict, "email_taken"
	case errors.Is(err, apperror.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "backend_unavailable"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error so it renders as a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
