// Package apperror defines the error taxonomy shared by the service and handler layers.
//
// Services return *AppError values wrapping one of the sentinel errors below.
// Handlers translate the sentinel (via errors.Is) into a transport status code,
// so the service layer never knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnavailable        = errors.New("backend unavailable")

	// ErrUsernameTaken and ErrEmailTaken are both conflicts: errors.Is(err, ErrConflict)
	// holds for either of them.
	ErrUsernameTaken = fmt.Errorf("username taken: %w", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email taken: %w", ErrConflict)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// UsernameTaken reports that the username (compared case-insensitively) belongs to another account.
func UsernameTaken(username string) *AppError {
	return &AppError{
		Err:     ErrUsernameTaken,
		Message: fmt.Sprintf("username %q already exists", username),
		Field:   "username",
	}
}

// EmailTaken reports that the email is registered to another account.
// The address itself is left out of the message.
func EmailTaken() *AppError {
	return &AppError{
		Err:     ErrEmailTaken,
		Message: "email already exists",
		Field:   "email",
	}
}

// InvalidCredentials is returned for both an unknown username and a wrong password.
// Callers must not be able to tell the two apart.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid username or password",
	}
}

// Unauthorized means no valid session accompanied the request.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "valid authentication required",
	}
}

// Unavailable reports a transient failure of a backing component (store, inference server).
// The underlying cause is deliberately not part of the message; log it at the call site.
func Unavailable(component string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s is temporarily unavailable", component),
	}
}
