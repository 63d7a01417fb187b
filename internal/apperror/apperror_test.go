package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("username", "username is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "UsernameTaken wraps ErrUsernameTaken",
			err:       UsernameTaken("alice"),
			target:    ErrUsernameTaken,
			wantMatch: true,
		},
		{
			name:      "UsernameTaken is a conflict",
			err:       UsernameTaken("alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "EmailTaken is a conflict",
			err:       EmailTaken(),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "EmailTaken is not UsernameTaken",
			err:       EmailTaken(),
			target:    ErrUsernameTaken,
			wantMatch: false,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredentials",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredentials,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("storage"),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "UsernameTaken quotes the username",
			err:         UsernameTaken("alice"),
			wantMessage: `username "alice" already exists`,
		},
		{
			name:        "InvalidCredentials does not say which part was wrong",
			err:         InvalidCredentials(),
			wantMessage: "invalid username or password",
		},
		{
			name:        "Unavailable names the component",
			err:         Unavailable("storage"),
			wantMessage: "storage is temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestConflictFields(t *testing.T) {
	if f := UsernameTaken("bob").Field; f != "username" {
		t.Errorf("UsernameTaken Field = %q, want %q", f, "username")
	}
	if f := EmailTaken().Field; f != "email" {
		t.Errorf("EmailTaken Field = %q, want %q", f, "email")
	}
}
