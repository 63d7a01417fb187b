package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the lookup matched no record.
	ErrNotFound = errors.New("repository: record not found")
	// ErrUnavailable wraps transport failures and timeouts. It never means "no such record".
	ErrUnavailable = errors.New("repository: backend unavailable")
	// ErrDuplicateKey is matched by every *DuplicateKeyError via errors.Is.
	ErrDuplicateKey = errors.New("repository: duplicate key")
)

// Unique fields reported by DuplicateKeyError.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldUserID   = "user_id"
	FieldToken    = "token"
)

// DuplicateKeyError is returned when an insert collides with a uniqueness rule.
// Field names which rule fired so the caller can report the right conflict.
type DuplicateKeyError struct {
	Collection string
	Field      string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("repository: duplicate %s in %s", e.Field, e.Collection)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// DuplicateField returns the colliding field when err is a *DuplicateKeyError.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

// Unavailable wraps err so that errors.Is(result, ErrUnavailable) holds while the
// original cause stays in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
