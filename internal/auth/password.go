// Package auth is the credential codec: password hashing, token and id generation,
// session lifetime policy and the bearer-token middleware.
//
// PASSWORD STORAGE:
// Passwords are hashed with bcrypt. Every hash carries its own random salt and
// work factor, so two users with the same password get different hashes and the
// cost can be raised later without a migration (old hashes keep verifying).
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
// Roughly ~250ms per hash on a modern server.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer inputs are rejected, not truncated.
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch is returned by Verify when the password does not match the hash.
	ErrPasswordMismatch = errors.New("auth: password does not match")
	// ErrPasswordTooLong is returned by Hash for inputs over MaxPasswordBytes.
	ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected:
// BCRYPT_COST in production, 4 (bcrypt.MinCost) in tests.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. A cost of 0 selects DefaultCost;
// values outside bcrypt's accepted range are clamped into it.
func NewPasswordService(cost int) *PasswordService {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with bcrypt.MinCost.
// Use this in tests in other packages; cost 4 is far too weak for production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Cost reports the configured work factor.
func (p *PasswordService) Cost() int { return p.cost }

// Hash hashes the given plaintext password with bcrypt.
//
// The output is self-contained (salt and cost included); store it as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil on a match and ErrPasswordMismatch on a mismatch. Any other error
// means the stored hash itself is unreadable.
//
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
