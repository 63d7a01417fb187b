// Package model defines the records persisted by every storage backend.
//
// Each struct carries three tag sets:
//   - json: the embedded file store and HTTP responses
//   - bson: the MongoDB store
//   - db:   the SQLite store's column names
package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a registered account.
//
// Email is optional. The empty string means "no email": the bson omitempty tag
// keeps the field out of the Mongo document entirely, which is what the partial
// unique index on email relies on to let many emailless users coexist.
type User struct {
	ID           string    `json:"user_id"       bson:"user_id"            db:"id"`
	Username     string    `json:"username"      bson:"username"           db:"username"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"  db:"email"`
	PasswordHash string    `json:"password_hash" bson:"password_hash"      db:"password_hash"`
	FullName     string    `json:"full_name,omitempty" bson:"full_name,omitempty" db:"full_name"`
	CreatedAt    time.Time `json:"created_at"    bson:"created_at"         db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    bson:"updated_at"         db:"updated_at"`
}

// Validate checks the fields every backend requires before a write.
func (u *User) Validate() error {
	switch {
	case u == nil:
		return fmt.Errorf("model: user is nil")
	case u.ID == "":
		return fmt.Errorf("model: user id is empty")
	case strings.TrimSpace(u.Username) == "":
		return fmt.Errorf("model: username is empty")
	case u.PasswordHash == "":
		return fmt.Errorf("model: password hash is empty")
	case u.CreatedAt.IsZero() || u.UpdatedAt.IsZero():
		return fmt.Errorf("model: user timestamps are not set")
	}
	return nil
}

// Public returns the view of the user that may leave the process.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is a User without its password hash.
type PublicUser struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
