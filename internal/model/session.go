package model

import (
	"fmt"
	"time"
)

// Session is an authenticated login. The token is both the bearer credential
// and the session's identity; sessions are never updated in place.
type Session struct {
	Token     string    `json:"token"      bson:"token"      db:"token"`
	UserID    string    `json:"user_id"    bson:"user_id"    db:"user_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at" db:"expires_at"`
}

func (s *Session) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("model: session is nil")
	case s.Token == "":
		return fmt.Errorf("model: session token is empty")
	case s.UserID == "":
		return fmt.Errorf("model: session user id is empty")
	case !s.ExpiresAt.After(s.CreatedAt):
		return fmt.Errorf("model: session expires before it is created")
	}
	return nil
}
