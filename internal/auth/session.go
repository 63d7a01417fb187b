package auth

import (
	"fmt"
	"time"

	"github.com/sakif/healthchat/internal/model"
)

// DefaultSessionLifetime is how long a session stays valid after login.
const DefaultSessionLifetime = 30 * 24 * time.Hour

// SessionPolicy decides when sessions are created and when they expire.
//
// Sessions have a fixed expiry: no sliding refresh, no idle timeout. A session
// is valid while now <= ExpiresAt, so at the exact expiry instant it still works.
type SessionPolicy struct {
	Lifetime time.Duration
	Now      func() time.Time
}

// NewSessionPolicy returns a policy with the given lifetime and the wall clock.
// A non-positive lifetime selects DefaultSessionLifetime.
func NewSessionPolicy(lifetime time.Duration) *SessionPolicy {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionPolicy{Lifetime: lifetime, Now: time.Now}
}

// Clock returns the current time in UTC at millisecond precision, the finest
// resolution every backend round-trips unchanged.
func (p *SessionPolicy) Clock() time.Time {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().UTC().Truncate(time.Millisecond)
}

// NewSession creates a session for userID with a fresh token.
func (p *SessionPolicy) NewSession(userID string) (*model.Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("auth: session requires a user id")
	}

	now := p.Clock()
	return &model.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.Lifetime),
	}, nil
}

// IsExpired reports whether the session is past its expiry at the given instant.
func (p *SessionPolicy) IsExpired(s *model.Session, now time.Time) bool {
	return now.After(s.ExpiresAt)
}
