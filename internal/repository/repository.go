// Package repository defines the storage capability set consumed by the service layer.
//
// Three implementations live in sub-packages:
//
//	filestore  embedded JSON documents, one file per collection, no server-side constraints
//	mongo      networked MongoDB, uniqueness enforced by server indexes
//	sqlite     embedded SQLite, uniqueness enforced by UNIQUE constraints
//
// They differ in atomicity guarantees, not in API. Every implementation must make
// concurrent InsertUser calls with the same username or email resolve to exactly one
// winner; the losers get a *DuplicateKeyError. How that is achieved is part of each
// implementation's contract (see its package doc).
package repository

import (
	"context"

	"github.com/sakif/healthchat/internal/model"
)

// UserRepository reads and creates accounts. Lookups by username and email are
// case-insensitive. All finders return ErrNotFound when nothing matches.
type UserRepository interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	InsertUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// SessionRepository stores sessions keyed by token. DeleteSession is idempotent.
type SessionRepository interface {
	FindSession(ctx context.Context, token string) (*model.Session, error)
	InsertSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, token string) error
}

// ChatLogRepository is the append-only audit trail of chat exchanges.
type ChatLogRepository interface {
	AppendChatLog(ctx context.Context, entry *model.ChatLogEntry) error
}

// Store is a complete storage backend with an explicit lifecycle:
// construct it with the implementation's constructor, release it with Close.
type Store interface {
	UserRepository
	SessionRepository
	ChatLogRepository

	// Name identifies the backend in logs and status output ("file", "mongo", "sqlite").
	Name() string
	// Status reports connectivity and collection sizes for diagnostics.
	Status(ctx context.Context) (*model.StoreStatus, error)
	Close(ctx context.Context) error
}
