// Package filestore implements repository.Store on plain JSON files.
//
// Layout (inside the configured directory):
//
//	users.json      {"<user_id>": User, ...}
//	sessions.json   {"<token>": Session, ...}
//	chat_logs.json  {"<log_id>": ChatLogEntry, ...}
//
// The files carry no constraints of their own. Uniqueness of user id, username and
// email is enforced here, inside the users collection's write lock: InsertUser re-scans
// the collection after acquiring the lock and before writing, so two concurrent signups
// with the same username cannot both pass. The lock is per process; two processes
// sharing one directory are not supported.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

type Store struct {
	dir    string
	logger *slog.Logger

	users    *collection[model.User]
	sessions *collection[model.Session]
	chatLogs *collection[model.ChatLogEntry]
}

// New opens (creating if needed) a file store rooted at dir.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("filestore: data directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: creating data directory %s: %w", dir, err)
	}

	logger.Info("file store ready", slog.String("dir", dir))

	return &Store{
		dir:      dir,
		logger:   logger,
		users:    newCollection[model.User](filepath.Join(dir, model.CollectionUsers+".json")),
		sessions: newCollection[model.Session](filepath.Join(dir, model.CollectionSessions+".json")),
		chatLogs: newCollection[model.ChatLogEntry](filepath.Join(dir, model.CollectionChatLogs+".json")),
	}, nil
}

func (s *Store) Name() string { return "file" }

// Close is a no-op: every write is already on disk when it returns.
func (s *Store) Close(ctx context.Context) error { return nil }

// =========================================================================
// USERS
// =========================================================================

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, func(u *model.User) bool {
		return strings.EqualFold(u.Username, username)
	})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return s.findUser(ctx, func(u *model.User) bool {
		return u.Email != "" && strings.EqualFold(u.Email, email)
	})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *model.User
	err := s.users.view(func(docs map[string]model.User) error {
		if u, ok := docs[id]; ok {
			found = &u
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: finding user %s: %w", id, err)
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *Store) findUser(ctx context.Context, match func(*model.User) bool) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *model.User
	err := s.users.view(func(docs map[string]model.User) error {
		for _, u := range docs {
			if match(&u) {
				found = &u
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: scanning users: %w", err)
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

// InsertUser adds the user unless its id, username or email is already taken.
// The check and the write happen under one lock acquisition.
func (s *Store) InsertUser(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("filestore: %w", err)
	}

	return s.users.update(func(docs map[string]model.User) (bool, error) {
		if _, exists := docs[user.ID]; exists {
			return false, &repository.DuplicateKeyError{Collection: model.CollectionUsers, Field: repository.FieldUserID}
		}
		for _, existing := range docs {
			if strings.EqualFold(existing.Username, user.Username) {
				return false, &repository.DuplicateKeyError{Collection: model.CollectionUsers, Field: repository.FieldUsername}
			}
			if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
				return false, &repository.DuplicateKeyError{Collection: model.CollectionUsers, Field: repository.FieldEmail}
			}
		}
		docs[user.ID] = *user
		return true, nil
	})
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var users []model.User
	err := s.users.view(func(docs map[string]model.User) error {
		users = make([]model.User, 0, len(docs))
		for _, u := range docs {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: listing users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// =========================================================================
// SESSIONS
// =========================================================================

func (s *Store) FindSession(ctx context.Context, token string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *model.Session
	err := s.sessions.view(func(docs map[string]model.Session) error {
		if sess, ok := docs[token]; ok {
			found = &sess
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: finding session: %w", err)
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *Store) InsertSession(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("filestore: %w", err)
	}

	return s.sessions.update(func(docs map[string]model.Session) (bool, error) {
		if _, exists := docs[session.Token]; exists {
			return false, &repository.DuplicateKeyError{Collection: model.CollectionSessions, Field: repository.FieldToken}
		}
		docs[session.Token] = *session
		return true, nil
	})
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.sessions.update(func(docs map[string]model.Session) (bool, error) {
		if _, exists := docs[token]; !exists {
			return false, nil
		}
		delete(docs, token)
		return true, nil
	})
}

// =========================================================================
// CHAT LOGS
// =========================================================================

func (s *Store) AppendChatLog(ctx context.Context, entry *model.ChatLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("filestore: %w", err)
	}

	return s.chatLogs.update(func(docs map[string]model.ChatLogEntry) (bool, error) {
		docs[entry.ID] = *entry
		return true, nil
	})
}

// =========================================================================
// STATUS
// =========================================================================

func (s *Store) Status(ctx context.Context) (*model.StoreStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(model.Collections))
	var total int64

	err := s.users.view(func(docs map[string]model.User) error {
		counts[model.CollectionUsers] = int64(len(docs))
		return nil
	})
	if err == nil {
		err = s.sessions.view(func(docs map[string]model.Session) error {
			counts[model.CollectionSessions] = int64(len(docs))
			return nil
		})
	}
	if err == nil {
		err = s.chatLogs.view(func(docs map[string]model.ChatLogEntry) error {
			counts[model.CollectionChatLogs] = int64(len(docs))
			return nil
		})
	}
	if err != nil {
		return &model.StoreStatus{
			Backend:  s.Name(),
			Database: s.dir,
			Message:  fmt.Sprintf("file store unreadable: %v", err),
		}, nil
	}

	total = s.users.size() + s.sessions.size() + s.chatLogs.size()

	return &model.StoreStatus{
		Backend:        s.Name(),
		Connected:      true,
		Database:       s.dir,
		Collections:    model.Collections,
		DocumentCounts: counts,
		SizeEstimate:   fmt.Sprintf("%.2f MB", float64(total)/(1024*1024)),
		Message:        "using local JSON file storage",
	}, nil
}
