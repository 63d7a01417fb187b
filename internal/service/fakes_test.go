package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of the storage interfaces.
// It enforces the same uniqueness rules as the real backends, and each
// operation can be made to fail by setting the matching error field.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	sessions map[string]model.Session
	logs     []model.ChatLogEntry

	findUserErr      error
	insertUserErr    error // returned after the uniqueness checks pass
	findSessionErr   error
	insertSessionErr error
	deleteSessionErr error
	appendLogErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]model.User),
		sessions: make(map[string]model.Session),
	}
}

func (f *fakeStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.findUser(func(u model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return f.findUser(func(u model.User) bool { return u.Email != "" && strings.EqualFold(u.Email, email) })
}

func (f *fakeStore) FindUserByID(_ context.Context, id string) (*model.User, error) {
	return f.findUser(func(u model.User) bool { return u.ID == id })
}

func (f *fakeStore) findUser(match func(model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findUserErr != nil {
		return nil, f.findUserErr
	}
	for _, u := range f.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) InsertUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, user.Username) {
			return &repository.DuplicateKeyError{Collection: model.CollectionUsers, Field: repository.FieldUsername}
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return &repository.DuplicateKeyError{Collection: model.CollectionUsers, Field: repository.FieldEmail}
		}
	}
	if f.insertUserErr != nil {
		return f.insertUserErr
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) FindSession(_ context.Context, token string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findSessionErr != nil {
		return nil, f.findSessionErr
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) InsertSession(_ context.Context, session *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSessionErr != nil {
		return f.insertSessionErr
	}
	f.sessions[session.Token] = *session
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteSessionErr != nil {
		return f.deleteSessionErr
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeStore) AppendChatLog(_ context.Context, entry *model.ChatLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendLogErr != nil {
		return f.appendLogErr
	}
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// testClock is a settable clock for session expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
