// Package storetest is the behavioural contract every repository.Store must pass.
//
// Each backend's tests call Run with a factory that returns a fresh, empty store:
//
//	func TestContract(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) repository.Store { return newTestStore(t) })
//	}
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// Factory returns a new empty store. It registers its own cleanup on t.
type Factory func(t *testing.T) repository.Store

// base is a fixed, millisecond-aligned instant so every backend round-trips it exactly.
var base = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// NewUser builds a valid user record for tests.
func NewUser(id, username, email string, createdAt time.Time) *model.User {
	return &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		FullName:     "Test " + username,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore) })
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, newStore) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore) })
	t.Run("ChatLogs", func(t *testing.T) { testChatLogs(t, newStore) })
	t.Run("Status", func(t *testing.T) { testStatus(t, newStore) })
	t.Run("ConcurrentSignup", func(t *testing.T) { testConcurrentInsert(t, newStore) })
}

// =========================================================================
// USERS
// =========================================================================

func testUsers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	alice := NewUser("u-alice", "Alice", "alice@example.com", base)
	require.NoError(t, s.InsertUser(ctx, alice))

	t.Run("find by username is case-insensitive", func(t *testing.T) {
		for _, name := range []string{"Alice", "alice", "ALICE"} {
			got, err := s.FindUserByUsername(ctx, name)
			require.NoError(t, err, name)
			assert.Equal(t, "u-alice", got.ID)
			assert.Equal(t, "Alice", got.Username, "stored casing is preserved")
		}
	})

	t.Run("find by email is case-insensitive", func(t *testing.T) {
		got, err := s.FindUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-alice", got.ID)
	})

	t.Run("find by id round-trips every field", func(t *testing.T) {
		got, err := s.FindUserByID(ctx, "u-alice")
		require.NoError(t, err)
		assert.Equal(t, alice.Username, got.Username)
		assert.Equal(t, alice.Email, got.Email)
		assert.Equal(t, alice.PasswordHash, got.PasswordHash)
		assert.Equal(t, alice.FullName, got.FullName)
		assert.True(t, alice.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", alice.CreatedAt, got.CreatedAt)
		assert.True(t, alice.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("misses are ErrNotFound", func(t *testing.T) {
		_, err := s.FindUserByUsername(ctx, "bob")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = s.FindUserByEmail(ctx, "bob@example.com")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = s.FindUserByEmail(ctx, "")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = s.FindUserByID(ctx, "u-bob")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list is ordered by creation time", func(t *testing.T) {
		require.NoError(t, s.InsertUser(ctx, NewUser("u-carol", "carol", "", base.Add(2*time.Minute))))
		require.NoError(t, s.InsertUser(ctx, NewUser("u-bob", "bob", "", base.Add(time.Minute))))

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []string{"u-alice", "u-bob", "u-carol"}, []string{users[0].ID, users[1].ID, users[2].ID})
	})

	t.Run("invalid user is rejected", func(t *testing.T) {
		err := s.InsertUser(ctx, &model.User{ID: "u-x"})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, repository.ErrDuplicateKey))
	})
}

func testUserUniqueness(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.InsertUser(ctx, NewUser("u-1", "alice", "alice@example.com", base)))

	cases := []struct {
		name  string
		user  *model.User
		field string
	}{
		{"same username", NewUser("u-2", "alice", "", base), repository.FieldUsername},
		{"case-variant username", NewUser("u-3", "ALICE", "", base), repository.FieldUsername},
		{"same email", NewUser("u-4", "alice2", "alice@example.com", base), repository.FieldEmail},
		{"same id", NewUser("u-1", "someone-else", "", base), repository.FieldUserID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.InsertUser(ctx, tc.user)
			require.ErrorIs(t, err, repository.ErrDuplicateKey)
			field, ok := repository.DuplicateField(err)
			require.True(t, ok)
			assert.Equal(t, tc.field, field)
		})
	}

	t.Run("many users without email coexist", func(t *testing.T) {
		require.NoError(t, s.InsertUser(ctx, NewUser("u-10", "noemail1", "", base)))
		require.NoError(t, s.InsertUser(ctx, NewUser("u-11", "noemail2", "", base)))
		require.NoError(t, s.InsertUser(ctx, NewUser("u-12", "noemail3", "", base)))

		got, err := s.FindUserByUsername(ctx, "noemail2")
		require.NoError(t, err)
		assert.Empty(t, got.Email)
	})

	t.Run("failed inserts leave no trace", func(t *testing.T) {
		_, err := s.FindUserByID(ctx, "u-2")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = s.FindUserByUsername(ctx, "alice2")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// =========================================================================
// SESSIONS
// =========================================================================

func testSessions(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	sess := &model.Session{
		Token:     "tok-1",
		UserID:    "u-1",
		CreatedAt: base,
		ExpiresAt: base.Add(30 * 24 * time.Hour),
	}
	require.NoError(t, s.InsertSession(ctx, sess))

	got, err := s.FindSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt), "expires_at %v != %v", sess.ExpiresAt, got.ExpiresAt)

	err = s.InsertSession(ctx, sess)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	require.NoError(t, s.DeleteSession(ctx, "tok-1"))
	_, err = s.FindSession(ctx, "tok-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, s.DeleteSession(ctx, "tok-1"), "delete is idempotent")
	assert.NoError(t, s.DeleteSession(ctx, "never-existed"))
}

// =========================================================================
// CHAT LOGS
// =========================================================================

func testChatLogs(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	for i := 0; i < 3; i++ {
		err := s.AppendChatLog(ctx, &model.ChatLogEntry{
			ID:             fmt.Sprintf("log-%d", i),
			UserID:         model.AnonymousUserID,
			ConversationID: "conv-1",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			UserInput:      "What causes a fever?",
			BotResponse:    "A fever is usually caused by an infection.",
		})
		require.NoError(t, err)
	}

	assert.Error(t, s.AppendChatLog(ctx, &model.ChatLogEntry{ID: "log-bad"}))

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.DocumentCounts[model.CollectionChatLogs])
}

// =========================================================================
// STATUS
// =========================================================================

func testStatus(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.InsertUser(ctx, NewUser("u-1", "alice", "", base)))
	require.NoError(t, s.InsertSession(ctx, &model.Session{Token: "t", UserID: "u-1", CreatedAt: base, ExpiresAt: base.Add(time.Hour)}))

	st, err := s.Status(ctx)
	require.NoError(t, err)

	assert.Equal(t, s.Name(), st.Backend)
	assert.True(t, st.Connected)
	assert.ElementsMatch(t, model.Collections, st.Collections)
	assert.EqualValues(t, 1, st.DocumentCounts[model.CollectionUsers])
	assert.EqualValues(t, 1, st.DocumentCounts[model.CollectionSessions])
	assert.Regexp(t, `^\d+\.\d{2} MB$`, st.SizeEstimate)
	assert.NotEmpty(t, st.Message)
}

// =========================================================================
// CONCURRENCY
// =========================================================================

// testConcurrentInsert races N inserts of one username (in varying case).
// Exactly one must win; every loser must see a username duplicate.
func testConcurrentInsert(t *testing.T, newStore Factory) {
	const n = 16
	ctx := context.Background()
	s := newStore(t)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			name := "racer"
			if i%2 == 1 {
				name = "RACER"
			}
			errs[i] = s.InsertUser(ctx, NewUser(fmt.Sprintf("u-race-%d", i), name, "", base))
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, dups int
	for _, err := range errs {
		switch field, ok := repository.DuplicateField(err); {
		case err == nil:
			wins++
		case ok && field == repository.FieldUsername:
			dups++
		default:
			t.Errorf("unexpected insert error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, dups)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
