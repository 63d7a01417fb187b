package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
	"github.com/sakif/healthchat/internal/repository/storetest"
)

// newTestDB opens a fresh database file under t.TempDir().
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return newTestDB(t) })
}

func TestNew_InMemory(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer db.Close(ctx)

	require.NoError(t, db.InsertUser(ctx, storetest.NewUser("u-1", "alice", "", time.Now().UTC())))

	// a single pooled connection keeps every query on the same in-memory database
	got, err := db.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.migrate(context.Background()))
}

// An empty email is stored as NULL so the partial unique index skips it.
func TestEmptyEmailStoredAsNull(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.InsertUser(ctx, storetest.NewUser("u-1", "one", "", time.Now().UTC())))
	require.NoError(t, db.InsertUser(ctx, storetest.NewUser("u-2", "two", "", time.Now().UTC())))

	var nulls int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email IS NULL`).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 2, nulls)
}

func TestDuplicateKey_IgnoresOtherErrors(t *testing.T) {
	_, ok := duplicateKey(model.CollectionUsers, context.DeadlineExceeded)
	assert.False(t, ok)
}

func TestStatus_AfterClose(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Close(ctx))

	st, err := db.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, "sqlite", st.Backend)
}
