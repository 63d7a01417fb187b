package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository/filestore"
	"github.com/sakif/healthchat/internal/repository/storetest"
)

func seededConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.InsertUser(ctx, storetest.NewUser("u-1", "alice", "a@x.com", base)))
	require.NoError(t, store.InsertUser(ctx, storetest.NewUser("u-2", "bob", "", base.Add(time.Minute))))

	return &config.Config{Store: config.StoreConfig{
		Driver:     config.DriverFile,
		DataDir:    dir,
		SQLitePath: filepath.Join(dir, "unused.db"),
	}}
}

func TestRun_Users(t *testing.T) {
	cfg := seededConfig(t)

	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"users"}, &out, &errOut))

	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "bob")
	assert.Contains(t, out.String(), "2 user(s)")
	assert.NotContains(t, out.String(), "$2a$", "password hashes are never printed")
}

func TestRun_UsersJSON(t *testing.T) {
	cfg := seededConfig(t)

	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"-json", "users"}, &out, &errOut))

	var users []model.PublicUser
	require.NoError(t, json.Unmarshal(out.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestRun_Status(t *testing.T) {
	cfg := seededConfig(t)

	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []string{"-json", "status"}, &out, &errOut))

	var status model.StoreStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "file", status.Backend)
	assert.True(t, status.Connected)
	assert.EqualValues(t, 2, status.DocumentCounts[model.CollectionUsers])
}

func TestRun_EmailIndexNeedsMongo(t *testing.T) {
	cfg := seededConfig(t)

	var out, errOut bytes.Buffer
	err := run(context.Background(), cfg, []string{"email-index"}, &out, &errOut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo backend")
}

func TestRun_Usage(t *testing.T) {
	cfg := seededConfig(t)

	for _, args := range [][]string{nil, {"bogus"}, {"status", "extra"}, {"-nope"}} {
		var out, errOut bytes.Buffer
		err := run(context.Background(), cfg, args, &out, &errOut)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}
