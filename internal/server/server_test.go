package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository/filestore"
)

// =========================================================================
// HELPERS
// =========================================================================

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, question string, _ int) (string, error) {
	return "you asked: " + question, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Port: 8080,
		Store: config.StoreConfig{
			Driver:     config.DriverFile,
			DataDir:    dir,
			SQLitePath: filepath.Join(dir, "test.db"),
		},
		Session: config.SessionConfig{
			Lifetime:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *filestore.Store) {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(dir, testLogger())
	require.NoError(t, err)

	srv := New(testConfig(dir), store, echoGenerator{}, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close(context.Background())
	})
	return ts, store
}

func do(t *testing.T, ts *httptest.Server, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// =========================================================================
// END TO END
// =========================================================================

func TestAliceScenario(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/auth/signup", "",
		`{"username":"alice","email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	signupUser := body["user"].(map[string]any)
	userID := signupUser["user_id"].(string)
	assert.NotContains(t, signupUser, "password_hash")

	resp, body = do(t, ts, http.MethodPost, "/api/auth/login", "", `{"username":"Alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	assert.Equal(t, userID, body["user"].(map[string]any)["user_id"])

	resp, body = do(t, ts, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["error"])

	resp, body = do(t, ts, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, body["user_id"])

	resp, _ = do(t, ts, http.MethodPost, "/api/auth/logout", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/api/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/auth/logout", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "second logout is not an error")
}

func TestSignupConflicts(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := do(t, ts, http.MethodPost, "/api/auth/signup", "", `{"username":"bob","email":"b@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/api/auth/signup", "", `{"username":"BOB","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "username_taken", body["error"])

	resp, body = do(t, ts, http.MethodPost, "/api/auth/signup", "", `{"username":"robert","email":"B@X.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email_taken", body["error"])

	resp, body = do(t, ts, http.MethodPost, "/api/auth/signup", "", `{"username":"al","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "username", body["field"])
}

func TestChat_AuditsCaller(t *testing.T) {
	ts, store := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/chat", "", `{"question":"what is a fever?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "you asked: what is a fever?", body["answer"])

	resp, body = do(t, ts, http.MethodPost, "/api/auth/signup", "", `{"username":"carol","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["token"].(string)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat", token, `{"question":"and a cough?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/chat", "not-a-real-token", `{"question":"still anonymous"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "an invalid token on an optional-auth route continues anonymously")

	status, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, status.DocumentCounts[model.CollectionChatLogs])
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := do(t, ts, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "file", body["storage"].(map[string]any)["backend"])

	do(t, ts, http.MethodPost, "/api/auth/login", "", `{"username":"nobody","password":"secret1"}`)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `healthchat_auth_operations_total{op="login",result="rejected"} 1`)
}

func TestChat_NoGenerator(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(dir, testLogger())
	require.NoError(t, err)

	srv := New(testConfig(dir), store, nil, testLogger())
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"question":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// =========================================================================
// STORE SELECTION
// =========================================================================

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		driver   string
		mongoURI string
		want     string
	}{
		{"file", config.DriverFile, "", "file"},
		{"sqlite", config.DriverSQLite, "", "sqlite"},
		{"auto without uri", config.DriverAuto, "", "file"},
		{"auto with unreachable mongo", config.DriverAuto, "mongodb://127.0.0.1:1/?directConnection=true", "file"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(dir).Store
			cfg.Driver = tc.driver
			cfg.MongoURI = tc.mongoURI
			cfg.MongoTimeout = 300 * time.Millisecond

			store, err := OpenStore(ctx, cfg, testLogger())
			require.NoError(t, err)
			defer store.Close(ctx)

			assert.Equal(t, tc.want, store.Name())
		})
	}
}

func TestOpenStore_MongoRequiredFails(t *testing.T) {
	cfg := testConfig(t.TempDir()).Store
	cfg.Driver = config.DriverMongo
	cfg.MongoURI = "mongodb://127.0.0.1:1/?directConnection=true"
	cfg.MongoTimeout = 300 * time.Millisecond

	_, err := OpenStore(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}
