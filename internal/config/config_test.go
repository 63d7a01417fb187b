package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("MONGODB_URI", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverAuto, cfg.Store.Driver)
	assert.Equal(t, "healthcare_db", cfg.Store.MongoDatabase)
	assert.Equal(t, 5*time.Second, cfg.Store.MongoTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, time.Hour, cfg.Session.SweepInterval)
	assert.Equal(t, 12, cfg.Session.BcryptCost)
	assert.Empty(t, cfg.Inference.URL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", " Mongo ")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("INFERENCE_URL", "http://model:8000")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "http://model:8000", cfg.Inference.URL)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo", "MONGODB_URI": ""}},
		{"bad duration", map[string]string{"SESSION_LIFETIME": "forever"}},
		{"zero lifetime", map[string]string{"SESSION_LIFETIME": "0s"}},
		{"bad port", map[string]string{"PORT": "70000"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
