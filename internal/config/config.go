// Package config loads server settings from the environment.
//
// Values come from process env vars; a .env file in the working directory is
// loaded first when present, and real env vars always win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverAuto   = "auto"
	DriverMongo  = "mongo"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	Store     StoreConfig
	Session   SessionConfig
	Inference InferenceConfig
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver        string        `envconfig:"STORE_DRIVER" default:"auto"`
	MongoURI      string        `envconfig:"MONGODB_URI"`
	MongoDatabase string        `envconfig:"MONGODB_DATABASE" default:"healthcare_db"`
	MongoTimeout  time.Duration `envconfig:"MONGO_TIMEOUT" default:"5s"`
	DataDir       string        `envconfig:"DATA_DIR" default:"data"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"data/healthchat.db"`
}

// SessionConfig controls session lifetime and password hashing.
type SessionConfig struct {
	Lifetime      time.Duration `envconfig:"SESSION_LIFETIME" default:"720h"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`
}

// InferenceConfig points at the model server. An empty URL disables /api/chat.
type InferenceConfig struct {
	URL     string        `envconfig:"INFERENCE_URL"`
	Timeout time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"60s"`
}

// Load reads .env (if any) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DriverAuto
	}
	switch c.Store.Driver {
	case DriverAuto, DriverFile, DriverSQLite:
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("config: STORE_DRIVER=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("config: SESSION_LIFETIME must be positive, got %s", c.Session.Lifetime)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
