package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/repository"
	"github.com/sakif/healthchat/internal/repository/filestore"
	"github.com/sakif/healthchat/internal/repository/mongo"
	"github.com/sakif/healthchat/internal/repository/sqlite"
)

// OpenStore opens the storage backend named by cfg.Driver.
//
// DRIVER SELECTION:
//
//	mongo   → MongoDB at cfg.MongoURI; failure to connect is fatal
//	file    → JSON files under cfg.DataDir
//	sqlite  → SQLite database at cfg.SQLitePath
//	auto    → MongoDB when a URI is set and the server answers a ping,
//	          otherwise the file store
//
// The auto fallback only happens at startup. A store that goes away later
// surfaces as 503s; requests never silently switch backends.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)

	case config.DriverFile:
		return openFile(cfg, logger)

	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating sqlite directory: %w", err)
			}
		}
		db, err := sqlite.New(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite store: %w", err)
		}
		return db, nil

	case config.DriverAuto, "":
		if cfg.MongoURI == "" {
			logger.Info("MONGODB_URI not set, using file store", slog.String("dir", cfg.DataDir))
			return openFile(cfg, logger)
		}
		store, err := openMongo(ctx, cfg, logger)
		if err == nil {
			return store, nil
		}
		logger.Warn("MongoDB unavailable, falling back to file store",
			slog.String("dir", cfg.DataDir),
			slog.String("error", err.Error()),
		)
		return openFile(cfg, logger)
	}
	return nil, fmt.Errorf("server: unknown store driver %q", cfg.Driver)
}

func openMongo(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	store, err := mongo.Connect(ctx, mongo.Options{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
		Timeout:  cfg.MongoTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("server: connecting to mongo: %w", err)
	}
	return store, nil
}

func openFile(cfg config.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	store, err := filestore.New(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("server: opening file store: %w", err)
	}
	return store, nil
}
