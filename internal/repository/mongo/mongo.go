// Package mongo implements repository.Store on MongoDB (mongo-driver v2).
//
// Uniqueness is enforced by server-side indexes created in EnsureIndexes:
//
//	users.username  unique, collation {locale: en, strength: 2} (case-insensitive)
//	users.email     unique, partial on {email: {$exists: true, $type: "string"}}
//	users.user_id   unique
//	sessions.token  unique
//
// Users without an email simply have no email field (bson omitempty), which the
// partial filter excludes, so any number of them coexist.
//
// Every operation runs under the client-level operation timeout. Any failure that
// is not "no document" or "duplicate key" is wrapped with repository.ErrUnavailable.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// DefaultDatabase is used when Options.Database is empty.
const DefaultDatabase = "healthcare_db"

// DefaultTimeout bounds connect, server selection and every single operation.
const DefaultTimeout = 5 * time.Second

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a MongoDB-backed repository.Store.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	users    *mongo.Collection
	sessions *mongo.Collection
	chatLogs *mongo.Collection
	logger   *slog.Logger

	// usernameCollation is false when the case-insensitive username index could not
	// be created; lookups then fall back to an anchored case-insensitive regex.
	usernameCollation bool

	sweepDone chan struct{}
	sweepWG   sync.WaitGroup
	sweepOnce sync.Once
	stopOnce  sync.Once
}

// Connect dials MongoDB, pings it and ensures indexes.
//
// A failed connect or ping returns an error wrapping repository.ErrUnavailable so the
// caller can fall back to an embedded store. Index failures only log warnings.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo: connection URI is empty")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout).
		SetTimeout(opts.Timeout))
	if err != nil {
		return nil, repository.Unavailable("mongo: connecting", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, repository.Unavailable("mongo: pinging server", err)
	}

	db := client.Database(opts.Database)
	s := &Store{
		client:    client,
		db:        db,
		users:     db.Collection(model.CollectionUsers),
		sessions:  db.Collection(model.CollectionSessions),
		chatLogs:  db.Collection(model.CollectionChatLogs),
		logger:    logger,
		sweepDone: make(chan struct{}),
	}

	s.EnsureIndexes(ctx)

	logger.Info("mongo store ready", slog.String("database", opts.Database))
	return s, nil
}

func (s *Store) Name() string { return "mongo" }

// Close stops the session sweeper (if running) and disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	s.stopSweeper()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	return nil
}

// dbStats is the subset of the dbStats command reply used by Status.
type dbStats struct {
	DataSize float64 `bson:"dataSize"`
}

// Status reports connectivity, collections, document counts and data size.
// An unreachable server yields Connected=false with the reason in Message, not an error.
func (s *Store) Status(ctx context.Context) (*model.StoreStatus, error) {
	st := &model.StoreStatus{
		Backend:  s.Name(),
		Database: s.db.Name(),
	}

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		st.Message = fmt.Sprintf("mongo unreachable: %v", err)
		return st, nil
	}

	var stats dbStats
	if err := s.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		return nil, repository.Unavailable("mongo: dbStats", err)
	}

	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, repository.Unavailable("mongo: listing collections", err)
	}

	counts := make(map[string]int64, len(model.Collections))
	for _, name := range model.Collections {
		n, err := s.db.Collection(name).CountDocuments(ctx, bson.D{})
		if err != nil {
			return nil, repository.Unavailable("mongo: counting "+name, err)
		}
		counts[name] = n
	}

	st.Connected = true
	st.Collections = names
	st.DocumentCounts = counts
	st.SizeEstimate = fmt.Sprintf("%.2f MB", stats.DataSize/(1024*1024))
	st.Message = "connected to MongoDB"
	return st, nil
}

// wrapErr maps driver errors onto the repository error set.
func wrapErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return repository.Unavailable("mongo: "+op, err)
}
