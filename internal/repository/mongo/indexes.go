package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Index names. Duplicate-key errors name the violated index; keyFromIndexName
// maps these back to the colliding field.
const (
	indexUsername         = "username_unique_ci"
	indexUsernameFallback = "username_unique"
	indexEmail            = "email_unique_partial"
	indexUserID           = "user_id_unique"
	indexToken            = "token_unique"
)

// caseInsensitive is the collation of the username index. Queries must pass the
// same collation for the server to use (and honour) the index.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// emailPartialFilter limits the email index to documents that actually carry a string email.
var emailPartialFilter = bson.D{{Key: "email", Value: bson.D{
	{Key: "$exists", Value: true},
	{Key: "$type", Value: "string"},
}}}

// IndexInfo is one entry of listIndexes, decoded for inspection.
type IndexInfo struct {
	Name          string `bson:"name"`
	Key           bson.D `bson:"key"`
	Unique        bool   `bson:"unique,omitempty"`
	Sparse        bool   `bson:"sparse,omitempty"`
	PartialFilter bson.D `bson:"partialFilterExpression,omitempty"`
}

// HasKey reports whether field is part of the index key.
func (i IndexInfo) HasKey(field string) bool {
	for _, e := range i.Key {
		if e.Key == field {
			return true
		}
	}
	return false
}

// BlocksMissingEmails reports whether a unique email index would treat every
// email-less user as a duplicate: unique, and neither partial nor sparse.
func (i IndexInfo) BlocksMissingEmails() bool {
	return i.HasKey("email") && i.Unique && !i.Sparse && len(i.PartialFilter) == 0
}

// EnsureIndexes creates the indexes every collection needs. It never fails:
// each problem is logged as a warning and the store keeps running degraded.
func (s *Store) EnsureIndexes(ctx context.Context) {
	s.ensureUserIndexes(ctx)

	s.createIndexes(ctx, s.sessions, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetName(indexToken).SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})

	s.createIndexes(ctx, s.chatLogs, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
}

func (s *Store) ensureUserIndexes(ctx context.Context) {
	s.createIndexes(ctx, s.users, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName(indexUserID).SetUnique(true)},
	})

	// username: case-insensitive unique; fall back to a case-sensitive unique index
	// plus regex lookups when the server rejects the collation.
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName(indexUsername).SetUnique(true).SetCollation(caseInsensitive),
	})
	if err == nil {
		s.usernameCollation = true
	} else {
		s.logger.Warn("case-insensitive username index unavailable, falling back to regex lookups",
			slog.String("error", err.Error()))
		s.createIndexes(ctx, s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(indexUsernameFallback).SetUnique(true)},
		})
	}

	if err := s.dropBlockingEmailIndexes(ctx); err != nil {
		s.logger.Warn("inspecting email indexes failed", slog.String("error", err.Error()))
	}
	s.createIndexes(ctx, s.users, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexEmail).SetUnique(true).
				SetPartialFilterExpression(emailPartialFilter),
		},
	})
}

// dropBlockingEmailIndexes removes unique email indexes left over from older
// deployments that are neither partial nor sparse.
func (s *Store) dropBlockingEmailIndexes(ctx context.Context) error {
	indexes, err := s.ListIndexes(ctx)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if !idx.BlocksMissingEmails() {
			continue
		}
		if err := s.users.Indexes().DropOne(ctx, idx.Name); err != nil {
			return fmt.Errorf("dropping index %s: %w", idx.Name, err)
		}
		s.logger.Warn("dropped non-partial unique email index", slog.String("index", idx.Name))
	}
	return nil
}

func (s *Store) createIndexes(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) {
	for _, m := range models {
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			s.logger.Warn("creating index failed",
				slog.String("collection", coll.Name()),
				slog.String("error", err.Error()))
		}
	}
}

// ListIndexes returns the indexes of the users collection.
func (s *Store) ListIndexes(ctx context.Context) ([]IndexInfo, error) {
	cursor, err := s.users.Indexes().List(ctx)
	if err != nil {
		return nil, wrapErr("listing user indexes", err)
	}
	var indexes []IndexInfo
	if err := cursor.All(ctx, &indexes); err != nil {
		return nil, wrapErr("decoding user indexes", err)
	}
	return indexes, nil
}
