package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

func (s *Store) InsertUser(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return insertErr(model.CollectionUsers, "inserting user", err)
	}
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if s.usernameCollation {
		return s.findUser(ctx, bson.D{{Key: "username", Value: username}},
			options.FindOne().SetCollation(caseInsensitive))
	}
	return s.findUser(ctx, bson.D{{Key: "username", Value: exactFold(username)}})
}

// FindUserByEmail matches case-insensitively. Emails are stored lower-cased,
// so lower-casing the argument is enough.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "user_id", Value: id}})
}

func (s *Store) findUser(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		return nil, wrapErr("finding user", err)
	}
	return &u, nil
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, wrapErr("listing users", err)
	}

	users := make([]model.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, wrapErr("decoding users", err)
	}
	return users, nil
}

// exactFold matches s exactly, ignoring case.
func exactFold(s string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

// insertErr turns a duplicate-key write error into *repository.DuplicateKeyError.
func insertErr(collection, op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &repository.DuplicateKeyError{Collection: collection, Field: fieldFromDuplicateKey(err.Error())}
	}
	return wrapErr(op, err)
}

// fieldFromDuplicateKey extracts the violated index from a server message such as
//
//	E11000 duplicate key error collection: healthcare_db.users index: username_unique_ci dup key: { username: "alice" }
//
// and maps it to the field it guards.
func fieldFromDuplicateKey(msg string) string {
	name := msg
	if _, after, found := strings.Cut(msg, "index: "); found {
		name, _, _ = strings.Cut(after, " ")
	}

	switch {
	case strings.HasPrefix(name, "username"):
		return repository.FieldUsername
	case strings.HasPrefix(name, "email"):
		return repository.FieldEmail
	case strings.HasPrefix(name, "user_id"):
		return repository.FieldUserID
	case strings.HasPrefix(name, "token"):
		return repository.FieldToken
	default:
		return name
	}
}
