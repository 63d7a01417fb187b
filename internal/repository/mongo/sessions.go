package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sakif/healthchat/internal/model"
)

func (s *Store) InsertSession(ctx context.Context, session *model.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return insertErr(model.CollectionSessions, "inserting session", err)
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	if err := s.sessions.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&sess); err != nil {
		return nil, wrapErr("finding session", err)
	}
	return &sess, nil
}

// DeleteSession is idempotent: deleting nothing is success.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.D{{Key: "token", Value: token}}); err != nil {
		return wrapErr("deleting session", err)
	}
	return nil
}
