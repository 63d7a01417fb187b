package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

func (db *DB) InsertSession(ctx context.Context, session *model.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		if dup, ok := duplicateKey(model.CollectionSessions, err); ok {
			return dup
		}
		return fmt.Errorf("sqlite: inserting session: %w", err)
	}
	return nil
}

func (db *DB) FindSession(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: finding session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes the session. Deleting a missing token is not an error.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}
