package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

const userColumns = `id, username, email, password_hash, full_name, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

// nullable maps "" to SQL NULL so the partial unique index on email ignores it.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertUser inserts a new user. Uniqueness is enforced by the schema; a
// violation returns *repository.DuplicateKeyError naming the column.
func (db *DB) InsertUser(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		nullable(user.Email),
		user.PasswordHash,
		user.FullName,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dup, ok := duplicateKey(model.CollectionUsers, err); ok {
			return dup
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}
	return nil
}

func (db *DB) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// the username column is COLLATE NOCASE, so = compares case-insensitively
	return db.findUser(ctx, "username", username)
}

func (db *DB) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return db.findUser(ctx, "email", email)
}

func (db *DB) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.findUser(ctx, "id", id)
}

// findUser looks a user up by one column. column is always a literal from this file.
func (db *DB) findUser(ctx context.Context, column, value string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: finding user by %s: %w", column, err)
	}
	return u, nil
}

// ListUsers returns every user ordered by creation time.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	// rows MUST be closed or the single pooled connection is never released
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
