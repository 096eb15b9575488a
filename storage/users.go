package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"todoweb/domain"
)

// CreateUser inserts a new account with a pre-hashed password.
func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Created:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Username, user.PasswordHash, user.Created.Format(timestampFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.User{}, domain.ErrUsernameTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// UserByName looks an account up by its unique username.
func (s *Storage) UserByName(ctx context.Context, username string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username))
}

// UserByID looks an account up by id.
func (s *Storage) UserByID(ctx context.Context, id string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id))
}

// SetPasswordHash replaces an account's password hash.
func (s *Storage) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Storage) scanUser(row *sql.Row) (domain.User, error) {
	var (
		user    domain.User
		created string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	createdAt, err := time.Parse(timestampFormat, created)
	if err != nil {
		return domain.User{}, err
	}
	user.Created = createdAt
	return user, nil
}
