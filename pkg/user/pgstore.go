package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed user store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the users table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			chat_id      BIGINT NOT NULL,
			first_name   TEXT NOT NULL DEFAULT '',
			last_name    TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Upsert creates or refreshes a user's identity fields. The conflict
// branch deliberately leaves display_name alone so a rename survives
// the user sending /start again.
func (s *PgStore) Upsert(ctx context.Context, id string, chatID int64, firstName, lastName string) (*User, error) {
	now := time.Now().Truncate(time.Microsecond)
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, chat_id, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, updated_at = EXCLUDED.updated_at
		RETURNING id, chat_id, first_name, last_name, display_name, created_at, updated_at`,
		id, chatID, firstName, lastName, now).
		Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", id, err)
	}
	return &u, nil
}

// Get returns a user by id.
func (s *PgStore) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, chat_id, first_name, last_name, display_name, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// SetDisplayName overwrites the user's display name.
func (s *PgStore) SetDisplayName(ctx context.Context, id, name string) (*User, error) {
	now := time.Now().Truncate(time.Microsecond)
	var u User
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, chat_id, first_name, last_name, display_name, created_at, updated_at`,
		name, now, id).
		Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set display name for %s: %w", id, err)
	}
	return &u, nil
}

// List returns all users.
func (s *PgStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, first_name, last_name, display_name, created_at, updated_at
		FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.ChatID, &u.FirstName, &u.LastName, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
