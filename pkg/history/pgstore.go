package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed history store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the history table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rotation_history (
			id         TEXT PRIMARY KEY,
			task_key   TEXT NOT NULL,
			task_id    INTEGER NOT NULL,
			user_id    TEXT NOT NULL,
			action     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_rotation_history_task ON rotation_history(task_id, created_at DESC)`)
	return err
}

// Append records one rotation event.
func (s *PgStore) Append(ctx context.Context, taskKey string, taskID int, userID, action string) (*Entry, error) {
	e := &Entry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TaskKey:   taskKey,
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rotation_history (id, task_key, task_id, user_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.TaskKey, e.TaskID, e.UserID, e.Action, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append history for task %d: %w", taskID, err)
	}
	return e, nil
}

// ByTask returns the most recent entries for a task, newest first.
func (s *PgStore) ByTask(ctx context.Context, taskID, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_key, task_id, user_id, action, created_at
		FROM rotation_history WHERE task_id = $1
		ORDER BY created_at DESC LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("history by task %d: %w", taskID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TaskKey, &e.TaskID, &e.UserID, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
