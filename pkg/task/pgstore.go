package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store. The storage key (key
// column) and the logical task id (id column) are distinct on purpose:
// commands address tasks by the small integer id, the key is opaque.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			key                TEXT PRIMARY KEY,
			id                 INTEGER NOT NULL UNIQUE,
			name               TEXT NOT NULL,
			assignees          JSONB NOT NULL DEFAULT '{}',
			rotation           TEXT[],
			current_index      INTEGER NOT NULL DEFAULT 0,
			rotate_last_update TIMESTAMPTZ,
			version            BIGINT NOT NULL DEFAULT 1,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

const taskColumns = `key, id, name, assignees, rotation, current_index, rotate_last_update, version, created_at`

// Create inserts a new task definition.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	t.Key = uuid.Must(uuid.NewV7()).String()
	t.Version = 1
	t.CreatedAt = time.Now().Truncate(time.Microsecond)
	if t.Assignees == nil {
		t.Assignees = map[string]bool{}
	}

	assigneesJSON, err := json.Marshal(t.Assignees)
	if err != nil {
		return nil, fmt.Errorf("marshal assignees: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (key, id, name, assignees, rotation, current_index, rotate_last_update, version, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)`,
		t.Key, t.ID, t.Name, string(assigneesJSON), t.Rotation, t.CurrentIndex, nilIfZeroTime(t.RotateLastUpdate), t.Version, t.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create task %d: %w", t.ID, ErrDuplicateID)
	}
	if err != nil {
		return nil, fmt.Errorf("create task %d: %w", t.ID, err)
	}
	return t, nil
}

// ByID returns the task with the given logical id.
func (s *PgStore) ByID(ctx context.Context, id int) (*Task, error) {
	t, err := s.scanOne(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task by id %d: %w", id, err)
	}
	return t, nil
}

// List returns all tasks.
func (s *PgStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

// Save writes the whole record back, guarded by a compare-and-swap on
// the version read. A stale version leaves the row untouched and
// surfaces ErrConflict so the caller can re-read and retry.
func (s *PgStore) Save(ctx context.Context, t *Task) (*Task, error) {
	assigneesJSON, err := json.Marshal(t.Assignees)
	if err != nil {
		return nil, fmt.Errorf("marshal assignees: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET name = $1, assignees = $2::jsonb, rotation = $3, current_index = $4,
		    rotate_last_update = $5, version = version + 1
		WHERE key = $6 AND version = $7`,
		t.Name, string(assigneesJSON), t.Rotation, t.CurrentIndex,
		nilIfZeroTime(t.RotateLastUpdate), t.Key, t.Version)
	if err != nil {
		return nil, fmt.Errorf("save task %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("save task %d: %w", t.ID, ErrConflict)
	}
	t.Version++
	return t, nil
}

func (s *PgStore) scanOne(ctx context.Context, query string, args ...any) (*Task, error) {
	return scanTask(s.pool.QueryRow(ctx, query, args...))
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var assigneesJSON []byte
	var lastUpdate *time.Time
	err := row.Scan(&t.Key, &t.ID, &t.Name, &assigneesJSON, &t.Rotation, &t.CurrentIndex, &lastUpdate, &t.Version, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assigneesJSON, &t.Assignees); err != nil {
		t.Assignees = map[string]bool{}
	}
	if lastUpdate != nil {
		t.RotateLastUpdate = *lastUpdate
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
