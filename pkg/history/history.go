// Package history keeps an append-only log of rotation activity so
// operators can answer "who was on duty when" after the fact. Writes
// are best-effort: the engine logs a failed append and moves on rather
// than failing the rotation itself.
package history

import (
	"context"
	"time"
)

// Actions recorded per entry.
const (
	ActionStarted  = "started"
	ActionAdvanced = "advanced"
	ActionNotified = "notified"
)

// Entry is one rotation event for a task.
type Entry struct {
	ID        string    `json:"id"`
	TaskKey   string    `json:"task_key"`
	TaskID    int       `json:"task_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the contract for history persistence.
type Store interface {
	// Append records one rotation event.
	Append(ctx context.Context, taskKey string, taskID int, userID, action string) (*Entry, error)

	// ByTask returns the most recent entries for a logical task id,
	// newest first.
	ByTask(ctx context.Context, taskID, limit int) ([]Entry, error)

	// EnsureTable creates the history table if it doesn't exist.
	EnsureTable(ctx context.Context) error
}
