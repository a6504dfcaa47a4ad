package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no task carries the given logical id.
	ErrNotFound = errors.New("task not found")

	// ErrConflict is returned when a write lost the optimistic-concurrency
	// race: the stored version no longer matches the one that was read.
	ErrConflict = errors.New("task version conflict")

	// ErrDuplicateID is returned when a created task reuses a logical id.
	ErrDuplicateID = errors.New("task id already in use")
)

// Task is one duty in the roster. Key is the opaque storage key; ID is
// the logical, caller-assigned task number users refer to in commands.
//
// Assignees is the volunteer pool as presence flags keyed by user id.
// Rotation is a snapshot of the pool taken when the task was started;
// nil means the task has never been started. CurrentIndex points into
// Rotation and is meaningful only when Rotation is non-nil.
type Task struct {
	Key              string          `json:"key"`
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Assignees        map[string]bool `json:"assignees"`
	Rotation         []string        `json:"rotation,omitempty"`
	CurrentIndex     int             `json:"current_index"`
	RotateLastUpdate time.Time       `json:"rotate_last_update"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Started reports whether the task has an active rotation.
func (t *Task) Started() bool {
	return t.Rotation != nil
}

// AssigneeIDs returns the pool membership.
func (t *Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.Assignees))
	for id, ok := range t.Assignees {
		if ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Store is the contract for task persistence. Save writes the whole
// record back under a compare-and-swap on Version; callers follow a
// read-modify-write cycle and retry on ErrConflict.
type Store interface {
	// List returns all tasks in no particular order.
	List(ctx context.Context) ([]Task, error)

	// ByID returns the task with the given logical id, or ErrNotFound.
	ByID(ctx context.Context, id int) (*Task, error)

	// Create inserts a new task definition, assigning its storage key.
	// Reusing a logical id fails with ErrDuplicateID.
	Create(ctx context.Context, t *Task) (*Task, error)

	// Save overwrites the record at t.Key if the stored version still
	// matches t.Version, then bumps the version. Stale writes fail
	// with ErrConflict.
	Save(ctx context.Context, t *Task) (*Task, error)

	// EnsureTable creates the tasks table if it doesn't exist.
	EnsureTable(ctx context.Context) error
}
