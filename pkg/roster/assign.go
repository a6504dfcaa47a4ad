package roster

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/history"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
)

// Start snapshots the current pool into a fresh rotation and points it
// at the first assignee. Calling it on an already-rotating task resets
// the cycle from the pool as it stands now; it never merges with the
// old rotation. An empty pool fails with ErrNoAssignees and leaves the
// task untouched.
func (e *Engine) Start(ctx context.Context, t *task.Task) (*task.Task, error) {
	if len(t.AssigneeIDs()) == 0 {
		return nil, ErrNoAssignees
	}

	saved, err := e.apply(ctx, t, func(cur *task.Task) {
		cur.Rotation = sortedIDs(cur.Assignees)
		cur.CurrentIndex = 0
		cur.RotateLastUpdate = time.Now()
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, saved, saved.Rotation[0], history.ActionStarted)
	e.log.WithField("task_id", saved.ID).Info("started task rotation")
	return saved, nil
}

// Join adds a user to the task's pool. Joining twice is a no-op. The
// pool change does not touch an existing rotation; it takes effect the
// next time the task is started.
func (e *Engine) Join(ctx context.Context, t *task.Task, userID string) (*task.Task, error) {
	if t.Assignees[userID] {
		return t, nil
	}

	saved, err := e.apply(ctx, t, func(cur *task.Task) {
		if cur.Assignees == nil {
			cur.Assignees = map[string]bool{}
		}
		cur.Assignees[userID] = true
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"task_id": saved.ID, "user_id": userID}).Info("user joined task")
	return saved, nil
}
