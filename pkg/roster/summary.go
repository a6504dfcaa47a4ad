package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/itamarbiton/klinika-dw-bot/pkg/history"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
	"github.com/itamarbiton/klinika-dw-bot/pkg/user"
)

// unknownAssignee labels a rotation entry whose user record is gone.
// A dangling reference degrades the report, it never fails it.
const unknownAssignee = "unknown user"

// Notification is a duty reminder ready for the transport to deliver.
type Notification struct {
	User *user.User
	Text string
}

// Sender delivers a message to a chat address. Implemented by the
// Telegram client; tests substitute their own.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// DescribeTask renders one status line for the task: a "not started"
// marker for tasks without a rotation, otherwise the resolved name of
// whoever is on duty.
func (e *Engine) DescribeTask(ctx context.Context, t *task.Task) string {
	if !t.Started() {
		return fmt.Sprintf("🔴 task %q has not been started yet", t.Name)
	}

	name := unknownAssignee
	id := t.Rotation[t.CurrentIndex]
	u, err := e.users.Get(ctx, id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		e.log.WithField("user_id", id).Warn("rotation references a missing user")
	case err != nil:
		e.log.WithError(err).WithField("user_id", id).Error("failed to resolve assignee")
	default:
		name = u.Name()
	}
	return fmt.Sprintf("⚪️ %s is on duty for %q today", name, t.Name)
}

// DescribeAssignees resolves the task's pool to display names, one
// entry per resolvable member. Ids without a user record are dropped.
func (e *Engine) DescribeAssignees(ctx context.Context, t *task.Task) []string {
	var lines []string
	for _, id := range sortedIDs(t.Assignees) {
		u, err := e.users.Get(ctx, id)
		if err != nil {
			e.log.WithError(err).WithField("user_id", id).Warn("dropping unresolvable assignee")
			continue
		}
		lines = append(lines, u.Name())
	}
	return lines
}

// NotifyCurrentAssignee computes the duty reminder for the task's
// current assignee. Tasks without a rotation fail with ErrNotStarted;
// NotifyAll treats that as a skip.
func (e *Engine) NotifyCurrentAssignee(ctx context.Context, t *task.Task) (*Notification, error) {
	id, err := e.CurrentAssignee(t)
	if err != nil {
		return nil, err
	}
	u, err := e.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve assignee %s: %w", id, err)
	}
	return &Notification{
		User: u,
		Text: fmt.Sprintf("it's your turn on duty for %q today", t.Name),
	}, nil
}

// NotifyAll sends a duty reminder to every active task's current
// assignee. Unstarted tasks are skipped; failures are recorded per
// task and never stop the batch.
func (e *Engine) NotifyAll(ctx context.Context, send Sender) ([]Outcome, error) {
	tasks, err := e.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		outcomes = append(outcomes, e.notifyOne(ctx, t, send))
	}
	return outcomes, nil
}

func (e *Engine) notifyOne(ctx context.Context, t *task.Task, send Sender) Outcome {
	out := Outcome{TaskID: t.ID, TaskName: t.Name}

	n, err := e.NotifyCurrentAssignee(ctx, t)
	if errors.Is(err, ErrNotStarted) {
		e.log.WithField("task_id", t.ID).Info("skipping reminder, task not started")
		out.Status = StatusSkipped
		return out
	}
	if err == nil {
		err = send.Send(ctx, n.User.ChatID, n.Text)
	}
	if err != nil {
		e.log.WithError(err).WithField("task_id", t.ID).Error("failed to notify assignee")
		out.Status = StatusFailed
		out.Error = err.Error()
		return out
	}

	out.Status = StatusNotified
	out.Assignee = n.User.ID
	e.record(ctx, t, n.User.ID, history.ActionNotified)
	return out
}
