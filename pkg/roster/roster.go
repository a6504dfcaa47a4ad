// Package roster implements the rotation engine: the task lifecycle
// state machine (uninitialized until started, then rotating forever),
// pool membership, and status reporting. All state lives in the task
// and user stores; the engine holds no long-lived task references and
// follows a read-modify-write cycle guarded by the store's version
// check.
package roster

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/history"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
	"github.com/itamarbiton/klinika-dw-bot/pkg/user"
)

var (
	// ErrNotStarted is returned when a rotation is requested on a task
	// that has never been started.
	ErrNotStarted = errors.New("task rotation not started")

	// ErrNoAssignees is returned when starting a task with an empty pool.
	ErrNoAssignees = errors.New("task has no assignees")
)

// saveAttempts bounds the re-read-and-retry cycle on version conflicts.
const saveAttempts = 3

// Statuses reported per task by the fan-out operations.
const (
	StatusAdvanced = "advanced"
	StatusNotified = "notified"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Outcome is the per-task result of a fan-out operation. One task
// failing never blocks its siblings; callers get one Outcome per task.
type Outcome struct {
	TaskID   int    `json:"task_id"`
	TaskName string `json:"task_name"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Engine drives task rotations against the injected stores.
type Engine struct {
	tasks   task.Store
	users   user.Store
	history history.Store
	log     *logrus.Entry
}

// New creates an Engine.
func New(tasks task.Store, users user.Store, hist history.Store, log *logrus.Entry) *Engine {
	return &Engine{tasks: tasks, users: users, history: hist, log: log}
}

// CurrentAssignee returns the user id currently on duty for the task.
func (e *Engine) CurrentAssignee(t *task.Task) (string, error) {
	if !t.Started() {
		return "", ErrNotStarted
	}
	return t.Rotation[t.CurrentIndex], nil
}

// Advance moves the task's pointer one step forward, wrapping at the
// end of the rotation. A task that was never started is returned
// unchanged and logged as skipped.
func (e *Engine) Advance(ctx context.Context, t *task.Task) (*task.Task, error) {
	if !t.Started() {
		e.log.WithField("task_id", t.ID).Info("skipping rotation, task not started")
		return t, nil
	}

	saved, err := e.apply(ctx, t, func(cur *task.Task) {
		cur.CurrentIndex = (cur.CurrentIndex + 1) % len(cur.Rotation)
		cur.RotateLastUpdate = time.Now()
	})
	if err != nil {
		return nil, err
	}

	onDuty := saved.Rotation[saved.CurrentIndex]
	e.record(ctx, saved, onDuty, history.ActionAdvanced)
	e.log.WithFields(logrus.Fields{
		"task_id":  saved.ID,
		"assignee": onDuty,
	}).Info("rotated task")
	return saved, nil
}

// AdvanceAll advances every task in the store independently. Per-task
// failures are reported in the outcomes, never aggregated into one
// failure.
func (e *Engine) AdvanceAll(ctx context.Context) ([]Outcome, error) {
	tasks, err := e.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		out := Outcome{TaskID: t.ID, TaskName: t.Name}
		switch saved, err := e.Advance(ctx, t); {
		case err != nil:
			e.log.WithError(err).WithField("task_id", t.ID).Error("failed to rotate task")
			out.Status = StatusFailed
			out.Error = err.Error()
		case !saved.Started():
			out.Status = StatusSkipped
		default:
			out.Status = StatusAdvanced
			out.Assignee = saved.Rotation[saved.CurrentIndex]
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// apply runs mutate on the task and saves it, re-reading and retrying
// a bounded number of times when a concurrent writer won the version
// race. mutate must be re-applicable to a fresh read.
func (e *Engine) apply(ctx context.Context, t *task.Task, mutate func(*task.Task)) (*task.Task, error) {
	cur := t
	for attempt := 1; ; attempt++ {
		mutate(cur)
		saved, err := e.tasks.Save(ctx, cur)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, task.ErrConflict) || attempt == saveAttempts {
			return nil, err
		}
		e.log.WithField("task_id", t.ID).Warn("version conflict, re-reading task")
		cur, err = e.tasks.ByID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
	}
}

// record appends a history entry. History is best-effort; a failed
// append is logged and never fails the operation that produced it.
func (e *Engine) record(ctx context.Context, t *task.Task, userID, action string) {
	if e.history == nil {
		return
	}
	if _, err := e.history.Append(ctx, t.Key, t.ID, userID, action); err != nil {
		e.log.WithError(err).WithField("task_id", t.ID).Warn("failed to append history entry")
	}
}

// sortedIDs returns the pool membership in stable order, so a restart
// reproduces the same rotation for the same pool.
func sortedIDs(assignees map[string]bool) []string {
	ids := make([]string, 0, len(assignees))
	for id, ok := range assignees {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
