package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/roster"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
	"github.com/itamarbiton/klinika-dw-bot/pkg/user"
)

// Reply texts for the commands. Formatting and localization live at
// this boundary; the engine only ever hands back data.
const (
	welcomeText = "welcome to the duty roster bot! send /tasks to see the available tasks"

	notRegisteredText = "you are not registered yet, send /start first"
	unknownCmdText    = "unknown command, send /tasks to see the available tasks"
	noTasksText       = "no tasks have been defined yet"
	taskNotFoundText  = "no task with that number, send /tasks to see the available tasks"
	missingTaskIDText = "please add a task number, send /tasks to see the available tasks"
	missingNameText   = "please add the new name after /rename"
	internalErrText   = "something went wrong, please try again later"
)

// Dispatcher maps inbound commands onto the stores and the rotation
// engine, converting every failure into a reply plus a log record. No
// single command ever takes the dispatcher down.
type Dispatcher struct {
	users  user.Store
	tasks  task.Store
	engine *roster.Engine
	send   roster.Sender
	log    *logrus.Entry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(users user.Store, tasks task.Store, engine *roster.Engine, send roster.Sender, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{users: users, tasks: tasks, engine: engine, send: send, log: log}
}

// Dispatch resolves a command and returns the reply to send back.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) string {
	log := d.log.WithFields(logrus.Fields{"command": cmd.Name, "user_id": cmd.From.ID})

	switch cmd.Name {
	case "start":
		return d.handleStart(ctx, cmd, log)
	case "tasks":
		return d.handleListTasks(ctx, log)
	case "whoami":
		return d.handleWhoami(ctx, cmd, log)
	case "rename":
		return d.handleRename(ctx, cmd, log)
	case "assignees":
		return d.handleAssignees(ctx, cmd, log)
	case "join":
		return d.handleJoin(ctx, cmd, log)
	case "summary":
		return d.handleSummary(ctx, log)
	case "init":
		return d.handleInit(ctx, cmd, log)
	case "rotate":
		return d.handleRotate(ctx, log)
	case "inform":
		return d.handleInform(ctx, log)
	default:
		return unknownCmdText
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, cmd Command, log *logrus.Entry) string {
	if _, err := d.users.Upsert(ctx, cmd.From.ID, cmd.From.ChatID, cmd.From.FirstName, cmd.From.LastName); err != nil {
		log.WithError(err).Error("failed to register user")
		return internalErrText
	}
	return welcomeText
}

func (d *Dispatcher) handleListTasks(ctx context.Context, log *logrus.Entry) string {
	tasks, err := d.tasks.List(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list tasks")
		return internalErrText
	}
	if len(tasks) == 0 {
		return noTasksText
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("(%d) %s", t.ID, t.Name))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) handleWhoami(ctx context.Context, cmd Command, log *logrus.Entry) string {
	u, err := d.users.Get(ctx, cmd.From.ID)
	if errors.Is(err, user.ErrNotFound) {
		return notRegisteredText
	}
	if err != nil {
		log.WithError(err).Error("failed to get user")
		return internalErrText
	}
	return fmt.Sprintf("your display name is %s", u.Name())
}

func (d *Dispatcher) handleRename(ctx context.Context, cmd Command, log *logrus.Entry) string {
	name := strings.TrimSpace(strings.Join(cmd.Args, " "))
	if name == "" {
		log.Info("rename without a name")
		return missingNameText
	}

	u, err := d.users.SetDisplayName(ctx, cmd.From.ID, name)
	if errors.Is(err, user.ErrNotFound) {
		return notRegisteredText
	}
	if err != nil {
		log.WithError(err).Error("failed to rename user")
		return internalErrText
	}
	return fmt.Sprintf("your name was changed to %s", u.DisplayName)
}

func (d *Dispatcher) handleAssignees(ctx context.Context, cmd Command, log *logrus.Entry) string {
	t, reply := d.taskFromArgs(ctx, cmd.Args, log)
	if t == nil {
		return reply
	}

	names := d.engine.DescribeAssignees(ctx, t)
	if len(names) == 0 {
		return fmt.Sprintf("no one has joined %q yet", t.Name)
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, "👷 "+name)
	}
	return fmt.Sprintf("assignees for %q:\n%s", t.Name, strings.Join(lines, "\n"))
}

func (d *Dispatcher) handleJoin(ctx context.Context, cmd Command, log *logrus.Entry) string {
	t, reply := d.taskFromArgs(ctx, cmd.Args, log)
	if t == nil {
		return reply
	}

	if _, err := d.engine.Join(ctx, t, cmd.From.ID); err != nil {
		log.WithError(err).WithField("task_id", t.ID).Error("failed to join task")
		return internalErrText
	}
	return fmt.Sprintf("you joined %q", t.Name)
}

func (d *Dispatcher) handleSummary(ctx context.Context, log *logrus.Entry) string {
	tasks, err := d.tasks.List(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list tasks")
		return internalErrText
	}
	if len(tasks) == 0 {
		return noTasksText
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	lines := []string{"today's duty summary:"}
	for i := range tasks {
		lines = append(lines, d.engine.DescribeTask(ctx, &tasks[i]))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) handleInit(ctx context.Context, cmd Command, log *logrus.Entry) string {
	t, reply := d.taskFromArgs(ctx, cmd.Args, log)
	if t == nil {
		return reply
	}

	if _, err := d.engine.Start(ctx, t); err != nil {
		if errors.Is(err, roster.ErrNoAssignees) {
			return fmt.Sprintf("can't start %q, no one has joined it yet", t.Name)
		}
		log.WithError(err).WithField("task_id", t.ID).Error("failed to start task")
		return internalErrText
	}
	return fmt.Sprintf("%q was started, duty rotation is on", t.Name)
}

func (d *Dispatcher) handleRotate(ctx context.Context, log *logrus.Entry) string {
	outcomes, err := d.engine.AdvanceAll(ctx)
	if err != nil {
		log.WithError(err).Error("rotation pass failed")
		return internalErrText
	}
	return summarizeOutcomes("rotated", outcomes)
}

func (d *Dispatcher) handleInform(ctx context.Context, log *logrus.Entry) string {
	outcomes, err := d.engine.NotifyAll(ctx, d.send)
	if err != nil {
		log.WithError(err).Error("reminder pass failed")
		return internalErrText
	}
	return summarizeOutcomes("notified", outcomes)
}

// taskFromArgs parses the task number argument and loads the task. On
// failure it returns a nil task and the reply to send instead.
func (d *Dispatcher) taskFromArgs(ctx context.Context, args []string, log *logrus.Entry) (*task.Task, string) {
	if len(args) == 0 {
		log.Info("command without a task number")
		return nil, missingTaskIDText
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		log.WithField("arg", args[0]).Info("non-numeric task number")
		return nil, missingTaskIDText
	}

	t, err := d.tasks.ByID(ctx, id)
	if errors.Is(err, task.ErrNotFound) {
		return nil, taskNotFoundText
	}
	if err != nil {
		log.WithError(err).WithField("task_id", id).Error("failed to get task")
		return nil, internalErrText
	}
	return t, ""
}

func summarizeOutcomes(verb string, outcomes []roster.Outcome) string {
	var done, skipped, failed int
	for _, o := range outcomes {
		switch o.Status {
		case roster.StatusSkipped:
			skipped++
		case roster.StatusFailed:
			failed++
		default:
			done++
		}
	}
	return fmt.Sprintf("%s %d tasks (%d skipped, %d failed)", verb, done, skipped, failed)
}
