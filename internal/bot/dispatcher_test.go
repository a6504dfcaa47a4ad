package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/roster"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
	"github.com/itamarbiton/klinika-dw-bot/pkg/user"
)

// --- Mock stores ---

type mockTaskStore struct {
	tasks map[string]*task.Task
}

func newMockTaskStore(tasks ...*task.Task) *mockTaskStore {
	s := &mockTaskStore{tasks: make(map[string]*task.Task)}
	for _, t := range tasks {
		if t.Version == 0 {
			t.Version = 1
		}
		s.tasks[t.Key] = t
	}
	return s
}

func (s *mockTaskStore) List(_ context.Context) ([]task.Task, error) {
	var result []task.Task
	for _, t := range s.tasks {
		result = append(result, *t)
	}
	return result, nil
}

func (s *mockTaskStore) ByID(_ context.Context, id int) (*task.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, task.ErrNotFound
}

func (s *mockTaskStore) Create(_ context.Context, t *task.Task) (*task.Task, error) {
	t.Key = fmt.Sprintf("key-%d", t.ID)
	t.Version = 1
	s.tasks[t.Key] = t
	return t, nil
}

func (s *mockTaskStore) Save(_ context.Context, t *task.Task) (*task.Task, error) {
	stored, ok := s.tasks[t.Key]
	if !ok {
		return nil, task.ErrNotFound
	}
	if stored.Version != t.Version {
		return nil, task.ErrConflict
	}
	t.Version++
	cp := *t
	s.tasks[t.Key] = &cp
	return &cp, nil
}

func (s *mockTaskStore) EnsureTable(_ context.Context) error { return nil }

type mockUserStore struct {
	users map[string]*user.User
}

func newMockUserStore(users ...*user.User) *mockUserStore {
	s := &mockUserStore{users: make(map[string]*user.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *mockUserStore) Upsert(_ context.Context, id string, chatID int64, firstName, lastName string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		u = &user.User{ID: id, ChatID: chatID, FirstName: firstName, LastName: lastName}
		s.users[id] = u
		return u, nil
	}
	u.ChatID = chatID
	u.FirstName = firstName
	u.LastName = lastName
	return u, nil
}

func (s *mockUserStore) Get(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (s *mockUserStore) SetDisplayName(_ context.Context, id, name string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.DisplayName = name
	return u, nil
}

func (s *mockUserStore) List(_ context.Context) ([]user.User, error) { return nil, nil }
func (s *mockUserStore) EnsureTable(_ context.Context) error         { return nil }

type mockSender struct {
	sent []string
}

func (s *mockSender) Send(_ context.Context, _ int64, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestDispatcher(users *mockUserStore, tasks *mockTaskStore) *Dispatcher {
	engine := roster.New(tasks, users, nil, testLogger())
	return NewDispatcher(users, tasks, engine, &mockSender{}, testLogger())
}

func from() From {
	return From{ID: "7", ChatID: 77, FirstName: "Dana", LastName: "Levi"}
}

// --- Tests ---

func TestListTasksOrderedByID(t *testing.T) {
	tasks := newMockTaskStore(
		&task.Task{Key: "k3", ID: 3, Name: "Trash"},
		&task.Task{Key: "k1", ID: 1, Name: "Dishes"},
		&task.Task{Key: "k2", ID: 2, Name: "Laundry"},
	)
	d := newTestDispatcher(newMockUserStore(), tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "tasks", From: from()})
	want := "(1) Dishes\n(2) Laundry\n(3) Trash"
	if reply != want {
		t.Errorf("got %q, want %q", reply, want)
	}
}

func TestStartRegistersSender(t *testing.T) {
	users := newMockUserStore()
	d := newTestDispatcher(users, newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "start", From: from()})
	if reply != welcomeText {
		t.Errorf("got %q, want welcome text", reply)
	}
	u, err := users.Get(context.Background(), "7")
	if err != nil {
		t.Fatalf("user was not registered: %v", err)
	}
	if u.ChatID != 77 || u.FirstName != "Dana" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestStartPreservesDisplayName(t *testing.T) {
	users := newMockUserStore(&user.User{ID: "7", ChatID: 77, FirstName: "Dana", DisplayName: "Dee"})
	d := newTestDispatcher(users, newMockTaskStore())

	d.Dispatch(context.Background(), Command{Name: "start", From: from()})
	u, _ := users.Get(context.Background(), "7")
	if u.DisplayName != "Dee" {
		t.Errorf("start clobbered display name: %+v", u)
	}
}

func TestWhoamiUnregistered(t *testing.T) {
	d := newTestDispatcher(newMockUserStore(), newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "whoami", From: from()})
	if reply != notRegisteredText {
		t.Errorf("got %q, want not-registered text", reply)
	}
}

func TestWhoamiResolvesName(t *testing.T) {
	users := newMockUserStore(&user.User{ID: "7", FirstName: "Dana", DisplayName: "Dee"})
	d := newTestDispatcher(users, newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "whoami", From: from()})
	if !strings.Contains(reply, "Dee") {
		t.Errorf("got %q, want it to contain the display name", reply)
	}
}

func TestRenameWithoutName(t *testing.T) {
	users := newMockUserStore(&user.User{ID: "7", FirstName: "Dana"})
	d := newTestDispatcher(users, newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "rename", From: from()})
	if reply != missingNameText {
		t.Errorf("got %q, want missing-name text", reply)
	}
}

func TestRenameJoinsTokens(t *testing.T) {
	users := newMockUserStore(&user.User{ID: "7", FirstName: "Dana"})
	d := newTestDispatcher(users, newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "rename", Args: []string{"Dana", "the", "Great"}, From: from()})
	if !strings.Contains(reply, "Dana the Great") {
		t.Errorf("got %q", reply)
	}
	u, _ := users.Get(context.Background(), "7")
	if u.DisplayName != "Dana the Great" {
		t.Errorf("display name not updated: %+v", u)
	}
}

func TestJoinUnknownTask(t *testing.T) {
	d := newTestDispatcher(newMockUserStore(), newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "join", Args: []string{"9"}, From: from()})
	if reply != taskNotFoundText {
		t.Errorf("got %q, want task-not-found text", reply)
	}
}

func TestJoinInvalidTaskID(t *testing.T) {
	d := newTestDispatcher(newMockUserStore(), newMockTaskStore())

	for _, args := range [][]string{nil, {"abc"}} {
		reply := d.Dispatch(context.Background(), Command{Name: "join", Args: args, From: from()})
		if reply != missingTaskIDText {
			t.Errorf("args %v: got %q, want missing-task-id text", args, reply)
		}
	}
}

func TestJoinAddsSender(t *testing.T) {
	tasks := newMockTaskStore(&task.Task{Key: "k1", ID: 1, Name: "Dishes", Assignees: map[string]bool{}})
	d := newTestDispatcher(newMockUserStore(), tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "join", Args: []string{"1"}, From: from()})
	if !strings.Contains(reply, "Dishes") {
		t.Errorf("got %q", reply)
	}
	stored, _ := tasks.ByID(context.Background(), 1)
	if !stored.Assignees["7"] {
		t.Errorf("sender not in pool: %+v", stored.Assignees)
	}
}

func TestInitWithoutAssignees(t *testing.T) {
	tasks := newMockTaskStore(&task.Task{Key: "k1", ID: 1, Name: "Dishes", Assignees: map[string]bool{}})
	d := newTestDispatcher(newMockUserStore(), tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "init", Args: []string{"1"}, From: from()})
	if !strings.Contains(reply, "no one has joined") {
		t.Errorf("got %q", reply)
	}
}

func TestAssigneesDanglingOnly(t *testing.T) {
	tasks := newMockTaskStore(&task.Task{Key: "k1", ID: 1, Name: "Dishes", Assignees: map[string]bool{"ghost": true}})
	d := newTestDispatcher(newMockUserStore(), tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "assignees", Args: []string{"1"}, From: from()})
	if !strings.Contains(reply, "no one has joined") {
		t.Errorf("dangling-only pool should read as empty, got %q", reply)
	}
}

func TestSummaryListsEveryTask(t *testing.T) {
	users := newMockUserStore(&user.User{ID: "a", FirstName: "Alice"})
	tasks := newMockTaskStore(
		&task.Task{Key: "k2", ID: 2, Name: "Laundry"},
		&task.Task{Key: "k1", ID: 1, Name: "Dishes", Rotation: []string{"a"}, CurrentIndex: 0},
	)
	d := newTestDispatcher(users, tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "summary", From: from()})
	lines := strings.Split(reply, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus one per task:\n%s", len(lines), reply)
	}
	if !strings.Contains(lines[1], "Dishes") || !strings.Contains(lines[1], "Alice") {
		t.Errorf("active task line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "Laundry") || !strings.Contains(lines[2], "not been started") {
		t.Errorf("idle task line: %q", lines[2])
	}
}

func TestUnknownCommand(t *testing.T) {
	d := newTestDispatcher(newMockUserStore(), newMockTaskStore())

	reply := d.Dispatch(context.Background(), Command{Name: "dance", From: from()})
	if reply != unknownCmdText {
		t.Errorf("got %q, want unknown-command text", reply)
	}
}

func TestRotateCommand(t *testing.T) {
	tasks := newMockTaskStore(
		&task.Task{Key: "k1", ID: 1, Name: "Dishes", Rotation: []string{"a", "b"}, CurrentIndex: 0},
		&task.Task{Key: "k2", ID: 2, Name: "Laundry"},
	)
	d := newTestDispatcher(newMockUserStore(), tasks)

	reply := d.Dispatch(context.Background(), Command{Name: "rotate", From: from()})
	if reply != "rotated 1 tasks (1 skipped, 0 failed)" {
		t.Errorf("got %q", reply)
	}
	stored, _ := tasks.ByID(context.Background(), 1)
	if stored.CurrentIndex != 1 {
		t.Errorf("rotation did not advance: %+v", stored)
	}
}
