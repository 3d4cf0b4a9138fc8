package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/taskmaster/internal/depgraph"
	"github.com/papapumpkin/taskmaster/internal/store"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
	"github.com/papapumpkin/taskmaster/internal/telemetry"
)

const doc = `{"tasks": [
  {"id": 1, "title": "setup", "status": "done", "priority": "low", "dependencies": []},
  {"id": 2, "title": "api", "status": "pending", "priority": "high", "dependencies": [1]},
  {"id": 3, "title": "ui", "status": "pending", "dependencies": [2], "subtasks": [
    {"id": 1, "title": "layout", "status": "pending", "dependencies": []},
    {"id": 2, "title": "wire", "status": "pending", "dependencies": ["3.1"]}
  ]}
]}`

// memStore keeps a collection in memory and counts saves.
type memStore struct {
	c       *tasks.Collection
	saves   int
	saveErr error
}

func newMemStore(t *testing.T, doc string) *memStore {
	t.Helper()
	c, err := tasks.Decode([]byte(doc), "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return &memStore{c: c}
}

func (s *memStore) Load(context.Context) (*tasks.Collection, error) { return s.c.Clone(), nil }

func (s *memStore) Save(_ context.Context, c *tasks.Collection) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.c = c.Clone()
	return nil
}

func (s *memStore) Location() string { return "mem://tasks.json" }

var _ store.Store = (*memStore)(nil)

type countingHook struct {
	calls int
	err   error
}

func (h *countingHook) OnMutation(path, dir string) error {
	h.calls++
	return h.err
}

func newManager(t *testing.T, doc string) (*Manager, *memStore, *countingHook) {
	t.Helper()
	st := newMemStore(t, doc)
	hook := &countingHook{}
	return &Manager{Store: st, Hook: hook, TasksDir: t.TempDir(), Tag: "master"}, st, hook
}

func TestAddDependency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		task, dep   string
		wantChanged bool
		wantCode    tasks.Code
	}{
		{name: "new edge", task: "3", dep: "1", wantChanged: true},
		{name: "existing edge", task: "2", dep: "1"},
		{name: "cycle", task: "1", dep: "3", wantCode: tasks.CodeCircularDependency},
		{name: "malformed id", task: "x", dep: "1", wantCode: tasks.CodeInvalidIDFormat},
		{name: "malformed dependency", task: "2", dep: "1.x", wantCode: tasks.CodeInvalidIDFormat},
		{name: "empty id", task: " ", dep: "1", wantCode: tasks.CodeInputValidation},
		{name: "missing dependency", task: "2", dep: "9", wantCode: tasks.CodeDependencyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, st, hook := newManager(t, doc)

			res, err := m.AddDependency(context.Background(), tt.task, tt.dep)
			if got := tasks.CodeOf(err); got != tt.wantCode {
				t.Fatalf("code = %q (%v), want %q", got, err, tt.wantCode)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
			wantWrites := 0
			if tt.wantChanged {
				wantWrites = 1
			}
			if st.saves != wantWrites || hook.calls != wantWrites {
				t.Errorf("saves = %d, hook calls = %d, want %d each", st.saves, hook.calls, wantWrites)
			}
		})
	}
}

func TestRemoveDependency(t *testing.T) {
	t.Parallel()
	m, st, hook := newManager(t, doc)
	ctx := context.Background()

	res, err := m.RemoveDependency(ctx, "3.2", "3.1")
	if err != nil || !res.Changed {
		t.Fatalf("RemoveDependency = %+v, %v", res, err)
	}
	if got := st.c.Task(3).Subtask(2).Dependencies; len(got) != 0 {
		t.Errorf("3.2 dependencies = %v, want empty", got)
	}

	res, err = m.RemoveDependency(ctx, "3.2", "3.1")
	if err != nil || res.Changed {
		t.Errorf("second RemoveDependency = %+v, %v; want no-op", res, err)
	}
	if st.saves != 1 || hook.calls != 1 {
		t.Errorf("saves = %d, hook calls = %d, want 1 each", st.saves, hook.calls)
	}

	if _, err := m.RemoveDependency(ctx, "7", "1"); !errors.Is(err, tasks.ErrTaskNotFound) {
		t.Errorf("missing task error = %v", err)
	}
}

func TestValidateAndFix(t *testing.T) {
	t.Parallel()
	m, st, hook := newManager(t, `{"tasks": [
	  {"id": 1, "title": "one", "dependencies": [1, 7]},
	  {"id": 2, "title": "two", "dependencies": [1]}
	]}`)
	ctx := context.Background()

	report, err := m.ValidateDependencies(ctx)
	if err != nil {
		t.Fatalf("ValidateDependencies: %v", err)
	}
	if report.Valid || len(report.Issues) != 2 {
		t.Fatalf("report = %+v, want two issues", report)
	}
	if st.saves != 0 {
		t.Error("validation saved the collection")
	}

	fix, err := m.FixDependencies(ctx)
	if err != nil {
		t.Fatalf("FixDependencies: %v", err)
	}
	want := depgraph.Stats{NonExistentDependenciesRemoved: 1, SelfDependenciesRemoved: 1, TasksFixed: 1}
	if diff := cmp.Diff(want, fix.Stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if !fix.Changed || st.saves != 1 || hook.calls != 1 {
		t.Errorf("Changed = %v, saves = %d, hook calls = %d", fix.Changed, st.saves, hook.calls)
	}

	fix, err = m.FixDependencies(ctx)
	if err != nil || fix.Changed || st.saves != 1 {
		t.Errorf("second fix = %+v, %v (saves %d); want untouched", fix, err, st.saves)
	}
}

func TestEnsureIndependentSubtask(t *testing.T) {
	t.Parallel()
	m, st, _ := newManager(t, `{"tasks": [
	  {"id": 100, "title": "base", "dependencies": []},
	  {"id": 2, "title": "two", "dependencies": [], "subtasks": [
	    {"id": 1, "title": "a", "dependencies": [100]},
	    {"id": 2, "title": "b", "dependencies": ["2.1"]}
	  ]}
	]}`)

	res, err := m.EnsureIndependentSubtask(context.Background())
	if err != nil {
		t.Fatalf("EnsureIndependentSubtask: %v", err)
	}
	if diff := cmp.Diff([]taskid.ID{"2.1"}, res.Cleared); diff != "" {
		t.Errorf("cleared (-want +got):\n%s", diff)
	}
	if got := st.c.Task(2).Subtask(1).Dependencies; len(got) != 0 {
		t.Errorf("2.1 dependencies = %v, want empty", got)
	}

	res, err = m.EnsureIndependentSubtask(context.Background())
	if err != nil || res.Changed || st.saves != 1 {
		t.Errorf("second call = %+v, %v (saves %d); want no-op", res, err, st.saves)
	}
}

func TestNextTasks(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t, doc)

	got, err := m.NextTasks(context.Background())
	if err != nil {
		t.Fatalf("NextTasks: %v", err)
	}
	want := []NextTask{
		{ID: "2", Title: "api", Status: "pending", Priority: "high", Dependencies: []taskid.ID{"1"}},
		{ID: "3.1", Title: "layout", Status: "pending", Dependencies: []taskid.ID{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NextTasks (-want +got):\n%s", diff)
	}
}

func TestHookErrorIsNotReturned(t *testing.T) {
	t.Parallel()
	m, st, hook := newManager(t, doc)
	hook.err = errors.New("disk full")

	res, err := m.AddDependency(context.Background(), "3", "1")
	if err != nil || !res.Changed {
		t.Fatalf("AddDependency = %+v, %v; want success despite hook failure", res, err)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
}

func TestSaveErrorSkipsHook(t *testing.T) {
	t.Parallel()
	m, st, hook := newManager(t, doc)
	st.saveErr = errors.New("read-only")

	if _, err := m.AddDependency(context.Background(), "3", "1"); err == nil {
		t.Fatal("expected save error")
	}
	if hook.calls != 0 {
		t.Errorf("hook ran %d time(s) after a failed save", hook.calls)
	}
}

func TestTelemetry(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t, doc)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	em, err := telemetry.NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	m.Telemetry = em
	ctx := context.Background()

	if _, err := m.AddDependency(ctx, "3", "1"); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if _, err := m.AddDependency(ctx, "3", "1"); err != nil {
		t.Fatalf("repeated AddDependency: %v", err)
	}
	if _, err := m.RemoveDependency(ctx, "3", "1"); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}
	em.Close()

	events, err := telemetry.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Kind)
		if e.TaskID != "3" || e.Tag != "master" {
			t.Errorf("event = %+v, want task 3 on master", e)
		}
	}
	want := []string{telemetry.KindDependencyAdded, telemetry.KindDependencyRemoved}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("event kinds (-want +got):\n%s", diff)
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")
	seed := newMemStore(t, doc)
	js := store.NewJSONFile(path, "")
	if err := js.Save(context.Background(), seed.c); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	m := &Manager{Store: js}

	if _, err := m.AddDependency(context.Background(), "3", "1"); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	c, err := js.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]taskid.ID{"1", "2"}, c.Task(3).Dependencies); diff != "" {
		t.Errorf("persisted dependencies (-want +got):\n%s", diff)
	}
}

func TestFixDependencies_FractionalEntry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")
	raw := `{"tasks": [
	  {"id": 1, "title": "one", "dependencies": []},
	  {"id": 2, "title": "two", "dependencies": [1.5]}
	]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	js := store.NewJSONFile(path, "")
	m := &Manager{Store: js}

	fix, err := m.FixDependencies(context.Background())
	if err != nil {
		t.Fatalf("FixDependencies: %v", err)
	}
	want := depgraph.Stats{NonExistentDependenciesRemoved: 1, TasksFixed: 1}
	if diff := cmp.Diff(want, fix.Stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	c, err := js.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Task(2).Dependencies; len(got) != 0 {
		t.Errorf("persisted dependencies = %v, want none", got)
	}
}
