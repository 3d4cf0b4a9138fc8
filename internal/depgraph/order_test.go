package depgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/taskmaster/internal/dag"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

const scheduleDoc = `{"tasks": [
  {"id": 1, "title": "setup", "status": "done", "priority": "low", "dependencies": []},
  {"id": 2, "title": "api", "status": "pending", "priority": "medium", "dependencies": [1]},
  {"id": 3, "title": "db", "status": "pending", "priority": "high", "dependencies": [1]},
  {"id": 4, "title": "ui", "status": "pending", "priority": "critical", "dependencies": [2, 3], "subtasks": [
    {"id": 1, "title": "layout", "status": "pending", "dependencies": []},
    {"id": 2, "title": "wire", "status": "pending", "dependencies": [1, 2]}
  ]},
  {"id": 5, "title": "later", "status": "deferred", "dependencies": [], "subtasks": [
    {"id": 1, "title": "someday", "status": "pending", "dependencies": []}
  ]},
  {"id": 6, "title": "docs", "status": "pending", "dependencies": [99]}
]}`

func TestPriorityWeight(t *testing.T) {
	t.Parallel()
	tests := map[string]int{
		"critical": 4,
		"High":     3,
		" medium ": 2,
		"low":      1,
		"":         2,
		"urgent":   2,
	}
	for in, want := range tests {
		if got := PriorityWeight(in); got != want {
			t.Errorf("PriorityWeight(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildDAG(t *testing.T) {
	t.Parallel()
	d, err := BuildDAG(collection(t, scheduleDoc), Options{})
	if err != nil {
		t.Fatalf("BuildDAG: %v", err)
	}
	if d.Len() != 9 {
		t.Errorf("Len() = %d, want 9", d.Len())
	}
	if diff := cmp.Diff([]string{"4.1"}, d.DepsFor("4.2")); diff != "" {
		t.Errorf("DepsFor(4.2) (-want +got):\n%s", diff)
	}
	if d.DepsFor("6") != nil {
		t.Errorf("missing reference became an edge: %v", d.DepsFor("6"))
	}
	if n := d.Node("4.1"); n == nil || n.Priority != 4 {
		t.Errorf("subtask priority = %+v, want inherited 4", n)
	}
}

func TestBuildDAG_Cycle(t *testing.T) {
	t.Parallel()
	c := collection(t, `{"tasks": [
	  {"id": 1, "title": "one", "dependencies": [2]},
	  {"id": 2, "title": "two", "dependencies": [1]}
	]}`)
	_, err := BuildDAG(c, Options{})
	if !errors.Is(err, tasks.ErrCircularDependency) || !errors.Is(err, dag.ErrCycle) {
		t.Errorf("BuildDAG error = %v, want circular dependency", err)
	}
	if _, err := ExecutionOrder(c, Options{}); tasks.CodeOf(err) != tasks.CodeCircularDependency {
		t.Errorf("ExecutionOrder error = %v, want CIRCULAR_DEPENDENCY", err)
	}
}

func TestNextTasks(t *testing.T) {
	t.Parallel()
	got, err := NextTasks(collection(t, scheduleDoc), Options{})
	if err != nil {
		t.Fatalf("NextTasks: %v", err)
	}
	// 4.1 inherits critical; 5 and its subtask are deferred.
	want := []taskid.ID{"4.1", "3", "2", "6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NextTasks (-want +got):\n%s", diff)
	}
}

func TestExecutionOrderAndWaves(t *testing.T) {
	t.Parallel()
	c := collection(t, scheduleDoc)

	order, err := ExecutionOrder(c, Options{})
	if err != nil {
		t.Fatalf("ExecutionOrder: %v", err)
	}
	pos := make(map[taskid.ID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	adj, _ := Adjacency(c, Options{})
	for from, to := range adj {
		for _, dep := range to {
			if pos[dep] >= pos[from] {
				t.Errorf("%s scheduled before its dependency %s", from, dep)
			}
		}
	}

	waves, err := Waves(c, Options{})
	if err != nil {
		t.Fatalf("Waves: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("got %d waves, want 3: %+v", len(waves), waves)
	}
	if diff := cmp.Diff([]string{"4"}, waves[2].NodeIDs); diff != "" {
		t.Errorf("last wave (-want +got):\n%s", diff)
	}
}

func TestDependents(t *testing.T) {
	t.Parallel()
	c := collection(t, scheduleDoc)

	got, err := Dependents(c, "1", Options{})
	if err != nil {
		t.Fatalf("Dependents: %v", err)
	}
	if diff := cmp.Diff([]taskid.ID{"2", "3", "4"}, got); diff != "" {
		t.Errorf("Dependents(1) (-want +got):\n%s", diff)
	}
	if _, err := Dependents(c, "42", Options{}); !errors.Is(err, tasks.ErrTaskNotFound) {
		t.Errorf("Dependents(42) error = %v, want ErrTaskNotFound", err)
	}
}
