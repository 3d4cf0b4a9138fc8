package depgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// collection decodes a legacy tasks.json document for a test.
func collection(t *testing.T, doc string) *tasks.Collection {
	t.Helper()
	c, err := tasks.Decode([]byte(doc), "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return c
}

// deps returns the dependency list of id, failing the test if it does not
// resolve.
func deps(t *testing.T, c *tasks.Collection, id taskid.ID) []taskid.ID {
	t.Helper()
	n, err := Resolve(c, id)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", id, err)
	}
	return n.Dependencies()
}

// recordingLogger captures messages for assertions.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debugf(format string, args ...any) {
	l.lines = append(l.lines, "debug: "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Infof(format string, args ...any) {
	l.lines = append(l.lines, "info: "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.lines = append(l.lines, "warn: "+fmt.Sprintf(format, args...))
}

const basicDoc = `{"tasks": [
  {"id": 1, "title": "one", "dependencies": []},
  {"id": 2, "title": "two", "dependencies": [1]},
  {"id": 3, "title": "three", "subtasks": [
    {"id": 1, "title": "three-a", "dependencies": []},
    {"id": 2, "title": "three-b", "dependencies": [1]}
  ]}
]}`

func TestResolve(t *testing.T) {
	t.Parallel()
	c := collection(t, basicDoc)

	tests := []struct {
		id        taskid.ID
		wantTitle string
		wantErr   error
	}{
		{id: "2", wantTitle: "two"},
		{id: "3.2", wantTitle: "three-b"},
		{id: "9", wantErr: tasks.ErrTaskNotFound},
		{id: "9.1", wantErr: tasks.ErrParentNotFound},
		{id: "3.9", wantErr: tasks.ErrSubtaskNotFound},
		{id: "bogus", wantErr: tasks.ErrTaskNotFound},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			t.Parallel()
			n, err := Resolve(c, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%s) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%s): %v", tt.id, err)
			}
			if n.Title() != tt.wantTitle || n.ID() != tt.id {
				t.Errorf("Resolve(%s) = %s %q, want %q", tt.id, n.ID(), n.Title(), tt.wantTitle)
			}
		})
	}
}

func TestNode_DependenciesInitializesEmpty(t *testing.T) {
	t.Parallel()
	c := collection(t, `{"tasks": [{"id": 1, "title": "one"}]}`)
	c.Tasks[0].Dependencies = nil

	n, err := Resolve(c, "1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := n.Dependencies(); got == nil || len(got) != 0 {
		t.Errorf("Dependencies() = %#v, want empty non-nil", got)
	}
	if c.Tasks[0].Dependencies == nil {
		t.Error("absent list was not initialized on the task")
	}
}

func TestIndexAndNodes(t *testing.T) {
	t.Parallel()
	c := collection(t, basicDoc)

	var ids []taskid.ID
	for _, n := range Nodes(c) {
		ids = append(ids, n.ID())
	}
	if diff := cmp.Diff([]taskid.ID{"1", "2", "3", "3.1", "3.2"}, ids); diff != "" {
		t.Errorf("Nodes order (-want +got):\n%s", diff)
	}

	idx := NewIndex(c)
	for _, id := range ids {
		if !idx[id] {
			t.Errorf("index missing %s", id)
		}
	}
	if idx["4"] || idx["3.3"] {
		t.Error("index contains identifiers that do not exist")
	}
	if !Exists(c, "3.1") || Exists(c, "1.1") {
		t.Error("Exists disagrees with the collection")
	}
}

func TestIntroducesCycle(t *testing.T) {
	t.Parallel()

	const doc = `{"tasks": [
	  {"id": 1, "title": "one", "dependencies": [2]},
	  {"id": 2, "title": "two", "dependencies": ["3.2"]},
	  {"id": 3, "title": "three", "dependencies": [], "subtasks": [
	    {"id": 1, "title": "a", "dependencies": []},
	    {"id": 2, "title": "b", "dependencies": ["3.1"]}
	  ]},
	  {"id": 4, "title": "four", "dependencies": [99]},
	  {"id": 5, "title": "five", "dependencies": [], "subtasks": [
	    {"id": 1, "title": "a", "dependencies": []},
	    {"id": 2, "title": "b", "dependencies": [1]}
	  ]}
	]}`

	tests := []struct {
		name     string
		from, to taskid.ID
		opts     Options
		want     bool
	}{
		{name: "direct back edge", from: "2", to: "1", want: true},
		{name: "through subtasks", from: "3.1", to: "1", want: true},
		{name: "independent", from: "4", to: "1", want: false},
		{name: "dangling reference ends the path", from: "1", to: "4", want: false},
		{name: "sibling shorthand", from: "5.1", to: "5.2", want: true},
		{name: "shorthand disabled", from: "5.1", to: "5.2", opts: Options{SiblingThreshold: -1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := collection(t, doc)
			if got := IntroducesCycle(c, tt.from, tt.to, tt.opts); got != tt.want {
				t.Errorf("IntroducesCycle(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestFindCycles(t *testing.T) {
	t.Parallel()

	adj := map[taskid.ID][]taskid.ID{
		"1": {"2"},
		"2": {"3"},
		"3": {"1", "4"},
		"4": {"5"},
		"5": {"4"},
		"6": {"1"},
	}
	visited := make(map[taskid.ID]bool)
	stack := make(map[taskid.ID]bool)

	var got []Edge
	for _, id := range []taskid.ID{"1", "2", "3", "4", "5", "6"} {
		if !visited[id] {
			got = append(got, FindCycles(id, adj, visited, stack)...)
		}
	}
	want := []Edge{{From: "3", To: "1"}, {From: "5", To: "4"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindCycles (-want +got):\n%s", diff)
	}
	if len(stack) != 0 {
		t.Errorf("recursion stack not unwound: %v", stack)
	}
}

func TestAdjacency_NormalizesEntries(t *testing.T) {
	t.Parallel()
	c := collection(t, `{"tasks": [
	  {"id": 1, "title": "one", "dependencies": [1, 2, 2, 42]},
	  {"id": 2, "title": "two", "subtasks": [
	    {"id": 1, "title": "a", "dependencies": [2, "2.2", 1, 200]},
	    {"id": 2, "title": "b", "dependencies": []}
	  ]}
	]}`)

	adj, order := Adjacency(c, Options{})
	want := map[taskid.ID][]taskid.ID{
		"1":   {"2"},
		"2.1": {"2.2"},
	}
	if diff := cmp.Diff(want, adj); diff != "" {
		t.Errorf("Adjacency (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]taskid.ID{"1", "2", "2.1", "2.2"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}
