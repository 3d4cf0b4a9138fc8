package depgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papapumpkin/taskmaster/internal/dag"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Priority weights. Unknown or empty priorities count as medium.
var priorityWeight = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"low":      1,
}

// PriorityWeight maps a priority name to its scheduling weight.
func PriorityWeight(priority string) int {
	if w, ok := priorityWeight[strings.ToLower(strings.TrimSpace(priority))]; ok {
		return w
	}
	return priorityWeight["medium"]
}

// BuildDAG loads every task and subtask of c into a scheduling graph in
// collection order. Subtasks inherit their parent's priority. Missing and
// self-referencing entries are skipped; a cycle is reported as
// tasks.ErrCircularDependency.
func BuildDAG(c *tasks.Collection, opts Options) (*dag.DAG, error) {
	d := dag.New()
	adj, order := Adjacency(c, opts)

	for _, n := range Nodes(c) {
		if err := d.AddNode(string(n.ID()), PriorityWeight(n.Task.Priority)); err != nil {
			return nil, err
		}
	}
	for _, id := range order {
		for _, dep := range adj[id] {
			if err := d.AddEdge(string(id), string(dep)); err != nil {
				if errors.Is(err, dag.ErrCycle) {
					return nil, fmt.Errorf("%w: %w", tasks.ErrCircularDependency, err)
				}
				return nil, err
			}
		}
	}
	return d, nil
}

// actionable reports whether a node with this status can still be worked.
func actionable(status string) bool {
	switch status {
	case tasks.StatusDone, tasks.StatusCompleted, tasks.StatusDeferred, tasks.StatusCancelled:
		return false
	}
	return true
}

// NextTasks returns the tasks and subtasks whose dependencies are all done
// and which can still be worked, highest priority first. Subtasks of a
// task that is itself not actionable are skipped.
func NextTasks(c *tasks.Collection, opts Options) ([]taskid.ID, error) {
	d, err := BuildDAG(c, opts)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool)
	status := make(map[string]string)
	for _, n := range Nodes(c) {
		id := string(n.ID())
		status[id] = n.Status()
		if tasks.IsDoneStatus(n.Status()) {
			done[id] = true
		}
		if n.IsSubtask() && !actionable(n.Task.Status) {
			status[id] = tasks.StatusDeferred
		}
	}

	var out []taskid.ID
	for _, id := range d.Ready(done) {
		if actionable(status[id]) {
			out = append(out, taskid.ID(id))
		}
	}
	return out, nil
}

// ExecutionOrder returns every task and subtask in dependency order.
func ExecutionOrder(c *tasks.Collection, opts Options) ([]taskid.ID, error) {
	d, err := BuildDAG(c, opts)
	if err != nil {
		return nil, err
	}
	sorted, err := d.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tasks.ErrCircularDependency, err)
	}
	out := make([]taskid.ID, len(sorted))
	for i, id := range sorted {
		out[i] = taskid.ID(id)
	}
	return out, nil
}

// Waves groups every task and subtask into dependency waves.
func Waves(c *tasks.Collection, opts Options) ([]dag.Wave, error) {
	d, err := BuildDAG(c, opts)
	if err != nil {
		return nil, err
	}
	waves, err := d.ComputeWaves()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tasks.ErrCircularDependency, err)
	}
	return waves, nil
}

// Dependents returns everything that transitively depends on id.
func Dependents(c *tasks.Collection, id taskid.ID, opts Options) ([]taskid.ID, error) {
	if _, err := Resolve(c, id); err != nil {
		return nil, err
	}
	d, err := BuildDAG(c, opts)
	if err != nil {
		return nil, err
	}
	desc := d.Descendants(string(id))
	out := make([]taskid.ID, len(desc))
	for i, s := range desc {
		out[i] = taskid.ID(s)
	}
	return out, nil
}
