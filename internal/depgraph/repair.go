package depgraph

import (
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Stats counts what Repair changed.
type Stats struct {
	NonExistentDependenciesRemoved int `json:"nonExistentDependenciesRemoved"`
	SelfDependenciesRemoved        int `json:"selfDependenciesRemoved"`
	DuplicateDependenciesRemoved   int `json:"duplicateDependenciesRemoved"`
	CircularDependenciesFixed      int `json:"circularDependenciesFixed"`
	IndependentSubtasksRestored    int `json:"independentSubtasksRestored"`
	TasksFixed                     int `json:"tasksFixed"`
	SubtasksFixed                  int `json:"subtasksFixed"`
}

// Changed reports whether any repair was applied.
func (s Stats) Changed() bool {
	return s.NonExistentDependenciesRemoved+s.SelfDependenciesRemoved+
		s.DuplicateDependenciesRemoved+s.CircularDependenciesFixed+
		s.IndependentSubtasksRestored > 0
}

// Total returns the number of individual dependency entries changed.
func (s Stats) Total() int {
	return s.NonExistentDependenciesRemoved + s.SelfDependenciesRemoved +
		s.DuplicateDependenciesRemoved + s.CircularDependenciesFixed +
		s.IndependentSubtasksRestored
}

// Repair rewrites c in place until Validate reports no issues:
//
//  1. duplicate entries are collapsed, comparing subtask entries in
//     qualified form
//  2. entries naming a non-existent task or subtask are dropped
//  3. self-dependencies are dropped
//  4. one edge per cycle is removed; the edges are the back edges of a
//     depth-first sweep over every task and subtask in collection order
//  5. every task with subtasks is left with at least one independent
//     subtask
//
// Repair is idempotent: running it on its own output changes nothing.
func Repair(c *tasks.Collection, opts Options) Stats {
	var (
		stats     Stats
		log       = opts.log()
		threshold = opts.threshold()
		touched   = make(map[taskid.ID]bool)
	)

	// filter rewrites each node's list, keeping entries for which keep
	// reports true, and returns how many entries were dropped.
	filter := func(keep func(n Node, q taskid.ID) bool) int {
		dropped := 0
		for _, n := range Nodes(c) {
			deps := n.deps()
			kept := make([]taskid.ID, 0, len(deps))
			for _, dep := range deps {
				if keep(n, n.qualify(dep, threshold)) {
					kept = append(kept, dep)
				}
			}
			if len(kept) == len(deps) {
				continue
			}
			dropped += len(deps) - len(kept)
			n.SetDependencies(kept)
			touched[n.ID()] = true
		}
		return dropped
	}

	var seen map[taskid.ID]bool
	var owner taskid.ID
	stats.DuplicateDependenciesRemoved = filter(func(n Node, q taskid.ID) bool {
		if id := n.ID(); id != owner {
			owner, seen = id, make(map[taskid.ID]bool)
		}
		if seen[q] {
			return false
		}
		seen[q] = true
		return true
	})
	if stats.DuplicateDependenciesRemoved > 0 {
		log.Debugf("removed %d duplicate dependencies", stats.DuplicateDependenciesRemoved)
	}

	idx := NewIndex(c)
	stats.NonExistentDependenciesRemoved = filter(func(_ Node, q taskid.ID) bool { return idx[q] })
	if stats.NonExistentDependenciesRemoved > 0 {
		log.Debugf("removed %d references to non-existent tasks", stats.NonExistentDependenciesRemoved)
	}

	stats.SelfDependenciesRemoved = filter(func(n Node, q taskid.ID) bool { return q != n.ID() })
	if stats.SelfDependenciesRemoved > 0 {
		log.Debugf("removed %d self-dependencies", stats.SelfDependenciesRemoved)
	}

	stats.CircularDependenciesFixed = breakCycles(c, opts, touched)
	if stats.CircularDependenciesFixed > 0 {
		log.Debugf("broke %d circular dependencies", stats.CircularDependenciesFixed)
	}

	for _, id := range EnsureIndependentSubtasks(c) {
		stats.IndependentSubtasksRestored++
		touched[id] = true
		log.Debugf("cleared dependencies of %s so its task has an independent subtask", id)
	}

	for id := range touched {
		if id.IsSubtask() {
			stats.SubtasksFixed++
		} else {
			stats.TasksFixed++
		}
	}

	if stats.Changed() {
		log.Infof("fixed %d dependency issue(s) across %d task(s) and %d subtask(s)",
			stats.Total(), stats.TasksFixed, stats.SubtasksFixed)
	} else {
		log.Infof("no dependency issues found")
	}
	return stats
}

// breakCycles removes every back edge found by one depth-first sweep of
// the whole graph and returns how many edges it removed.
func breakCycles(c *tasks.Collection, opts Options, touched map[taskid.ID]bool) int {
	adj, order := Adjacency(c, opts)
	visited := make(map[taskid.ID]bool)
	stack := make(map[taskid.ID]bool)

	var back []Edge
	for _, id := range order {
		if !visited[id] {
			back = append(back, FindCycles(id, adj, visited, stack)...)
		}
	}

	threshold := opts.threshold()
	for _, e := range back {
		n, err := Resolve(c, e.From)
		if err != nil {
			continue
		}
		deps := n.deps()
		kept := make([]taskid.ID, 0, len(deps))
		for _, dep := range deps {
			if n.qualify(dep, threshold) != e.To {
				kept = append(kept, dep)
			}
		}
		n.SetDependencies(kept)
		touched[e.From] = true
	}
	return len(back)
}

// EnsureIndependentSubtask guarantees that t has at least one subtask with
// an empty dependency list by clearing the first subtask's dependencies
// when none qualifies. It reports whether t was changed.
func EnsureIndependentSubtask(t *tasks.Task) bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	for _, s := range t.Subtasks {
		if len(s.Dependencies) == 0 {
			return false
		}
	}
	t.Subtasks[0].Dependencies = []taskid.ID{}
	return true
}

// EnsureIndependentSubtasks applies EnsureIndependentSubtask to every task
// of c and returns the IDs of the subtasks it cleared.
func EnsureIndependentSubtasks(c *tasks.Collection) []taskid.ID {
	var cleared []taskid.ID
	for i := range c.Tasks {
		t := &c.Tasks[i]
		if EnsureIndependentSubtask(t) {
			cleared = append(cleared, taskid.Sub(t.ID, t.Subtasks[0].ID))
		}
	}
	return cleared
}
