package depgraph

import (
	"fmt"

	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Node is a resolved task or subtask. Subtask is nil for top-level tasks;
// for subtasks Task is the parent.
type Node struct {
	Task    *tasks.Task
	Subtask *tasks.Subtask
}

// ID returns the node's canonical identifier.
func (n Node) ID() taskid.ID {
	if n.Subtask != nil {
		return taskid.Sub(n.Task.ID, n.Subtask.ID)
	}
	return n.Task.Ref()
}

// IsSubtask reports whether the node is a subtask.
func (n Node) IsSubtask() bool { return n.Subtask != nil }

// Dependencies returns the node's dependency list, initializing an absent
// list to empty.
func (n Node) Dependencies() []taskid.ID {
	if n.Subtask != nil {
		if n.Subtask.Dependencies == nil {
			n.Subtask.Dependencies = []taskid.ID{}
		}
		return n.Subtask.Dependencies
	}
	if n.Task.Dependencies == nil {
		n.Task.Dependencies = []taskid.ID{}
	}
	return n.Task.Dependencies
}

// SetDependencies replaces the node's dependency list.
func (n Node) SetDependencies(deps []taskid.ID) {
	if deps == nil {
		deps = []taskid.ID{}
	}
	if n.Subtask != nil {
		n.Subtask.Dependencies = deps
		return
	}
	n.Task.Dependencies = deps
}

// Status returns the node's status string.
func (n Node) Status() string {
	if n.Subtask != nil {
		return n.Subtask.Status
	}
	return n.Task.Status
}

// Title returns the node's title.
func (n Node) Title() string {
	if n.Subtask != nil {
		return n.Subtask.Title
	}
	return n.Task.Title
}

// deps returns the dependency list without initializing it.
func (n Node) deps() []taskid.ID {
	if n.Subtask != nil {
		return n.Subtask.Dependencies
	}
	return n.Task.Dependencies
}

// qualify resolves sibling shorthand in one of this node's entries.
func (n Node) qualify(dep taskid.ID, threshold int) taskid.ID {
	return taskid.Qualify(n.ID(), dep, threshold)
}

// Resolve finds the task or subtask named by id.
func Resolve(c *tasks.Collection, id taskid.ID) (Node, error) {
	if parent, child, ok := id.Parts(); ok {
		t := c.Task(parent)
		if t == nil {
			return Node{}, fmt.Errorf("%w: task %d (from %s)", tasks.ErrParentNotFound, parent, id)
		}
		s := t.Subtask(child)
		if s == nil {
			return Node{}, fmt.Errorf("%w: %s", tasks.ErrSubtaskNotFound, id)
		}
		return Node{Task: t, Subtask: s}, nil
	}
	n, ok := id.Task()
	if !ok {
		return Node{}, fmt.Errorf("%w: malformed identifier %q", tasks.ErrTaskNotFound, id)
	}
	t := c.Task(n)
	if t == nil {
		return Node{}, fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, id)
	}
	return Node{Task: t}, nil
}

// Exists reports whether id names a task or subtask in c.
func Exists(c *tasks.Collection, id taskid.ID) bool {
	_, err := Resolve(c, id)
	return err == nil
}

// Index is the set of every valid task and "parent.child" identifier.
type Index map[taskid.ID]bool

// NewIndex computes the identifier index of c.
func NewIndex(c *tasks.Collection) Index {
	idx := make(Index)
	for _, t := range c.Tasks {
		idx[t.Ref()] = true
		for _, s := range t.Subtasks {
			idx[taskid.Sub(t.ID, s.ID)] = true
		}
	}
	return idx
}

// Nodes returns every node of c in collection order: each task followed by
// its subtasks.
func Nodes(c *tasks.Collection) []Node {
	var out []Node
	for i := range c.Tasks {
		t := &c.Tasks[i]
		out = append(out, Node{Task: t})
		for j := range t.Subtasks {
			out = append(out, Node{Task: t, Subtask: &t.Subtasks[j]})
		}
	}
	return out
}
