// Package tasks defines the task collection that the dependency engine
// operates on, its tasks.json encoding, and the error taxonomy shared by
// every host (CLI, MCP server).
package tasks

import (
	"encoding/json"

	"github.com/papapumpkin/taskmaster/internal/taskid"
)

// Status values recognized by the ready-set computation. Any other status
// string is carried through untouched.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusCompleted  = "completed"
	StatusDeferred   = "deferred"
	StatusCancelled  = "cancelled"
)

// Task is a top-level unit of work.
type Task struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Status       string      `json:"status,omitempty"`
	Priority     string      `json:"priority,omitempty"`
	Details      string      `json:"details,omitempty"`
	TestStrategy string      `json:"testStrategy,omitempty"`
	Dependencies []taskid.ID `json:"dependencies"`
	Subtasks     []Subtask   `json:"subtasks,omitempty"`

	// Extra holds fields this package does not model so that a load/save
	// round trip does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// Subtask is a unit of work scoped to one parent task. Its ID is unique
// only within the parent.
type Subtask struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Status       string      `json:"status,omitempty"`
	Details      string      `json:"details,omitempty"`
	TestStrategy string      `json:"testStrategy,omitempty"`
	Dependencies []taskid.ID `json:"dependencies"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Collection is the root aggregate: every task of one tag.
type Collection struct {
	Tasks    []Task
	Metadata json.RawMessage
}

// Ref returns the task's identifier.
func (t *Task) Ref() taskid.ID { return taskid.FromInt(t.ID) }

// Subtask returns the subtask with the given local ID, or nil.
func (t *Task) Subtask(id int) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// IsDone reports whether the task has a terminal done status.
func (t *Task) IsDone() bool { return IsDoneStatus(t.Status) }

// IsDone reports whether the subtask has a terminal done status.
func (s *Subtask) IsDone() bool { return IsDoneStatus(s.Status) }

// Task returns the task with the given ID, or nil.
func (c *Collection) Task(id int) *Task {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			return &c.Tasks[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{
		Tasks:    make([]Task, len(c.Tasks)),
		Metadata: cloneRaw(c.Metadata),
	}
	for i, t := range c.Tasks {
		out.Tasks[i] = t
		out.Tasks[i].Dependencies = cloneIDs(t.Dependencies)
		out.Tasks[i].Extra = cloneExtra(t.Extra)
		if t.Subtasks != nil {
			out.Tasks[i].Subtasks = make([]Subtask, len(t.Subtasks))
			for j, s := range t.Subtasks {
				out.Tasks[i].Subtasks[j] = s
				out.Tasks[i].Subtasks[j].Dependencies = cloneIDs(s.Dependencies)
				out.Tasks[i].Subtasks[j].Extra = cloneExtra(s.Extra)
			}
		}
	}
	return out
}

// IsDoneStatus reports whether status counts as satisfying dependents.
func IsDoneStatus(status string) bool {
	return status == StatusDone || status == StatusCompleted
}

func cloneIDs(ids []taskid.ID) []taskid.ID {
	if ids == nil {
		return nil
	}
	out := make([]taskid.ID, len(ids))
	copy(out, ids)
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func cloneExtra(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = cloneRaw(v)
	}
	return out
}
