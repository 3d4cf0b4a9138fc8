// Package manager runs dependency operations against a persisted task
// collection. Each call loads the collection from its Store, applies one
// depgraph operation, and on a structural change saves the result, fires
// the regeneration hook and records a telemetry event. Both the CLI and the
// MCP server drive the engine through a Manager.
package manager

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/papapumpkin/taskmaster/internal/depgraph"
	"github.com/papapumpkin/taskmaster/internal/store"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
	"github.com/papapumpkin/taskmaster/internal/telemetry"
)

// Hook is notified after every successful save that changed the graph.
// path is the store location and dir the directory for generated files.
type Hook interface {
	OnMutation(path, dir string) error
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(path, dir string) error

// OnMutation calls f(path, dir).
func (f HookFunc) OnMutation(path, dir string) error { return f(path, dir) }

// Manager wires a store to the dependency engine.
type Manager struct {
	Store     store.Store
	Hook      Hook
	Options   depgraph.Options
	Telemetry *telemetry.Emitter // nil disables telemetry
	TasksDir  string
	Tag       string
}

// MutationResult is returned by operations that may rewrite the collection.
type MutationResult struct {
	Changed    bool              `json:"changed"`
	Collection *tasks.Collection `json:"-"`
	// Cleared lists subtasks whose dependencies were reset, for
	// EnsureIndependentSubtask.
	Cleared []taskid.ID `json:"cleared,omitempty"`
}

// FixResult is returned by FixDependencies.
type FixResult struct {
	Stats      depgraph.Stats    `json:"stats"`
	Changed    bool              `json:"changed"`
	Collection *tasks.Collection `json:"-"`
}

// NextTask describes one actionable task or subtask.
type NextTask struct {
	ID           taskid.ID   `json:"id"`
	Title        string      `json:"title"`
	Status       string      `json:"status"`
	Priority     string      `json:"priority"`
	Dependencies []taskid.ID `json:"dependencies"`
}

// AddDependency makes taskID depend on depID.
func (m *Manager) AddDependency(ctx context.Context, taskID, depID string) (MutationResult, error) {
	id, dep, err := parsePair(taskID, depID)
	if err != nil {
		return MutationResult{}, err
	}
	c, err := m.Store.Load(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	changed, err := depgraph.AddDependency(c, id, dep, m.Options)
	if err != nil {
		return MutationResult{}, err
	}
	if changed {
		if err := m.commit(ctx, c); err != nil {
			return MutationResult{}, err
		}
		m.emit(telemetry.KindDependencyAdded, id, map[string]string{"dependsOn": dep.String()})
		m.log().Infof("%s now depends on %s", id, dep)
	}
	return MutationResult{Changed: changed, Collection: c}, nil
}

// RemoveDependency deletes the edge taskID -> depID. Removing an edge that
// does not exist succeeds without saving.
func (m *Manager) RemoveDependency(ctx context.Context, taskID, depID string) (MutationResult, error) {
	id, dep, err := parsePair(taskID, depID)
	if err != nil {
		return MutationResult{}, err
	}
	c, err := m.Store.Load(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	changed, err := depgraph.RemoveDependency(c, id, dep, m.Options)
	if err != nil {
		return MutationResult{}, err
	}
	if changed {
		if err := m.commit(ctx, c); err != nil {
			return MutationResult{}, err
		}
		m.emit(telemetry.KindDependencyRemoved, id, map[string]string{"dependsOn": dep.String()})
		m.log().Infof("removed dependency %s from %s", dep, id)
	}
	return MutationResult{Changed: changed, Collection: c}, nil
}

// ValidateDependencies reports every dependency issue without changing
// anything.
func (m *Manager) ValidateDependencies(ctx context.Context) (depgraph.Report, error) {
	c, err := m.Store.Load(ctx)
	if err != nil {
		return depgraph.Report{}, err
	}
	return depgraph.Validate(c, m.Options), nil
}

// FixDependencies repairs the collection and saves it only when the repair
// changed its content.
func (m *Manager) FixDependencies(ctx context.Context) (FixResult, error) {
	c, err := m.Store.Load(ctx)
	if err != nil {
		return FixResult{}, err
	}
	before := c.Clone()
	stats := depgraph.Repair(c, m.Options)

	changed := !cmp.Equal(before, c, cmpopts.EquateEmpty())
	if changed {
		if err := m.commit(ctx, c); err != nil {
			return FixResult{}, err
		}
		m.emit(telemetry.KindDependenciesFixed, "", stats)
	}
	return FixResult{Stats: stats, Changed: changed, Collection: c}, nil
}

// EnsureIndependentSubtask gives every task with subtasks at least one
// subtask that has no dependencies.
func (m *Manager) EnsureIndependentSubtask(ctx context.Context) (MutationResult, error) {
	c, err := m.Store.Load(ctx)
	if err != nil {
		return MutationResult{}, err
	}
	cleared := depgraph.EnsureIndependentSubtasks(c)
	if len(cleared) == 0 {
		return MutationResult{Collection: c}, nil
	}
	if err := m.commit(ctx, c); err != nil {
		return MutationResult{}, err
	}
	for _, id := range cleared {
		m.emit(telemetry.KindIndependentSubtaskRestored, id, nil)
		m.log().Infof("cleared dependencies of %s so it can start independently", id)
	}
	return MutationResult{Changed: true, Collection: c, Cleared: cleared}, nil
}

// NextTasks lists actionable work in priority order.
func (m *Manager) NextTasks(ctx context.Context) ([]NextTask, error) {
	c, err := m.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := depgraph.NextTasks(c, m.Options)
	if err != nil {
		return nil, err
	}
	out := make([]NextTask, 0, len(ids))
	for _, id := range ids {
		n, err := depgraph.Resolve(c, id)
		if err != nil {
			return nil, err
		}
		out = append(out, NextTask{
			ID:           id,
			Title:        n.Title(),
			Status:       n.Status(),
			Priority:     n.Task.Priority,
			Dependencies: n.Dependencies(),
		})
	}
	return out, nil
}

// Load returns the current collection, for read-only views.
func (m *Manager) Load(ctx context.Context) (*tasks.Collection, error) {
	return m.Store.Load(ctx)
}

// commit saves c and then runs the hook. Hook failures are logged only:
// the save already succeeded.
func (m *Manager) commit(ctx context.Context, c *tasks.Collection) error {
	if err := m.Store.Save(ctx, c); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	if m.Hook == nil {
		return nil
	}
	if err := m.Hook.OnMutation(m.Store.Location(), m.TasksDir); err != nil {
		m.log().Warnf("regenerating task files: %v", err)
	}
	return nil
}

func (m *Manager) emit(kind string, id taskid.ID, data any) {
	err := m.Telemetry.Emit(telemetry.Event{
		Kind:   kind,
		Tag:    m.Tag,
		TaskID: id.String(),
		Data:   data,
	})
	if err != nil {
		m.log().Debugf("%v", err)
	}
}

func (m *Manager) log() depgraph.Logger {
	if m.Options.Logger == nil {
		return depgraph.NopLogger{}
	}
	return m.Options.Logger
}

func parsePair(taskID, depID string) (taskid.ID, taskid.ID, error) {
	id, err := taskid.Parse(taskID)
	if err != nil {
		return "", "", fmt.Errorf("task id: %w", err)
	}
	dep, err := taskid.Parse(depID)
	if err != nil {
		return "", "", fmt.Errorf("dependency id: %w", err)
	}
	return id, dep, nil
}
