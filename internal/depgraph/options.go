// Package depgraph is the dependency engine for task collections. It
// resolves identifiers to tasks and subtasks, detects cycles, applies
// validated add/remove mutations, and validates or repairs a whole
// collection in bulk.
//
// Every function operates on an in-memory *tasks.Collection owned by the
// caller. Nothing here performs I/O; persistence and file regeneration are
// the caller's concern.
package depgraph

import "github.com/papapumpkin/taskmaster/internal/taskid"

// Logger receives progress messages from dependency operations.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// NopLogger discards all messages.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}

// Options configures a single operation.
type Options struct {
	// Logger receives progress output. Nil means silent.
	Logger Logger

	// SiblingThreshold is the legacy cutoff below which a bare integer in a
	// subtask's dependency list names a sibling subtask. Zero selects
	// taskid.DefaultSiblingThreshold; a negative value disables the
	// shorthand so that only fully qualified "parent.child" references
	// name subtasks.
	SiblingThreshold int
}

func (o Options) log() Logger {
	if o.Logger == nil {
		return NopLogger{}
	}
	return o.Logger
}

func (o Options) threshold() int {
	if o.SiblingThreshold == 0 {
		return taskid.DefaultSiblingThreshold
	}
	return o.SiblingThreshold
}
