package tasks

import (
	"errors"

	"github.com/papapumpkin/taskmaster/internal/taskid"
)

// Code is a machine-readable error category surfaced to CLI and MCP hosts.
type Code string

// Error codes, one per failure category.
const (
	CodeInputValidation    Code = "INPUT_VALIDATION_ERROR"
	CodeInvalidIDFormat    Code = "INVALID_ID_FORMAT"
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeDependencyNotFound Code = "DEPENDENCY_NOT_FOUND"
	CodeParentNotFound     Code = "PARENT_NOT_FOUND"
	CodeSubtaskNotFound    Code = "SUBTASK_NOT_FOUND"
	CodeSelfDependency     Code = "SELF_DEPENDENCY"
	CodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	CodeInvalidCollection  Code = "INVALID_COLLECTION"
	CodeCoreFunction       Code = "CORE_FUNCTION_ERROR"
)

// Sentinel errors for dependency operations. Each maps to exactly one Code.
var (
	// ErrMissingArgument indicates a required argument was absent.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrTaskNotFound indicates the target task or subtask does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDependencyNotFound indicates the dependency target does not exist.
	ErrDependencyNotFound = errors.New("dependency target not found")
	// ErrParentNotFound indicates a subtask identifier names a missing parent.
	ErrParentNotFound = errors.New("parent task not found")
	// ErrSubtaskNotFound indicates the parent exists but the subtask does not.
	ErrSubtaskNotFound = errors.New("subtask not found")
	// ErrSelfDependency indicates a node would depend on itself.
	ErrSelfDependency = errors.New("task cannot depend on itself")
	// ErrCircularDependency indicates an edge would close a cycle.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrAmbiguousDependency indicates a bare task number given to a
	// subtask would be read back as a sibling reference.
	ErrAmbiguousDependency = errors.New("ambiguous dependency reference")
	// ErrInvalidCollection indicates persisted data does not have the expected shape.
	ErrInvalidCollection = errors.New("invalid task collection")
)

// codeOrder lists sentinels from most to least specific. A dependency
// lookup failure wraps both ErrDependencyNotFound and the resolver's own
// error, so the outer classification is checked first.
var codeOrder = []struct {
	err  error
	code Code
}{
	{ErrMissingArgument, CodeInputValidation},
	{taskid.ErrEmptyID, CodeInputValidation},
	{ErrAmbiguousDependency, CodeInputValidation},
	{taskid.ErrInvalidID, CodeInvalidIDFormat},
	{ErrDependencyNotFound, CodeDependencyNotFound},
	{ErrTaskNotFound, CodeTaskNotFound},
	{ErrParentNotFound, CodeParentNotFound},
	{ErrSubtaskNotFound, CodeSubtaskNotFound},
	{ErrSelfDependency, CodeSelfDependency},
	{ErrCircularDependency, CodeCircularDependency},
	{ErrInvalidCollection, CodeInvalidCollection},
}

// CodeOf classifies err. Unrecognized errors are CORE_FUNCTION_ERROR.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeCoreFunction
}

// Error is the structured form rendered by hosts.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError converts err into its structured form. The message always
// carries the original error text.
func NewError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeOf(err), Message: err.Error()}
}
