// Package mcpserver exposes the dependency operations as MCP tools. Every
// tool returns a JSON envelope, {"success":true,"data":...} on success or
// {"success":false,"error":{"code":...,"message":...}} on failure. Tool
// calls are serialized so that only one load/modify/save runs at a time.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/papapumpkin/taskmaster/internal/manager"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Server wraps an MCP server bound to one Manager.
type Server struct {
	mgr *manager.Manager
	mcp *server.MCPServer
	mu  sync.Mutex
}

type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *tasks.Error `json:"error,omitempty"`
}

// New registers every dependency tool against mgr.
func New(mgr *manager.Manager, version string) *Server {
	s := &Server{
		mgr: mgr,
		mcp: server.NewMCPServer(
			"taskmaster",
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}

	idArgs := []mcp.ToolOption{
		mcp.WithString("id", mcp.Required(), mcp.Description(`Task or subtask ID, e.g. "5" or "5.2"; subtask IDs must be strings`)),
		mcp.WithString("dependsOn", mcp.Required(), mcp.Description(`ID of the dependency, e.g. "3" or "3.1"; subtask IDs must be strings`)),
	}
	s.mcp.AddTool(mcp.NewTool("add_dependency",
		append([]mcp.ToolOption{mcp.WithDescription("Make a task depend on another task or subtask")}, idArgs...)...,
	), s.addDependency)
	s.mcp.AddTool(mcp.NewTool("remove_dependency",
		append([]mcp.ToolOption{mcp.WithDescription("Remove a dependency from a task or subtask")}, idArgs...)...,
	), s.removeDependency)
	s.mcp.AddTool(mcp.NewTool("validate_dependencies",
		mcp.WithDescription("Report self, missing and circular dependencies without changing anything"),
	), s.validateDependencies)
	s.mcp.AddTool(mcp.NewTool("fix_dependencies",
		mcp.WithDescription("Remove invalid dependencies and break cycles"),
	), s.fixDependencies)
	s.mcp.AddTool(mcp.NewTool("ensure_independent_subtasks",
		mcp.WithDescription("Give every task with subtasks at least one subtask without dependencies"),
	), s.ensureIndependent)
	s.mcp.AddTool(mcp.NewTool("next_task",
		mcp.WithDescription("List tasks whose dependencies are all done, highest priority first"),
	), s.nextTask)

	return s
}

// MCP returns the underlying server, for transports other than stdio.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) addDependency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		id, dep, err := pairArgs(req)
		if err != nil {
			return nil, err
		}
		res, err := s.mgr.AddDependency(ctx, id, dep)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "dependsOn": dep, "changed": res.Changed}, nil
	})
}

func (s *Server) removeDependency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		id, dep, err := pairArgs(req)
		if err != nil {
			return nil, err
		}
		res, err := s.mgr.RemoveDependency(ctx, id, dep)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "dependsOn": dep, "changed": res.Changed}, nil
	})
}

func (s *Server) validateDependencies(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		return s.mgr.ValidateDependencies(ctx)
	})
}

func (s *Server) fixDependencies(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		return s.mgr.FixDependencies(ctx)
	})
}

func (s *Server) ensureIndependent(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		return s.mgr.EnsureIndependentSubtask(ctx)
	})
}

func (s *Server) nextTask(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(func() (any, error) {
		ready, err := s.mgr.NextTasks(ctx)
		if err != nil {
			return nil, err
		}
		out := map[string]any{"tasks": ready, "next": nil}
		if len(ready) > 0 {
			out["next"] = ready[0]
		}
		return out, nil
	})
}

// call runs fn under the server lock and wraps its outcome in an envelope.
// Operation failures become error envelopes; only an encoding failure is
// returned as a Go error.
func (s *Server) call(fn func() (any, error)) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	data, err := fn()
	s.mu.Unlock()

	env := envelope{Success: err == nil, Data: data}
	if err != nil {
		env = envelope{Error: tasks.NewError(err)}
	}
	b, mErr := json.Marshal(env)
	if mErr != nil {
		return nil, fmt.Errorf("encoding tool result: %w", mErr)
	}
	if err != nil {
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// pairArgs reads the id and dependsOn arguments.
func pairArgs(req mcp.CallToolRequest) (id, dep string, err error) {
	if id, err = stringArg(req, "id"); err != nil {
		return "", "", err
	}
	if dep, err = stringArg(req, "dependsOn"); err != nil {
		return "", "", err
	}
	return id, dep, nil
}

// stringArg reads an argument that clients may send as a string or a JSON
// number. Numbers must be whole: 5.10 and 5.1 are the same float, so
// subtask IDs have to arrive as strings.
func stringArg(req mcp.CallToolRequest, key string) (string, error) {
	switch v := req.GetArguments()[key].(type) {
	case string:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: %s=%v; send subtask IDs as strings", taskid.ErrInvalidID, key, v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return "", fmt.Errorf("%w: %s=%s; send subtask IDs as strings", taskid.ErrInvalidID, key, v)
		}
		return v.String(), nil
	default:
		return "", nil
	}
}
