package depgraph

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// AddDependency makes taskID depend on depID. Preconditions are checked in
// order and nothing is modified unless all pass:
//
//  1. depID exists (tasks.ErrDependencyNotFound)
//  2. taskID exists (tasks.ErrTaskNotFound)
//  3. a subtask is not given a bare task number that sibling shorthand
//     would misread (tasks.ErrAmbiguousDependency)
//  4. the edge is not already present (no-op, returns false)
//  5. taskID != depID (tasks.ErrSelfDependency)
//  6. the edge does not close a cycle (tasks.ErrCircularDependency)
//
// On success the dependency list is re-sorted with taskid.Less and true is
// returned.
func AddDependency(c *tasks.Collection, taskID, depID taskid.ID, opts Options) (bool, error) {
	if taskID.IsZero() || depID.IsZero() {
		return false, fmt.Errorf("%w: both task and dependency IDs are required", tasks.ErrMissingArgument)
	}
	log := opts.log()

	if _, err := Resolve(c, depID); err != nil {
		return false, fmt.Errorf("%w: %s: %w", tasks.ErrDependencyNotFound, depID, err)
	}
	node, err := Resolve(c, taskID)
	if err != nil {
		return false, asTaskNotFound(err)
	}

	threshold := opts.threshold()
	for _, existing := range node.deps() {
		if existing == depID || node.qualify(existing, threshold) == depID {
			log.Infof("dependency %s -> %s already exists", taskID, depID)
			return false, nil
		}
	}
	if q := node.qualify(depID, threshold); q != depID {
		return false, fmt.Errorf("%w: %s on %s would be stored as sibling %s; use %s or set sibling_threshold to 0 (--sibling-threshold 0) to reference task %s",
			tasks.ErrAmbiguousDependency, depID, taskID, q, q, depID)
	}

	if taskID == depID {
		return false, fmt.Errorf("%w: %s", tasks.ErrSelfDependency, taskID)
	}
	if IntroducesCycle(c, taskID, depID, opts) {
		return false, fmt.Errorf("%w: adding %s -> %s would create a cycle", tasks.ErrCircularDependency, taskID, depID)
	}

	deps := append(append([]taskid.ID{}, node.deps()...), depID)
	taskid.Sort(deps)
	node.SetDependencies(deps)
	log.Infof("added dependency %s -> %s", taskID, depID)
	return true, nil
}

// RemoveDependency deletes the edge taskID → depID. Removing an edge that
// is not present is a successful no-op (false). Sibling shorthand is
// honored in both directions, so "3.2" removes a bare 2 from subtask 3.1.
func RemoveDependency(c *tasks.Collection, taskID, depID taskid.ID, opts Options) (bool, error) {
	if taskID.IsZero() || depID.IsZero() {
		return false, fmt.Errorf("%w: both task and dependency IDs are required", tasks.ErrMissingArgument)
	}
	log := opts.log()

	node, err := Resolve(c, taskID)
	if err != nil {
		return false, asTaskNotFound(err)
	}

	deps := node.deps()
	if len(deps) == 0 {
		log.Infof("%s has no dependencies, nothing to remove", taskID)
		return false, nil
	}

	threshold := opts.threshold()
	at := -1
	for i, existing := range deps {
		if existing == depID || node.qualify(existing, threshold) == depID {
			at = i
			break
		}
	}
	if at < 0 {
		log.Infof("%s does not depend on %s, nothing to remove", taskID, depID)
		return false, nil
	}

	kept := make([]taskid.ID, 0, len(deps)-1)
	kept = append(kept, deps[:at]...)
	kept = append(kept, deps[at+1:]...)
	node.SetDependencies(kept)
	log.Infof("removed dependency %s -> %s", taskID, depID)
	return true, nil
}

// asTaskNotFound classifies a resolver failure for the subject of a
// mutation as TASK_NOT_FOUND while keeping the resolver's detail.
func asTaskNotFound(err error) error {
	if errors.Is(err, tasks.ErrTaskNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", tasks.ErrTaskNotFound, err)
}
