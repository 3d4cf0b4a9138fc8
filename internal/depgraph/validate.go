package depgraph

import (
	"fmt"

	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// IssueKind classifies a dependency problem.
type IssueKind string

// Issue kinds reported by Validate.
const (
	IssueSelf     IssueKind = "self"
	IssueMissing  IssueKind = "missing"
	IssueCircular IssueKind = "circular"
)

// Issue is one problem found by Validate. Dependency is empty for
// circular issues, which are reported once per node on a cycle.
type Issue struct {
	Kind       IssueKind `json:"type"`
	ID         taskid.ID `json:"taskId"`
	Dependency taskid.ID `json:"dependencyId,omitempty"`
	Message    string    `json:"message"`
}

// Report is the outcome of Validate.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// IssuesFor returns the issues concerning id.
func (r Report) IssuesFor(id taskid.ID) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.ID == id {
			out = append(out, is)
		}
	}
	return out
}

// Count returns the number of issues of the given kind.
func (r Report) Count(kind IssueKind) int {
	n := 0
	for _, is := range r.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

// Validate reports every self-dependency, missing dependency and node on a
// cycle in c, in collection order. It never modifies c.
func Validate(c *tasks.Collection, opts Options) Report {
	idx := NewIndex(c)
	adj, order := Adjacency(c, opts)
	cyclic := onCycle(adj, order)
	threshold := opts.threshold()

	report := Report{Issues: []Issue{}}
	for _, n := range Nodes(c) {
		id := n.ID()
		for _, dep := range n.deps() {
			q := n.qualify(dep, threshold)
			switch {
			case q == id:
				report.Issues = append(report.Issues, Issue{
					Kind:       IssueSelf,
					ID:         id,
					Dependency: dep,
					Message:    fmt.Sprintf("%s depends on itself", id),
				})
			case !idx[q]:
				report.Issues = append(report.Issues, Issue{
					Kind:       IssueMissing,
					ID:         id,
					Dependency: dep,
					Message:    fmt.Sprintf("%s depends on non-existent %s", id, q),
				})
			}
		}
		if cyclic[id] {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueCircular,
				ID:      id,
				Message: fmt.Sprintf("%s is part of a circular dependency", id),
			})
		}
	}

	report.Valid = len(report.Issues) == 0
	log := opts.log()
	if report.Valid {
		log.Infof("all dependencies are valid")
	} else {
		log.Warnf("found %d dependency issue(s)", len(report.Issues))
	}
	return report
}
