// Package dag provides a directed acyclic graph for scheduling tasks and
// subtasks. It supports topological sorting, dependency waves,
// priority-aware readiness queries, and transitive dependency lookups.
//
// Ties between nodes of equal priority are broken by insertion order, so a
// graph built in collection order yields collection-ordered results.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Node is a schedulable unit of work.
type Node struct {
	ID       string
	Priority int // higher value = higher priority
	seq      int
}

// DAG is a directed acyclic graph. Edges point from a node to its
// dependencies: if A depends on B, there is an edge from A to B.
type DAG struct {
	nodes map[string]*Node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
	nextSeq int
}

// Wave is a group of nodes whose dependencies are all satisfied by earlier
// waves, so its members can proceed in parallel.
type Wave struct {
	Number  int      `json:"number"` // 0-based
	NodeIDs []string `json:"ids"`
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID and priority. Returns
// ErrDuplicateNode if a node with that ID already exists.
func (d *DAG) AddNode(id string, priority int) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{ID: id, Priority: priority, seq: d.nextSeq}
	d.nextSeq++
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. Returns an error if either node is missing, the edge
// would create a self-loop, or the edge would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// A path to → ... → from plus the new edge would close a loop.
	if d.HasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// RemoveEdge deletes the edge from → to. Missing nodes or edges are a no-op.
func (d *DAG) RemoveEdge(from, to string) {
	if deps, ok := d.adjacency[from]; ok {
		delete(deps, to)
	}
	if dependents, ok := d.reverse[to]; ok {
		delete(dependents, from)
	}
}

// Remove removes a node and all its associated edges from the DAG.
// Returns ErrNodeNotFound if the node does not exist.
func (d *DAG) Remove(id string) error {
	if _, ok := d.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for dep := range d.adjacency[id] {
		delete(d.reverse[dep], id)
	}
	delete(d.adjacency, id)
	for dependent := range d.reverse[id] {
		delete(d.adjacency[dependent], id)
	}
	delete(d.reverse, id)
	delete(d.nodes, id)
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all node IDs in insertion order.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	return d.inserted(ids)
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// DepsFor returns the direct dependencies of id in insertion order, or nil
// if it has none or does not exist.
func (d *DAG) DepsFor(id string) []string {
	deps := d.adjacency[id]
	if len(deps) == 0 {
		return nil
	}
	ids := make([]string, 0, len(deps))
	for dep := range deps {
		ids = append(ids, dep)
	}
	return d.inserted(ids)
}

// TopologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents). Among nodes freed at the same
// step, higher-priority nodes appear first. Returns ErrCycle if the graph
// contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	queue := d.prioritySorted(zeroDegree(inDegree))
	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		queue = append(queue, d.prioritySorted(freed)...)
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// ComputeWaves groups nodes into dependency waves using Kahn's algorithm.
// Wave 0 holds nodes with no dependencies, wave 1 those whose dependencies
// are all in wave 0, and so on. Within a wave nodes are priority sorted.
func (d *DAG) ComputeWaves() ([]Wave, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	var waves []Wave
	visited := 0
	current := zeroDegree(inDegree)
	for len(current) > 0 {
		current = d.prioritySorted(current)
		waves = append(waves, Wave{Number: len(waves), NodeIDs: current})
		visited += len(current)

		var next []string
		for _, id := range current {
			for dependent := range d.reverse[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	if visited != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be grouped into waves", ErrCycle)
	}
	return waves, nil
}

// Ready returns node IDs that are not done and whose dependencies are all
// done, highest priority first.
func (d *DAG) Ready(done map[string]bool) []string {
	var ready []string
	for id := range d.nodes {
		if done[id] {
			continue
		}
		allMet := true
		for dep := range d.adjacency[id] {
			if !done[dep] {
				allMet = false
				break
			}
		}
		if allMet {
			ready = append(ready, id)
		}
	}
	return d.prioritySorted(ready)
}

// Ancestors returns everything id transitively depends on, in insertion
// order. Returns nil if the node does not exist.
func (d *DAG) Ancestors(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	return d.inserted(d.reach(id, d.adjacency))
}

// Descendants returns everything that transitively depends on id, in
// insertion order. Returns nil if the node does not exist.
func (d *DAG) Descendants(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	return d.inserted(d.reach(id, d.reverse))
}

// HasPath reports whether there is a directed path from src to dst
// following dependency edges. A node has no path to itself.
func (d *DAG) HasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// reach collects every node reachable from id over edges.
func (d *DAG) reach(id string, edges map[string]map[string]bool) []string {
	visited := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range edges[cur] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	out := make([]string, 0, len(visited))
	for v := range visited {
		out = append(out, v)
	}
	return out
}

func zeroDegree(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

// inserted sorts ids in place by insertion order.
func (d *DAG) inserted(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		return d.nodes[ids[i]].seq < d.nodes[ids[j]].seq
	})
	return ids
}

// prioritySorted returns a copy of ids sorted by priority descending, with
// insertion order as tiebreaker.
func (d *DAG) prioritySorted(ids []string) []string {
	if len(ids) <= 1 {
		return ids
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		ni, nj := d.nodes[sorted[i]], d.nodes[sorted[j]]
		if ni.Priority != nj.Priority {
			return ni.Priority > nj.Priority
		}
		return ni.seq < nj.seq
	})
	return sorted
}
