package depgraph

import (
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// Edge is a dependency edge: From depends on To.
type Edge struct {
	From taskid.ID `json:"from"`
	To   taskid.ID `json:"to"`
}

// IntroducesCycle reports whether adding the edge from → to would create a
// cycle. It walks the existing graph depth-first starting at to, looking
// for a path back to from (or to any node already on the current path).
// Nodes that do not resolve end their path.
func IntroducesCycle(c *tasks.Collection, from, to taskid.ID, opts Options) bool {
	w := cycleWalk{
		c:         c,
		threshold: opts.threshold(),
		chain:     map[taskid.ID]bool{from: true},
		clean:     make(map[taskid.ID]bool),
	}
	return w.visit(to)
}

type cycleWalk struct {
	c         *tasks.Collection
	threshold int
	// chain holds the nodes on the current path, seeded with the edge source.
	chain map[taskid.ID]bool
	// clean holds nodes whose whole reachable subgraph was explored without
	// touching the chain.
	clean map[taskid.ID]bool
}

func (w *cycleWalk) visit(cur taskid.ID) bool {
	if w.chain[cur] {
		return true
	}
	if w.clean[cur] {
		return false
	}
	node, err := Resolve(w.c, cur)
	if err != nil {
		w.clean[cur] = true
		return false
	}

	w.chain[cur] = true
	for _, dep := range node.deps() {
		if w.visit(node.qualify(dep, w.threshold)) {
			return true
		}
	}
	delete(w.chain, cur)
	w.clean[cur] = true
	return false
}

// Adjacency builds the normalized dependency map of c: for every task and
// subtask, its qualified dependencies that exist, without duplicates or
// self-edges. order lists every node in collection order.
func Adjacency(c *tasks.Collection, opts Options) (adj map[taskid.ID][]taskid.ID, order []taskid.ID) {
	idx := NewIndex(c)
	threshold := opts.threshold()
	adj = make(map[taskid.ID][]taskid.ID)
	for _, n := range Nodes(c) {
		id := n.ID()
		order = append(order, id)
		seen := make(map[taskid.ID]bool)
		for _, dep := range n.deps() {
			q := n.qualify(dep, threshold)
			if q == id || !idx[q] || seen[q] {
				continue
			}
			seen[q] = true
			adj[id] = append(adj[id], q)
		}
	}
	return adj, order
}

// FindCycles walks adjacency depth-first from start and returns the back
// edges that close a cycle. visited and stack are shared across calls so
// that a caller can sweep every node with one pair of maps; removing every
// returned edge leaves the swept graph acyclic.
func FindCycles(start taskid.ID, adjacency map[taskid.ID][]taskid.ID, visited, stack map[taskid.ID]bool) []Edge {
	visited[start] = true
	stack[start] = true

	var edges []Edge
	for _, dep := range adjacency[start] {
		switch {
		case !visited[dep]:
			edges = append(edges, FindCycles(dep, adjacency, visited, stack)...)
		case stack[dep]:
			edges = append(edges, Edge{From: start, To: dep})
		}
	}

	delete(stack, start)
	return edges
}

// onCycle returns the nodes that lie on at least one cycle, using Tarjan's
// strongly connected components. Self-edges are not present in adjacency,
// so only components with two or more members count.
func onCycle(adjacency map[taskid.ID][]taskid.ID, order []taskid.ID) map[taskid.ID]bool {
	var (
		index   = make(map[taskid.ID]int)
		low     = make(map[taskid.ID]int)
		onStack = make(map[taskid.ID]bool)
		stack   []taskid.ID
		next    int
		result  = make(map[taskid.ID]bool)
	)

	var strongConnect func(v taskid.ID)
	strongConnect = func(v taskid.ID) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := index[w]; !seen {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var component []taskid.ID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			for _, w := range component {
				result[w] = true
			}
		}
	}

	for _, v := range order {
		if _, seen := index[v]; !seen {
			strongConnect(v)
		}
	}
	return result
}
