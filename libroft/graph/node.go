package graph

import (
	"github.com/pkg/errors"
)

var (
	ErrAsymmetric = errors.New("adjacency is not symmetric")
	ErrSelfLoop   = errors.New("node is adjacent to itself")
	ErrDuplicate  = errors.New("adjacency lists a node twice")
)

// IsAdj returns true if node a lists node b as a neighbor.
func (g *Graph[T]) IsAdj(a, b int) bool {
	for _, n := range g.Nodes[a].Adj {
		if n == b {
			return true
		}
	}
	return false
}

// Degree returns the neighbor count of node i.
func (g *Graph[T]) Degree(i int) int {
	return len(g.Nodes[i].Adj)
}

// MaxDegree returns the largest neighbor count in this graph.
func (g *Graph[T]) MaxDegree() int {
	maxDeg := 0
	for i := range g.Nodes {
		maxDeg = max(maxDeg, len(g.Nodes[i].Adj))
	}
	return maxDeg
}

// Connect makes a and b adjacent.  Connecting a node to itself or to an existing neighbor has no effect.
func (g *Graph[T]) Connect(a, b int) {
	if a == b || g.IsAdj(b, a) {
		return
	}
	g.Nodes[a].Adj = append(g.Nodes[a].Adj, b)
	g.Nodes[b].Adj = append(g.Nodes[b].Adj, a)
}

// Disconnect removes the adjacency between a and b, if any.
func (g *Graph[T]) Disconnect(a, b int) {
	g.Nodes[a].Adj = removeIndex(g.Nodes[a].Adj, b)
	g.Nodes[b].Adj = removeIndex(g.Nodes[b].Adj, a)
}

// removeIndex removes x from adj, preserving order.
func removeIndex(adj []int, x int) []int {
	for i, n := range adj {
		if n == x {
			return append(adj[:i], adj[i+1:]...)
		}
	}
	return adj
}

// ClearAdj drops every adjacency of node i without touching its former neighbors.
//
// Callers clear every node of a graph together so that symmetry is kept.
func (g *Graph[T]) ClearAdj(i int) {
	g.Nodes[i].Adj = nil
}

// NumCommonAdj returns the number of neighbors a and b have in common.
func (g *Graph[T]) NumCommonAdj(a, b int) int {
	count := 0
	for _, n1 := range g.Nodes[a].Adj {
		for _, n2 := range g.Nodes[b].Adj {
			if n1 == n2 {
				count++
			}
		}
	}
	return count
}

// ShareKAdj returns true as soon as a and b are found to share at least k neighbors.
func (g *Graph[T]) ShareKAdj(a, b int, k int) bool {
	count := 0
	for _, n1 := range g.Nodes[a].Adj {
		for _, n2 := range g.Nodes[b].Adj {
			if n1 == n2 {
				count++
			}
			if count >= k {
				return true
			}
		}
	}
	return false
}

func (g *Graph[T]) Mark(i int) {
	g.Nodes[i].marked = true
}

func (g *Graph[T]) Unmark(i int) {
	g.Nodes[i].marked = false
}

func (g *Graph[T]) IsMarked(i int) bool {
	return g.Nodes[i].marked
}

// UnmarkAll clears the persistent mark of every node.
func (g *Graph[T]) UnmarkAll() {
	for i := range g.Nodes {
		g.Nodes[i].marked = false
	}
}

// CheckSymmetric verifies that every adjacency is mirrored, listed once, and never a self-loop.
func (g *Graph[T]) CheckSymmetric() error {
	for i := range g.Nodes {
		adj := g.Nodes[i].Adj
		for k, j := range adj {
			if j == i {
				return errors.Wrapf(ErrSelfLoop, "node %d", i)
			}
			for _, other := range adj[k+1:] {
				if other == j {
					return errors.Wrapf(ErrDuplicate, "node %d lists %d", i, j)
				}
			}
			if !g.IsAdj(j, i) {
				return errors.Wrapf(ErrAsymmetric, "%d lists %d but not the reverse", i, j)
			}
		}
	}
	return nil
}
