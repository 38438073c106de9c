// Package graph holds the generic node arena shared by the vertex graph, the line graph and the blob graph.
//
// Nodes live in a slice owned by their Graph and refer to each other by index, so adjacency
// never forms reference cycles and indices stay valid for the lifetime of the graph.
package graph

const (

	// Uncolored is the color of a node that no coloring pass has reached yet.
	Uncolored = -1
)

// Node wraps a content value with adjacency, a color and a persistent mark.
type Node[T any] struct {
	ID      int   // index of this node in its Graph
	Content T     // owned content
	Adj     []int // indices of adjacent nodes; symmetric and free of duplicates and self-loops
	Color   int   // >= 0 once colored, Uncolored otherwise
	marked  bool  // persistent mark, cleared only by Unmark() or UnmarkAll()
}

// Graph is an arena of nodes addressed by stable index.
type Graph[T any] struct {
	Nodes     []Node[T]
	NumColors int // chromatic number found by the last coloring pass
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	return len(g.Nodes)
}

// Add appends a new uncolored node wrapping content and returns its index.
func (g *Graph[T]) Add(content T) int {
	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node[T]{
		ID:      id,
		Content: content,
		Color:   Uncolored,
	})
	return id
}

// At returns the node at index i.
func (g *Graph[T]) At(i int) *Node[T] {
	return &g.Nodes[i]
}
