package graph

import (
	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Traversal is a caller-owned visited set and BFS distance table.
//
// Each search started with a Traversal invalidates the marks of the previous one in O(1), so
// a search nested inside another must use its own Traversal.
type Traversal struct {
	stamp []uint32
	dist  []uint32
	epoch uint32
	queue *linkedlistqueue.Queue
}

func NewTraversal() *Traversal {
	return &Traversal{
		queue: linkedlistqueue.New(),
	}
}

// begin starts a new search over n nodes, implicitly unmarking every node.
func (tr *Traversal) begin(n int) {
	if len(tr.stamp) < n {
		tr.stamp = append(tr.stamp, make([]uint32, n-len(tr.stamp))...)
		tr.dist = append(tr.dist, make([]uint32, n-len(tr.dist))...)
	}
	tr.epoch++
	if tr.epoch == 0 {
		for i := range tr.stamp {
			tr.stamp[i] = 0
		}
		tr.epoch = 1
	}
	tr.queue.Clear()
}

func (tr *Traversal) visit(i int, dist uint32) {
	tr.stamp[i] = tr.epoch
	tr.dist[i] = dist
}

// Visited returns true if node i was reached by the current search.
func (tr *Traversal) Visited(i int) bool {
	return i < len(tr.stamp) && tr.stamp[i] == tr.epoch
}

// Dist returns the BFS distance of node i from the start of the current search.
// It is only meaningful if Visited(i) is true.
func (tr *Traversal) Dist(i int) uint32 {
	return tr.dist[i]
}

// DistantNodes runs a breadth-first search from start, expanding only nodes closer than depth.
//
// Each node other than start is offered to pred exactly once, when it is first discovered, along
// with its BFS distance; nodes for which pred returns true are appended to out.
func (g *Graph[T]) DistantNodes(tr *Traversal, start int, depth uint32, pred func(i int, dist uint32) bool, out []int) []int {
	tr.begin(len(g.Nodes))
	tr.visit(start, 0)
	tr.queue.Enqueue(start)

	for !tr.queue.Empty() {
		v, _ := tr.queue.Dequeue()
		n := v.(int)
		d := tr.dist[n] + 1
		for _, n2 := range g.Nodes[n].Adj {
			if tr.Visited(n2) {
				continue
			}
			tr.visit(n2, d)
			if d < depth {
				tr.queue.Enqueue(n2)
			}
			if pred(n2, d) {
				out = append(out, n2)
			}
		}
	}
	return out
}
