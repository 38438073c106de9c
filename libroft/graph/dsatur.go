package graph

import (
	"github.com/2x3systems/roft/roft"
	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

var ErrImproperColoring = errors.New("adjacent nodes share a color")

// ResetColors sets every node back to Uncolored.
func (g *Graph[T]) ResetColors() {
	for i := range g.Nodes {
		g.Nodes[i].Color = Uncolored
	}
	g.NumColors = 0
}

// Saturation returns the number of distinct colors used by the neighbors of node i.
func (g *Graph[T]) Saturation(i int) int {
	var seen []int
	for _, n := range g.Nodes[i].Adj {
		c := g.Nodes[n].Color
		if c >= 0 && !containsInt(seen, c) {
			seen = append(seen, c)
		}
	}
	return len(seen)
}

// ColorWithMin assigns node i the smallest color not used by any of its neighbors and returns it.
func (g *Graph[T]) ColorWithMin(i int) int {
	node := &g.Nodes[i]

	// A node of degree d always has a free color in [0, d]
	used := make([]bool, len(node.Adj)+1)
	for _, n := range node.Adj {
		if c := g.Nodes[n].Color; c >= 0 && c < len(used) {
			used[c] = true
		}
	}
	for c, taken := range used {
		if !taken {
			node.Color = c
			break
		}
	}
	return node.Color
}

func containsInt(list []int, x int) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}

type dsatEntry struct {
	node int
	sat  int
	deg  int
}

// dsatOrder puts the highest saturation first, then the highest degree, then the lowest index.
func dsatOrder(a, b interface{}) int {
	x, y := a.(dsatEntry), b.(dsatEntry)
	if x.sat != y.sat {
		return y.sat - x.sat
	}
	if x.deg != y.deg {
		return y.deg - x.deg
	}
	return x.node - y.node
}

// Color runs DSATUR over every node of this graph, replacing any previous coloring, and returns the chromatic number.
//
// The uncolored node with the highest saturation degree is colored next (ties go to the highest degree
// then the lowest index) with the smallest color free among its neighbors.
func (g *Graph[T]) Color() (int, error) {
	Nn := len(g.Nodes)
	if Nn == 0 {
		return 0, roft.ErrEmptyGraph
	}
	g.ResetColors()

	pq := priorityqueue.NewWith(dsatOrder)
	for i := range g.Nodes {
		pq.Enqueue(dsatEntry{
			node: i,
			deg:  len(g.Nodes[i].Adj),
		})
	}

	// Saturation only ever grows, so an entry whose sat lags behind is stale and skipped.
	sat := make([]int, Nn)
	satColors := make([][]int, Nn)

	numColors := 0
	for !pq.Empty() {
		v, _ := pq.Dequeue()
		e := v.(dsatEntry)
		if g.Nodes[e.node].Color >= 0 || e.sat != sat[e.node] {
			continue
		}

		c := g.ColorWithMin(e.node)
		numColors = max(numColors, c+1)

		for _, u := range g.Nodes[e.node].Adj {
			if g.Nodes[u].Color >= 0 || containsInt(satColors[u], c) {
				continue
			}
			satColors[u] = append(satColors[u], c)
			sat[u]++
			pq.Enqueue(dsatEntry{
				node: u,
				sat:  sat[u],
				deg:  len(g.Nodes[u].Adj),
			})
		}
	}
	g.NumColors = numColors

	klog.V(2).Infof("chromatic number : %d", numColors)
	klog.V(2).Infof("average node/color : %.2f", float64(Nn)/float64(numColors))
	return numColors, nil
}

// CheckColoring verifies that every node is colored and that no two adjacent nodes share a color.
func (g *Graph[T]) CheckColoring() error {
	for i := range g.Nodes {
		ci := g.Nodes[i].Color
		if ci < 0 {
			return errors.Wrapf(roft.ErrNotColored, "node %d", i)
		}
		for _, j := range g.Nodes[i].Adj {
			if g.Nodes[j].Color == ci {
				return errors.Wrapf(ErrImproperColoring, "nodes %d and %d have color %d", i, j, ci)
			}
		}
	}
	return nil
}
