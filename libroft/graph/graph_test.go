package graph_test

import (
	"testing"

	"github.com/2x3systems/roft/libroft/graph"
	"github.com/2x3systems/roft/roft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraph(n int, edges [][2]int) *graph.Graph[int] {
	g := &graph.Graph[int]{}
	for i := 0; i < n; i++ {
		g.Add(i)
	}
	for _, e := range edges {
		g.Connect(e[0], e[1])
	}
	return g
}

func TestConnectIsIdempotent(t *testing.T) {
	g := newGraph(3, nil)

	g.Connect(0, 1)
	g.Connect(1, 0)
	g.Connect(0, 1)
	g.Connect(2, 2)

	assert.Equal(t, []int{1}, g.At(0).Adj)
	assert.Equal(t, []int{0}, g.At(1).Adj)
	assert.Empty(t, g.At(2).Adj)
	require.NoError(t, g.CheckSymmetric())

	g.Disconnect(1, 0)
	assert.Empty(t, g.At(0).Adj)
	assert.Empty(t, g.At(1).Adj)
	require.NoError(t, g.CheckSymmetric())
}

func TestDisconnectFirstNeighbor(t *testing.T) {
	g := newGraph(4, [][2]int{{0, 1}, {0, 2}, {0, 3}})

	g.Disconnect(0, 1)
	assert.Equal(t, []int{2, 3}, g.At(0).Adj)
	assert.False(t, g.IsAdj(1, 0))
	require.NoError(t, g.CheckSymmetric())
}

func TestCommonAdj(t *testing.T) {
	// square 0-1-2-3 with diagonal 0-2
	g := newGraph(4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 2}})

	assert.Equal(t, 2, g.NumCommonAdj(1, 3))
	assert.True(t, g.ShareKAdj(1, 3, 2))
	assert.False(t, g.ShareKAdj(1, 3, 3))
	assert.Equal(t, 2, g.NumCommonAdj(0, 2))
}

func TestMarks(t *testing.T) {
	g := newGraph(2, nil)
	g.Mark(1)
	assert.False(t, g.IsMarked(0))
	assert.True(t, g.IsMarked(1))
	g.UnmarkAll()
	assert.False(t, g.IsMarked(1))
}

func TestDistantNodes(t *testing.T) {
	// path 0-1-2-3-4
	g := newGraph(5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}})
	tr := graph.NewTraversal()

	all := func(int, uint32) bool { return true }

	got := g.DistantNodes(tr, 0, 2, all, nil)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, uint32(2), tr.Dist(2))
	assert.False(t, tr.Visited(3))

	exactly2 := func(_ int, d uint32) bool { return d == 2 }
	got = g.DistantNodes(tr, 2, 2, exactly2, nil)
	assert.Equal(t, []int{0, 4}, got)

	// depth 0 expands nothing beyond the start's neighbors
	got = g.DistantNodes(tr, 2, 0, all, nil)
	assert.Equal(t, []int{1, 3}, got)
}

func TestNestedTraversalsDoNotShareMarks(t *testing.T) {
	g := newGraph(4, [][2]int{{0, 1}, {1, 2}, {2, 3}})
	outer := graph.NewTraversal()
	inner := graph.NewTraversal()

	var innerCounts []int
	got := g.DistantNodes(outer, 0, 3, func(i int, _ uint32) bool {
		found := g.DistantNodes(inner, i, 1, func(int, uint32) bool { return true }, nil)
		innerCounts = append(innerCounts, len(found))
		return true
	}, nil)

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, []int{2, 2, 1}, innerCounts)
}

func TestColorEmpty(t *testing.T) {
	g := &graph.Graph[int]{}
	_, err := g.Color()
	assert.ErrorIs(t, err, roft.ErrEmptyGraph)
}

func TestColorProper(t *testing.T) {
	cases := map[string]*graph.Graph[int]{
		"single":   newGraph(1, nil),
		"triangle": newGraph(3, [][2]int{{0, 1}, {1, 2}, {2, 0}}),
		"k4":       newGraph(4, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}),
		"even cycle": newGraph(6, [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 0},
		}),
		"star": newGraph(5, [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}}),
	}
	expect := map[string]int{
		"single":     1,
		"triangle":   3,
		"k4":         4,
		"even cycle": 2,
		"star":       2,
	}

	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			numColors, err := g.Color()
			require.NoError(t, err)
			require.NoError(t, g.CheckColoring())
			assert.Equal(t, expect[name], numColors)
			assert.Equal(t, numColors, g.NumColors)
			assert.LessOrEqual(t, numColors, g.MaxDegree()+1)

			maxColor := 0
			for i := range g.Nodes {
				maxColor = max(maxColor, g.Nodes[i].Color)
			}
			assert.Equal(t, maxColor+1, numColors)
		})
	}
}

func TestColorPicksHighestDegreeFirst(t *testing.T) {
	g := newGraph(5, [][2]int{{3, 0}, {3, 1}, {3, 2}, {3, 4}})
	_, err := g.Color()
	require.NoError(t, err)
	assert.Equal(t, 0, g.At(3).Color)
	for _, i := range []int{0, 1, 2, 4} {
		assert.Equal(t, 1, g.At(i).Color)
	}
}

func TestColorRecolors(t *testing.T) {
	g := newGraph(2, [][2]int{{0, 1}})
	g.At(0).Color = 7

	numColors, err := g.Color()
	require.NoError(t, err)
	assert.Equal(t, 2, numColors)
	require.NoError(t, g.CheckColoring())
}

func TestCheckColoringFailures(t *testing.T) {
	g := newGraph(2, [][2]int{{0, 1}})
	assert.ErrorIs(t, g.CheckColoring(), roft.ErrNotColored)

	g.At(0).Color = 0
	g.At(1).Color = 0
	assert.ErrorIs(t, g.CheckColoring(), graph.ErrImproperColoring)
}

func TestCheckSymmetricDetectsBrokenAdjacency(t *testing.T) {
	g := newGraph(2, nil)
	g.At(0).Adj = []int{1}
	assert.ErrorIs(t, g.CheckSymmetric(), graph.ErrAsymmetric)

	g.At(0).Adj = []int{0}
	assert.ErrorIs(t, g.CheckSymmetric(), graph.ErrSelfLoop)
}
