package libroft

import (
	"fmt"
	"io"

	"github.com/2x3systems/roft/libroft/graph"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"
)

// DotPalette is cycled through to fill nodes by color.
var DotPalette = []string{
	"azure", "skyblue", "pink", "crimson", "peru",
	"orange", "gold", "lawngreen", "cyan", "blueviolet",
	"lavender", "mediumblue", "limegreen",
}

// dotNode is a colored node pinned at a planar position.
type dotNode struct {
	id     int64
	prefix string
	color  int
	pos    r3.Vec
}

func (n dotNode) ID() int64 {
	return n.id
}

func (n dotNode) DOTID() string {
	return fmt.Sprintf("%s%d", n.prefix, n.id)
}

func (n dotNode) Attributes() []encoding.Attribute {
	fill := "white"
	if n.color >= 0 {
		fill = DotPalette[n.color%len(DotPalette)]
	}
	return []encoding.Attribute{
		{Key: "pos", Value: fmt.Sprintf(`"%g,%g!"`, n.pos.X, n.pos.Y)},
		{Key: "color", Value: fill},
		{Key: "style", Value: "filled"},
	}
}

func toDot[T any](g *graph.Graph[T], prefix string, posOf func(i int) r3.Vec) *simple.UndirectedGraph {
	dg := simple.NewUndirectedGraph()
	for i := range g.Nodes {
		dg.AddNode(dotNode{
			id:     int64(i),
			prefix: prefix,
			color:  g.Nodes[i].Color,
			pos:    posOf(i),
		})
	}
	for i := range g.Nodes {
		for _, j := range g.Nodes[i].Adj {
			if j > i {
				dg.SetEdge(dg.NewEdge(dg.Node(int64(i)), dg.Node(int64(j))))
			}
		}
	}
	return dg
}

func writeDot(w io.Writer, dg *simple.UndirectedGraph, name string) error {
	buf, err := dot.Marshal(dg, name, "", "\t")
	if err != nil {
		return errors.Wrap(err, "dot marshal failed")
	}
	buf = append(buf, '\n')
	_, err = w.Write(buf)
	return err
}

// WriteLineGraphDot writes the line graph as DOT, each edge node filled by color and pinned at its midpoint.
func (mg *MeshGraph) WriteLineGraphDot(w io.Writer) error {
	return writeDot(w, toDot(&mg.Edges, "e", mg.EdgeCenter), "linegraph")
}

// WriteBlobGraphDot writes the blob graph as DOT, each blob filled by color and pinned at its center.
func (mg *MeshGraph) WriteBlobGraphDot(w io.Writer) error {
	return writeDot(w, toDot(&mg.Blobs, "b", mg.BlobCenter), "blobgraph")
}
