package libroft

import (
	"github.com/2x3systems/roft/libroft/graph"
	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// numColorsOf returns 1 + the highest color in g, or an error if any node is still uncolored.
func numColorsOf[T any](g *graph.Graph[T], what string) (int, error) {
	numColors := 0
	for i := range g.Nodes {
		c := g.Nodes[i].Color
		if c < 0 {
			return 0, errors.Wrapf(roft.ErrNotColored, "%s %d", what, i)
		}
		numColors = max(numColors, c+1)
	}
	return numColors, nil
}

// ExportBatches groups constraints by color.
//
// If a blob graph was built, each blob becomes one batch of its member edges; otherwise every edge
// is a batch of its own.  Groups are indexed by color.
func (mg *MeshGraph) ExportBatches() ([]roft.ColorGroup, error) {
	if mg.Blobs.Len() > 0 {
		numColors, err := numColorsOf(&mg.Blobs, "blob")
		if err != nil {
			return nil, err
		}
		groups := make([]roft.ColorGroup, numColors)
		for bi := range mg.Blobs.Nodes {
			blob := &mg.Blobs.Nodes[bi]
			batch := roft.Batch{
				Edges: make([]roft.EdgeEnds, 0, len(blob.Content.Members)),
			}
			for _, e := range blob.Content.Members {
				batch.Edges = append(batch.Edges, mg.Edges.Nodes[e].Content.Ends())
			}
			groups[blob.Color].Batches = append(groups[blob.Color].Batches, batch)
		}
		return groups, nil
	}

	numColors, err := numColorsOf(&mg.Edges, "edge")
	if err != nil {
		return nil, err
	}
	groups := make([]roft.ColorGroup, numColors)
	for ei := range mg.Edges.Nodes {
		e := &mg.Edges.Nodes[ei]
		groups[e.Color].Batches = append(groups[e.Color].Batches, roft.Batch{
			Edges: []roft.EdgeEnds{e.Content.Ends()},
		})
	}
	return groups, nil
}

// ExportEdges returns the edges of each color, indexed by color.
func (mg *MeshGraph) ExportEdges() ([][]Edge, error) {
	numColors, err := numColorsOf(&mg.Edges, "edge")
	if err != nil {
		return nil, err
	}
	byColor := make([][]Edge, numColors)
	for ei := range mg.Edges.Nodes {
		e := &mg.Edges.Nodes[ei]
		byColor[e.Color] = append(byColor[e.Color], e.Content)
	}
	return byColor, nil
}

// Export returns the vertex positions and, in line graph order, the endpoints of every edge.
// This is the input of a sequential solver and needs no coloring.
func (mg *MeshGraph) Export() (positions []r3.Vec, ids1, ids2 []int32) {
	positions = make([]r3.Vec, 0, mg.Vertices.Len())
	for i := range mg.Vertices.Nodes {
		positions = append(positions, mg.Vertices.Nodes[i].Content.Pos)
	}

	ids1 = make([]int32, 0, mg.Edges.Len())
	ids2 = make([]int32, 0, mg.Edges.Len())
	for i := range mg.Edges.Nodes {
		e := mg.Edges.Nodes[i].Content
		ids1 = append(ids1, int32(e.V1))
		ids2 = append(ids2, int32(e.V2))
	}
	return positions, ids1, ids2
}

// ExportPlan flattens ExportBatches() into a BatchPlan carrying the vertex positions.
func (mg *MeshGraph) ExportPlan() (*roft.BatchPlan, error) {
	groups, err := mg.ExportBatches()
	if err != nil {
		return nil, err
	}
	positions, _, _ := mg.Export()
	return roft.NewBatchPlan(positions, groups), nil
}
