package libroft

import (
	"github.com/2x3systems/roft/libroft/graph"
	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// NewMeshGraph creates one vertex node per mesh vertex and links the three vertex pairs of every triangle.
func NewMeshGraph(mesh *roft.Mesh) (*MeshGraph, error) {
	Nv := mesh.VertexCount()

	mg := &MeshGraph{}
	mg.Vertices.Nodes = make([]graph.Node[Vertex], 0, Nv)
	for _, pos := range mesh.Vertices {
		mg.Vertices.Add(Vertex{
			Pos: pos,
		})
	}

	V := &mg.Vertices
	for ti, tri := range mesh.Triangles {
		for _, vi := range tri {
			if vi < 0 || int(vi) >= Nv {
				return nil, errors.Wrapf(roft.ErrBadVtxIndex, "triangle %d references vertex %d (vertex count %d)", ti, vi, Nv)
			}
		}
		v1, v2, v3 := int(tri[0]), int(tri[1]), int(tri[2])
		V.Connect(v1, v2)
		V.Connect(v1, v3)
		V.Connect(v2, v3)
	}

	for i := range V.Nodes {
		klog.V(3).Infof("vtx %d has %d neighbors", i, V.Degree(i))
	}
	return mg, nil
}

// Augment links every vertex to the vertices exactly two hops away with which it shares at least
// two neighbors, and returns the number of links added.
//
// All searches run over the unaugmented graph; links are only added once every vertex was searched.
func (mg *MeshGraph) Augment() int {
	V := &mg.Vertices
	tr := graph.NewTraversal()

	toConnect := make([][]int, V.Len())
	for v := range V.Nodes {
		toConnect[v] = V.DistantNodes(tr, v, 2, func(u int, dist uint32) bool {
			return dist == 2 && V.ShareKAdj(v, u, 2)
		}, nil)
	}

	added := 0
	for v, others := range toConnect {
		for _, u := range others {
			if !V.IsAdj(v, u) {
				V.Connect(v, u)
				added++
			}
		}
	}

	klog.V(2).Infof("augment: %d links added", added)
	return added
}

// BuildEdgeGraph creates one line graph node per vertex graph link, then links every pair of
// line graph nodes sharing a vertex.  Vertex adjacency is dropped once consumed.
//
// Calling it again rebuilds the line graph (and drops any blob graph) from the links held by the current one.
func (mg *MeshGraph) BuildEdgeGraph() {
	V := &mg.Vertices
	for i := range mg.Edges.Nodes {
		e := mg.Edges.Nodes[i].Content
		V.Connect(e.V1, e.V2)
	}
	for v := range V.Nodes {
		V.Nodes[v].Content.Edges = nil
	}

	mg.Edges = graph.Graph[Edge]{}
	mg.Blobs = graph.Graph[Blob]{}
	mg.blobOf = nil

	V.UnmarkAll()
	for v := range V.Nodes {
		mg.splitVertex(v)
	}

	E := &mg.Edges
	for v := range V.Nodes {
		V.ClearAdj(v)
		incident := V.Nodes[v].Content.Edges
		for i, e1 := range incident {
			for _, e2 := range incident[i+1:] {
				E.Connect(e1, e2)
			}
		}
	}

	klog.V(2).Infof("line graph: %d nodes, max degree %d", E.Len(), E.MaxDegree())
}

// splitVertex creates an edge to each neighbor of v not split yet, then marks v as split.
func (mg *MeshGraph) splitVertex(v int) {
	V := &mg.Vertices
	for _, a := range V.Nodes[v].Adj {
		if V.IsMarked(a) {
			continue
		}
		ei := mg.Edges.Add(Edge{
			V1: a,
			V2: v,
		})
		V.Nodes[v].Content.Edges = append(V.Nodes[v].Content.Edges, ei)
		V.Nodes[a].Content.Edges = append(V.Nodes[a].Content.Edges, ei)
	}
	V.Mark(v)
}

// ColorEdgeGraph colors the line graph directly and returns its chromatic number.
func (mg *MeshGraph) ColorEdgeGraph() (int, error) {
	return mg.Edges.Color()
}

// ColorBlobGraph colors the blob graph, gives each member edge the color of its blob, and returns the
// chromatic number of the blob graph.
func (mg *MeshGraph) ColorBlobGraph() (int, error) {
	numColors, err := mg.Blobs.Color()
	if err != nil {
		return 0, err
	}

	E := &mg.Edges
	for bi := range mg.Blobs.Nodes {
		blob := &mg.Blobs.Nodes[bi]
		for _, e := range blob.Content.Members {
			E.Nodes[e].Color = blob.Color
		}
	}
	E.NumColors = numColors
	return numColors, nil
}
