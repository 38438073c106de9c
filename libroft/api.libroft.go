// Package libroft turns a triangle mesh into a colored constraint graph.
//
// A MeshGraph is built in stages, each one consuming the previous:
//
//	Mesh -> vertex graph -> (Augment) -> line graph -> (blob graph) -> coloring -> export
//
// The exported BatchPlan lists every mesh edge exactly once, grouped by color so that
// batches of one color never share a point mass and may be resolved concurrently.
package libroft

import (
	"github.com/2x3systems/roft/libroft/graph"
	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex is the content of a vertex graph node.
type Vertex struct {
	Pos   r3.Vec // rest position
	Edges []int  // incident line graph nodes, filled in by BuildEdgeGraph()
}

// Edge is the content of a line graph node: one undirected mesh edge (or augmentation link).
type Edge struct {
	V1 int // neighbor vertex seen when the edge was created
	V2 int // vertex whose split created this edge
}

// Ends returns the endpoint pair of this edge as exported to a solver.
func (e Edge) Ends() roft.EdgeEnds {
	return roft.EdgeEnds{int32(e.V1), int32(e.V2)}
}

// MeshGraph holds the three graphs derived from a mesh.
//
// Nodes are created once and only their colors and marks change afterwards, except for
// line graph adjacency pruned by BuildBlobGraph(..., sever=true).
type MeshGraph struct {
	Vertices graph.Graph[Vertex]
	Edges    graph.Graph[Edge]
	Blobs    graph.Graph[Blob]

	blobOf []int // line graph node index -> index of the blob holding it
}

// BuildMeshGraph builds and colors the graphs of mesh as directed by opts.
func BuildMeshGraph(mesh *roft.Mesh, opts roft.BuildOpts) (*MeshGraph, error) {
	mg, err := NewMeshGraph(mesh)
	if err != nil {
		return nil, err
	}

	if opts.Augment {
		mg.Augment()
	}
	mg.BuildEdgeGraph()

	if opts.UseBlobs {
		mg.BuildBlobGraph(opts.BlobDist, opts.MinConnections, opts.SeverPruned)
		_, err = mg.ColorBlobGraph()
	} else {
		_, err = mg.ColorEdgeGraph()
	}
	if err != nil {
		return nil, errors.Wrap(err, "coloring failed")
	}
	return mg, nil
}

// BuildPlan runs the full pipeline over mesh and returns the flattened, colored plan.
//
// A plan in which two batches of one color touch the same point is never returned: roft.ErrColorConflict is.
func BuildPlan(mesh *roft.Mesh, opts roft.BuildOpts) (*roft.BatchPlan, error) {
	mg, err := BuildMeshGraph(mesh, opts)
	if err != nil {
		return nil, err
	}

	plan, err := mg.ExportPlan()
	if err != nil {
		return nil, err
	}

	// blobs left unlinked by MinConnections may share points and still get the same color
	if err = plan.CheckConflicts(); err != nil {
		return nil, errors.Wrapf(err, "blob dist %d, min connections %d", opts.BlobDist, opts.MinConnections)
	}

	klog.V(2).Infof("plan: %d points, %d constraints, %d colors, %d batches",
		plan.NumPoints(), plan.NumConstraints(), plan.NumColors(), plan.NumBatches())
	return plan, nil
}
