package roft

import (
	"encoding/binary"

	"gonum.org/v1/gonum/spatial/r3"
)

const (

	// SolverIterations is the fixed number of projected Gauss-Seidel sweeps per Solve().
	SolverIterations = 50

	// DefaultStiffness is the spring stiffness given to every constraint unless overridden.
	DefaultStiffness = 50.0

	// DefaultTimestep is the simulation step in seconds (~60 fps).
	DefaultTimestep = 0.016
)

// DefaultGravity is the external acceleration applied when none is specified.
var DefaultGravity = r3.Vec{X: 0, Y: 0, Z: -9.81}

// Mesh is an immutable triangle soup: a vertex buffer and triples of zero-based vertex indices.
type Mesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int32
}

// VertexCount returns the number of vertices.
func (mesh *Mesh) VertexCount() int {
	return len(mesh.Vertices)
}

// TriangleCount returns the number of triangles.
func (mesh *Mesh) TriangleCount() int {
	return len(mesh.Triangles)
}

// EdgeEnds is a pair of point mass (vertex) indices coupled by one constraint.
type EdgeEnds [2]int32

// Batch is a run of constraints evaluated in order by a single worker.
type Batch struct {
	Edges []EdgeEnds
}

// ColorGroup holds every batch sharing a color; its batches may be evaluated concurrently.
type ColorGroup struct {
	Batches []Batch
}

// BuildOpts specifies how a Mesh is turned into a colored constraint graph.
type BuildOpts struct {
	Augment        bool   // add links between vertices 2 apart that share >= 2 neighbors
	UseBlobs       bool   // color blobs of edges rather than single edges
	BlobDist       uint32 // BFS radius used to gather a blob (0 yields singleton blobs)
	MinConnections uint32 // blobs with at most this many adjacent element pairs are treated as independent
	SeverPruned    bool   // if set, pruning between independent blobs also removes the element-level adjacency
}

// DefaultBuildOpts mirrors the demo setup: augmented graph, singleton blobs, all adjacency kept.
var DefaultBuildOpts = BuildOpts{
	Augment:  true,
	UseBlobs: true,
}

// PlanKey identifies a BatchPlan built from a given mesh with given BuildOpts.
type PlanKey struct {
	MeshID uint64 // mesh fingerprint
	Opts   BuildOpts
}

// AppendTo appends the byte encoding of this key, suitable as a db key.
func (key PlanKey) AppendTo(dst []byte) []byte {
	flags := byte(0)
	if key.Opts.Augment {
		flags |= 1
	}
	if key.Opts.UseBlobs {
		flags |= 2
	}
	if key.Opts.SeverPruned {
		flags |= 4
	}
	dst = binary.BigEndian.AppendUint64(dst, key.MeshID)
	dst = append(dst, flags)
	dst = binary.AppendUvarint(dst, uint64(key.Opts.BlobDist))
	dst = binary.AppendUvarint(dst, uint64(key.Opts.MinConnections))
	return dst
}

// Simulator advances point masses one step at a time.
type Simulator interface {

	// Integrate applies the external acceleration fext over dt to every non-anchored point.
	Integrate(dt float64, fext r3.Vec)

	// Solve resolves all spring constraints at the velocity level for a step of length dt.
	Solve(dt float64)

	// Positions appends the current point positions to dst, in vertex buffer order.
	Positions(dst []r3.Vec) []r3.Vec
}

// PlanStore caches encoded BatchPlans.
type PlanStore interface {

	// Get returns the plan stored under key, or ErrPlanNotFound.
	Get(key PlanKey) (*BatchPlan, error)

	// Put stores (or replaces) the plan under key.
	Put(key PlanKey, plan *BatchPlan) error

	// Close flushes and closes this store.
	Close() error
}
