package softbody

import (
	"math"

	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Impulses are projected onto this interval; springs are soft so it is unbounded.
const (
	impulseMin = -math.MaxFloat64
	impulseMax = math.MaxFloat64
)

// Below this many points (or batches) per worker, work is done on the calling goroutine.
const (
	minPointsPerWorker  = 256
	minBatchesPerWorker = 32
)

// SoftBody owns the point masses and constraints of one simulated object.
type SoftBody struct {
	points      []PointMass
	constraints []ConstraintGeometry
	fext        r3.Vec // acceleration passed to the last Integrate()
	workers     int

	// set for the colored path only
	colorOffsets []int32
	batchOffsets []int32

	// Solve() scratch
	rows   []constraintRow
	deltas []r3.Vec
}

// constraintRow is the velocity constraint built from a ConstraintGeometry at the start of Solve().
type constraintRow struct {
	normal      r3.Vec
	id1, id2    int32 // -1 for an anchored endpoint
	m1, m2      float64
	objective   float64
	invProjMass float64
	impulse     float64
}

// New creates a SoftBody solved sequentially, in constraint order.
//
// Point i starts at rest at vbuf[i]; constraint i couples ids1[i] and ids2[i] with stiffness[i],
// its rest length being the initial distance between them.
func New(vbuf []r3.Vec, ids1, ids2 []int32, invMasses, stiffness []float64, opts Opts) (*SoftBody, error) {
	if len(vbuf) != len(invMasses) {
		return nil, errors.Wrapf(roft.ErrMassCountMismatch, "%d vertices, %d inverse masses", len(vbuf), len(invMasses))
	}
	if len(ids1) != len(ids2) {
		return nil, errors.Wrapf(roft.ErrBadPlan, "%d first endpoints, %d second endpoints", len(ids1), len(ids2))
	}
	if len(ids1) != len(stiffness) {
		return nil, errors.Wrapf(roft.ErrStiffnessCountMismatch, "%d constraints, %d stiffnesses", len(ids1), len(stiffness))
	}

	sb := &SoftBody{
		points:      make([]PointMass, len(vbuf)),
		constraints: make([]ConstraintGeometry, len(ids1)),
		workers:     opts.numWorkers(),
		rows:        make([]constraintRow, len(ids1)),
		deltas:      make([]r3.Vec, len(vbuf)),
	}

	for i, pos := range vbuf {
		sb.points[i] = PointMass{
			InvMass:  invMasses[i],
			Position: pos,
		}
	}

	Np := int32(len(vbuf))
	for i := range ids1 {
		id1, id2 := ids1[i], ids2[i]
		if id1 < 0 || id1 >= Np || id2 < 0 || id2 >= Np {
			return nil, errors.Wrapf(roft.ErrBadVtxIndex, "constraint %d couples %d and %d (point count %d)", i, id1, id2, Np)
		}
		sb.constraints[i] = ConstraintGeometry{
			Stiffness:  stiffness[i],
			RestLength: r3.Norm(r3.Sub(vbuf[id1], vbuf[id2])),
			Id1:        id1,
			Id2:        id2,
		}
	}

	klog.V(2).Infof("soft body: %d points, %d constraints", len(sb.points), len(sb.constraints))
	return sb, nil
}

// NewFromPlan creates a SoftBody solved color by color, the batches of a color being spread across workers.
//
// The plan must be valid and no two batches of one color may share a point.
func NewFromPlan(plan *roft.BatchPlan, invMasses, stiffness []float64, opts Opts) (*SoftBody, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := plan.CheckConflicts(); err != nil {
		return nil, err
	}

	sb, err := New(plan.Positions, plan.Ids1, plan.Ids2, invMasses, stiffness, opts)
	if err != nil {
		return nil, err
	}
	sb.colorOffsets = plan.ColorOffsets()
	sb.batchOffsets = plan.BatchOffsets()

	klog.V(2).Infof("soft body: %d colors, %d batches, %d workers", plan.NumColors(), plan.NumBatches(), sb.workers)
	return sb, nil
}

// IsColored returns true if this SoftBody solves color by color.
func (sb *SoftBody) IsColored() bool {
	return sb.colorOffsets != nil
}

// Points returns the point masses, in vertex buffer order.  The slice is owned by sb.
func (sb *SoftBody) Points() []PointMass {
	return sb.points
}

// Constraints returns the constraints, in the order given at construction.  The slice is owned by sb.
func (sb *SoftBody) Constraints() []ConstraintGeometry {
	return sb.constraints
}

func (sb *SoftBody) SetPosition(i int, pos r3.Vec) {
	sb.points[i].Position = pos
}

func (sb *SoftBody) SetVelocity(i int, vel r3.Vec) {
	sb.points[i].Velocity = vel
}

// Positions appends the current point positions to dst.
func (sb *SoftBody) Positions(dst []r3.Vec) []r3.Vec {
	for i := range sb.points {
		dst = append(dst, sb.points[i].Position)
	}
	return dst
}

// Step integrates by dt under fext then resolves the constraints.
func (sb *SoftBody) Step(dt float64, fext r3.Vec) {
	sb.Integrate(dt, fext)
	sb.Solve(dt)
}

// Integrate advances every non-anchored point by semi-implicit Euler under the acceleration fext.
func (sb *SoftBody) Integrate(dt float64, fext r3.Vec) {
	sb.fext = fext
	dv := r3.Scale(dt, fext)

	sb.parallel(len(sb.points), minPointsPerWorker, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &sb.points[i]
			if p.InvMass == 0 {
				continue
			}
			p.Velocity = r3.Add(p.Velocity, dv)
			p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
		}
	})
}

// parallel runs fn over [0, n) split into contiguous ranges, one per worker, and waits for all of them.
func (sb *SoftBody) parallel(n, minPerWorker int, fn func(lo, hi int)) {
	workers := min(sb.workers, n/minPerWorker)
	if workers <= 1 {
		fn(0, n)
		return
	}

	var grp errgroup.Group
	for w := 0; w < workers; w++ {
		lo, hi := w*n/workers, (w+1)*n/workers
		grp.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	grp.Wait()
}
