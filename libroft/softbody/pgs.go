package softbody

import (
	"github.com/2x3systems/roft/roft"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solve resolves every constraint at the velocity level with roft.SolverIterations projected Gauss-Seidel
// sweeps, then applies the accumulated velocity corrections to the points.
//
// Each spring targets a relative normal velocity of -dt*stiffness*(length - restLength).  The sequential
// path relaxes constraints in order; the colored path relaxes one color at a time, the batches of a
// color concurrently, and finishes a color before starting the next.
func (sb *SoftBody) Solve(dt float64) {
	sb.collectConstraints(dt)

	for i := range sb.deltas {
		sb.deltas[i] = r3.Vec{}
	}

	// warm start from the impulses found by the previous step
	for i := range sb.rows {
		row := &sb.rows[i]
		sb.applyImpulse(row, row.impulse)
	}

	for iter := 0; iter < roft.SolverIterations; iter++ {
		if sb.IsColored() {
			sb.sweepColors()
		} else {
			sb.relaxRange(0, len(sb.rows))
		}
	}

	sb.parallel(len(sb.points), minPointsPerWorker, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &sb.points[i]
			p.Velocity = r3.Add(p.Velocity, sb.deltas[i])
		}
	})

	for i := range sb.constraints {
		sb.constraints[i].Impulse = sb.rows[i].impulse
	}
}

// collectConstraints builds one velocity constraint per spring from the current point state.
func (sb *SoftBody) collectConstraints(dt float64) {
	dvExt := r3.Scale(dt, sb.fext)

	for i := range sb.constraints {
		c := &sb.constraints[i]
		p1, p2 := &sb.points[c.Id1], &sb.points[c.Id2]
		row := &sb.rows[i]

		*row = constraintRow{
			id1: -1,
			id2: -1,
		}

		d := r3.Sub(p1.Position, p2.Position)
		length := r3.Norm(d)
		pmass := p1.InvMass + p2.InvMass
		if length == 0 || pmass == 0 {
			continue
		}

		row.normal = r3.Scale(1/length, d)
		row.m1, row.m2 = p1.InvMass, p2.InvMass
		row.invProjMass = 1 / pmass
		row.impulse = c.Impulse
		row.objective = dt * c.Stiffness * (length - c.RestLength)

		if row.m2 != 0 {
			row.id2 = c.Id2
			row.objective -= r3.Dot(r3.Add(p2.Velocity, dvExt), row.normal)
		}
		if row.m1 != 0 {
			row.id1 = c.Id1
			row.objective += r3.Dot(r3.Add(p1.Velocity, dvExt), row.normal)
		}
	}
}

// applyImpulse adds the velocity change caused by impulse to the deltas of both endpoints.
func (sb *SoftBody) applyImpulse(row *constraintRow, impulse float64) {
	if row.id1 >= 0 {
		sb.deltas[row.id1] = r3.Sub(sb.deltas[row.id1], r3.Scale(row.m1*impulse, row.normal))
	}
	if row.id2 >= 0 {
		sb.deltas[row.id2] = r3.Add(sb.deltas[row.id2], r3.Scale(row.m2*impulse, row.normal))
	}
}

// relax projects one constraint given the deltas accumulated so far.
func (sb *SoftBody) relax(row *constraintRow) {
	if row.invProjMass == 0 {
		return
	}

	jv := row.objective
	if row.id1 >= 0 {
		jv += r3.Dot(row.normal, sb.deltas[row.id1])
	}
	if row.id2 >= 0 {
		jv -= r3.Dot(row.normal, sb.deltas[row.id2])
	}

	prev := row.impulse
	row.impulse = min(max(prev+jv*row.invProjMass, impulseMin), impulseMax)
	sb.applyImpulse(row, row.impulse-prev)
}

func (sb *SoftBody) relaxRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		sb.relax(&sb.rows[i])
	}
}

// sweepColors relaxes every color in turn.  Batches of one color touch disjoint points, so they
// are spread across workers; each color is finished before the next one starts.
func (sb *SoftBody) sweepColors() {
	for c := 0; c+1 < len(sb.colorOffsets); c++ {
		b0, b1 := int(sb.colorOffsets[c]), int(sb.colorOffsets[c+1])
		sb.parallel(b1-b0, minBatchesPerWorker, func(lo, hi int) {
			for b := b0 + lo; b < b0+hi; b++ {
				sb.relaxRange(int(sb.batchOffsets[b]), int(sb.batchOffsets[b+1]))
			}
		})
	}
}
