package roft

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// BatchPlan is the flattened description of a colored constraint graph handed to a compute backend.
//
// Constraints are listed in color order then batch order: constraint i couples points Ids1[i] and Ids2[i].
// Color c owns ColorBatchCounts[c] consecutive batches and batch b owns BatchSizes[b] consecutive constraints.
type BatchPlan struct {
	Positions        []r3.Vec
	Ids1             []int32
	Ids2             []int32
	ColorBatchCounts []int32
	BatchSizes       []int32
}

// NewBatchPlan flattens the given color groups into a BatchPlan.
func NewBatchPlan(positions []r3.Vec, groups []ColorGroup) *BatchPlan {
	plan := &BatchPlan{
		Positions:        positions,
		ColorBatchCounts: make([]int32, 0, len(groups)),
	}

	for _, cg := range groups {
		plan.ColorBatchCounts = append(plan.ColorBatchCounts, int32(len(cg.Batches)))
		for _, batch := range cg.Batches {
			plan.BatchSizes = append(plan.BatchSizes, int32(len(batch.Edges)))
			for _, e := range batch.Edges {
				plan.Ids1 = append(plan.Ids1, e[0])
				plan.Ids2 = append(plan.Ids2, e[1])
			}
		}
	}
	return plan
}

func (plan *BatchPlan) NumColors() int {
	return len(plan.ColorBatchCounts)
}

func (plan *BatchPlan) NumBatches() int {
	return len(plan.BatchSizes)
}

func (plan *BatchPlan) NumConstraints() int {
	return len(plan.Ids1)
}

func (plan *BatchPlan) NumPoints() int {
	return len(plan.Positions)
}

// ColorOffsets returns the index of the first batch of each color, plus a trailing total.
func (plan *BatchPlan) ColorOffsets() []int32 {
	return prefixSums(plan.ColorBatchCounts)
}

// BatchOffsets returns the index of the first constraint of each batch, plus a trailing total.
func (plan *BatchPlan) BatchOffsets() []int32 {
	return prefixSums(plan.BatchSizes)
}

func prefixSums(counts []int32) []int32 {
	offsets := make([]int32, len(counts)+1)
	for i, n := range counts {
		offsets[i+1] = offsets[i] + n
	}
	return offsets
}

// Batch returns the endpoint pairs of batch bi.
func (plan *BatchPlan) Batch(bi int, offsets []int32) Batch {
	lo, hi := offsets[bi], offsets[bi+1]
	batch := Batch{
		Edges: make([]EdgeEnds, 0, hi-lo),
	}
	for i := lo; i < hi; i++ {
		batch.Edges = append(batch.Edges, EdgeEnds{plan.Ids1[i], plan.Ids2[i]})
	}
	return batch
}

// Validate checks that the array lengths and indices of this plan are consistent.
func (plan *BatchPlan) Validate() error {
	if len(plan.Ids1) != len(plan.Ids2) {
		return errors.Wrapf(ErrBadPlan, "%d first endpoints vs %d second endpoints", len(plan.Ids1), len(plan.Ids2))
	}

	batchTotal := int32(0)
	for c, n := range plan.ColorBatchCounts {
		if n < 0 {
			return errors.Wrapf(ErrBadPlan, "color %d has a negative batch count", c)
		}
		batchTotal += n
	}
	if int(batchTotal) != len(plan.BatchSizes) {
		return errors.Wrapf(ErrBadPlan, "colors claim %d batches but %d are listed", batchTotal, len(plan.BatchSizes))
	}

	edgeTotal := int32(0)
	for b, n := range plan.BatchSizes {
		if n < 0 {
			return errors.Wrapf(ErrBadPlan, "batch %d has a negative size", b)
		}
		edgeTotal += n
	}
	if int(edgeTotal) != len(plan.Ids1) {
		return errors.Wrapf(ErrBadPlan, "batches claim %d constraints but %d are listed", edgeTotal, len(plan.Ids1))
	}

	Nv := int32(len(plan.Positions))
	for i := range plan.Ids1 {
		a, b := plan.Ids1[i], plan.Ids2[i]
		if a < 0 || a >= Nv || b < 0 || b >= Nv {
			return errors.Wrapf(ErrBadVtxIndex, "constraint %d couples %d and %d (vertex count %d)", i, a, b, Nv)
		}
	}
	return nil
}

// CheckConflicts returns ErrColorConflict if two batches of the same color touch the same point.
//
// Constraints within one batch may share points since a batch is evaluated sequentially.
func (plan *BatchPlan) CheckConflicts() error {
	owner := make([]int32, len(plan.Positions))
	for i := range owner {
		owner[i] = -1
	}

	batchOffsets := plan.BatchOffsets()
	bi := int32(0)
	for c, numBatches := range plan.ColorBatchCounts {
		firstBatch := bi
		for ; bi < firstBatch+numBatches; bi++ {
			for i := batchOffsets[bi]; i < batchOffsets[bi+1]; i++ {
				for _, vi := range [2]int32{plan.Ids1[i], plan.Ids2[i]} {
					prev := owner[vi]
					if prev >= firstBatch && prev != bi {
						return errors.Wrapf(ErrColorConflict, "color %d: batches %d and %d both touch point %d", c, prev, bi, vi)
					}
					owner[vi] = bi
				}
			}
		}
	}
	return nil
}
