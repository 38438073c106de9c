// Package softbody resolves a network of point masses and spring constraints with a fixed-iteration
// projected Gauss-Seidel solve, either sequentially or color by color across worker goroutines.
package softbody

import (
	"runtime"

	"github.com/2x3systems/roft/roft"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointMass is one simulated vertex; an InvMass of 0 pins it in place.
type PointMass struct {
	InvMass  float64
	Velocity r3.Vec
	Position r3.Vec
}

// ConstraintGeometry is a spring coupling points Id1 and Id2.
type ConstraintGeometry struct {
	Stiffness  float64
	RestLength float64
	Impulse    float64 // accumulated by the last Solve(), used to warm start the next one
	Id1        int32
	Id2        int32
}

// Opts specifies how a SoftBody spreads its work.
type Opts struct {
	Workers int // goroutines used per color; <= 0 means runtime.GOMAXPROCS(0)
}

// DefaultOpts uses every available core.
var DefaultOpts = Opts{}

func (opts Opts) numWorkers() int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Make sure SoftBody satisfies the roft.Simulator interface.
var _ roft.Simulator = (*SoftBody)(nil)
