package roft

import "github.com/pkg/errors"

// Errors
var (
	ErrEmptyGraph             = errors.New("graph has no nodes to color")
	ErrNotColored             = errors.New("graph has not been colored correctly")
	ErrBadVtxIndex            = errors.New("bad vertex index")
	ErrBadTriangleBuffer      = errors.New("bad triangle buffer")
	ErrMassCountMismatch      = errors.New("vertex buffer and mass informations must have the same size")
	ErrStiffnessCountMismatch = errors.New("edge buffer and stiffness informations must have the same size")
	ErrColorConflict          = errors.New("batches of the same color share a point mass")
	ErrBadPlan                = errors.New("bad or inconsistent batch plan")
	ErrBadEncoding            = errors.New("bad batch plan encoding")
	ErrPlanNotFound           = errors.New("batch plan not found")
	ErrBadConfig              = errors.New("bad simulation config")
	ErrStoreClosed            = errors.New("plan store is closed")
)
