package main

import (
	"bytes"
	"io"
	"os"

	"github.com/2x3systems/roft/libroft/mesh"
	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// GridConfig describes the generated quad grid used when no mesh file is given.
type GridConfig struct {
	Cols    int     `yaml:"cols"`
	Rows    int     `yaml:"rows"`
	Spacing float64 `yaml:"spacing"`
}

// BuildConfig mirrors roft.BuildOpts.
type BuildConfig struct {
	Augment        bool   `yaml:"augment"`
	UseBlobs       bool   `yaml:"use_blobs"`
	BlobDist       uint32 `yaml:"blob_dist"`
	MinConnections uint32 `yaml:"min_connections"`
	SeverPruned    bool   `yaml:"sever_pruned"`
}

func (bc BuildConfig) Opts() roft.BuildOpts {
	return roft.BuildOpts{
		Augment:        bc.Augment,
		UseBlobs:       bc.UseBlobs,
		BlobDist:       bc.BlobDist,
		MinConnections: bc.MinConnections,
		SeverPruned:    bc.SeverPruned,
	}
}

// SolverConfig selects how constraints are resolved.
type SolverConfig struct {
	Colored bool `yaml:"colored"` // solve color by color from a BatchPlan, otherwise sequentially
	Workers int  `yaml:"workers"` // 0 means one per core
}

// AnchorConfig lists the pinned (zero inverse mass) points.
type AnchorConfig struct {
	Corners bool    `yaml:"corners"` // pin the four corners of a generated grid; ignored for mesh files
	Ids     []int32 `yaml:"ids"`
}

// SimConfig is the YAML document read by the simulate, plan and dot commands.
type SimConfig struct {
	Mesh      string       `yaml:"mesh"` // OBJ pathname; if empty, Grid is used
	Grid      GridConfig   `yaml:"grid"`
	Build     BuildConfig  `yaml:"build"`
	Solver    SolverConfig `yaml:"solver"`
	Anchors   AnchorConfig `yaml:"anchors"`
	Timestep  float64      `yaml:"timestep"`
	Gravity   [3]float64   `yaml:"gravity"`
	Steps     int          `yaml:"steps"`
	Stiffness float64      `yaml:"stiffness"`
	PlanCache string       `yaml:"plan_cache"` // badger dir for cached plans; empty disables caching
}

// DefaultSimConfig returns the demo setup: a 32x32 grid hanging from its corners.
func DefaultSimConfig() SimConfig {
	opts := roft.DefaultBuildOpts
	return SimConfig{
		Grid: GridConfig{
			Cols:    32,
			Rows:    32,
			Spacing: 100.0 / 31,
		},
		Build: BuildConfig{
			Augment:        opts.Augment,
			UseBlobs:       opts.UseBlobs,
			BlobDist:       opts.BlobDist,
			MinConnections: opts.MinConnections,
			SeverPruned:    opts.SeverPruned,
		},
		Solver: SolverConfig{
			Colored: true,
		},
		Anchors: AnchorConfig{
			Corners: true,
		},
		Timestep:  roft.DefaultTimestep,
		Gravity:   [3]float64{roft.DefaultGravity.X, roft.DefaultGravity.Y, roft.DefaultGravity.Z},
		Steps:     600,
		Stiffness: roft.DefaultStiffness,
	}
}

// ReadSimConfig overlays the YAML document in r onto the defaults.  Unknown keys are an error.
func ReadSimConfig(r io.Reader) (SimConfig, error) {
	cfg := DefaultSimConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(roft.ErrBadConfig, "%v", err)
	}
	return cfg, nil
}

// LoadSimConfig reads the config file at pathname, or returns the defaults if pathname is empty.
func LoadSimConfig(pathname string) (SimConfig, error) {
	if pathname == "" {
		return DefaultSimConfig(), nil
	}
	src, err := os.ReadFile(pathname)
	if err != nil {
		return SimConfig{}, err
	}
	cfg, err := ReadSimConfig(bytes.NewReader(src))
	if err != nil {
		return cfg, errors.WithMessage(err, pathname)
	}
	return cfg, nil
}

// Validate returns ErrBadConfig if cfg cannot drive a simulation.
func (cfg *SimConfig) Validate() error {
	switch {
	case cfg.Timestep <= 0:
		return errors.Wrapf(roft.ErrBadConfig, "timestep must be positive, got %g", cfg.Timestep)
	case cfg.Steps <= 0:
		return errors.Wrapf(roft.ErrBadConfig, "steps must be positive, got %d", cfg.Steps)
	case cfg.Stiffness <= 0:
		return errors.Wrapf(roft.ErrBadConfig, "stiffness must be positive, got %g", cfg.Stiffness)
	case cfg.Solver.Workers < 0:
		return errors.Wrapf(roft.ErrBadConfig, "workers must not be negative, got %d", cfg.Solver.Workers)
	}

	if cfg.Mesh == "" {
		if cfg.Grid.Cols < 2 || cfg.Grid.Rows < 2 {
			return errors.Wrapf(roft.ErrBadConfig, "grid must be at least 2x2, got %dx%d", cfg.Grid.Cols, cfg.Grid.Rows)
		}
		if cfg.Grid.Spacing <= 0 {
			return errors.Wrapf(roft.ErrBadConfig, "grid spacing must be positive, got %g", cfg.Grid.Spacing)
		}
	}
	return nil
}

// LoadMesh reads or generates the mesh named by cfg.
func (cfg *SimConfig) LoadMesh() (*roft.Mesh, error) {
	if cfg.Mesh != "" {
		return mesh.ReadOBJFile(cfg.Mesh)
	}
	return mesh.NewQuadGrid(cfg.Grid.Cols, cfg.Grid.Rows, cfg.Grid.Spacing), nil
}

// InvMasses returns a unit inverse mass for every point of m except the configured anchors.
func (cfg *SimConfig) InvMasses(m *roft.Mesh) ([]float64, error) {
	invMasses := make([]float64, m.VertexCount())
	for i := range invMasses {
		invMasses[i] = 1
	}

	anchors := cfg.Anchors.Ids
	if cfg.Anchors.Corners && cfg.Mesh == "" {
		anchors = append(mesh.CornerIndices(m.VertexCount(), cfg.Grid.Cols), anchors...)
	}
	for _, vi := range anchors {
		if vi < 0 || int(vi) >= len(invMasses) {
			return nil, errors.Wrapf(roft.ErrBadVtxIndex, "anchor %d (vertex count %d)", vi, len(invMasses))
		}
		invMasses[vi] = 0
	}
	return invMasses, nil
}

// StiffnessFor returns the configured stiffness for each of numConstraints springs.
func (cfg *SimConfig) StiffnessFor(numConstraints int) []float64 {
	stiffness := make([]float64, numConstraints)
	for i := range stiffness {
		stiffness[i] = cfg.Stiffness
	}
	return stiffness
}

func (cfg *SimConfig) GravityVec() r3.Vec {
	return r3.Vec{X: cfg.Gravity[0], Y: cfg.Gravity[1], Z: cfg.Gravity[2]}
}
