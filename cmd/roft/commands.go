package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2x3systems/roft/libroft"
	"github.com/2x3systems/roft/libroft/mesh"
	"github.com/2x3systems/roft/libroft/planstore"
	"github.com/2x3systems/roft/libroft/softbody"
	"github.com/2x3systems/roft/roft"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/spatial/r3"
)

// kLogEvery is how many simulation steps pass between progress lines.
const kLogEvery = 60

// app holds the values bound to command line flags.
type app struct {
	configPath string
	outPath    string
	flags      SimConfig // overrides cfg fields whose flag was set
}

func newRootCmd() *cobra.Command {
	a := &app{
		flags: DefaultSimConfig(),
	}

	rootCmd := &cobra.Command{
		Use:          "roft",
		Short:        "Colors the constraint graph of a soft body mesh and simulates it",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML simulation config")
	pf.StringVar(&a.flags.Mesh, "mesh", "", "OBJ mesh file (default: a generated grid)")
	pf.IntVar(&a.flags.Grid.Cols, "cols", a.flags.Grid.Cols, "grid columns")
	pf.IntVar(&a.flags.Grid.Rows, "rows", a.flags.Grid.Rows, "grid rows")
	pf.Float64Var(&a.flags.Grid.Spacing, "spacing", a.flags.Grid.Spacing, "grid spacing")
	pf.BoolVar(&a.flags.Build.Augment, "augment", a.flags.Build.Augment, "link vertices 2 apart sharing 2 neighbors")
	pf.BoolVar(&a.flags.Build.UseBlobs, "blobs", a.flags.Build.UseBlobs, "color blobs of edges rather than single edges")
	pf.Uint32Var(&a.flags.Build.BlobDist, "blob-dist", a.flags.Build.BlobDist, "BFS radius of a blob")
	pf.Uint32Var(&a.flags.Build.MinConnections, "min-connections", a.flags.Build.MinConnections, "blobs with at most this many adjacent edge pairs are independent")
	pf.BoolVar(&a.flags.Build.SeverPruned, "sever", a.flags.Build.SeverPruned, "also remove edge adjacency between independent blobs")
	pf.StringVar(&a.flags.PlanCache, "plan-cache", "", "directory of the plan cache (default: no caching)")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Build (or load) the batch plan of a mesh and print its stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runPlan(&cfg, cmd.OutOrStdout(), a.outPath)
		},
	}
	planCmd.Flags().StringVarP(&a.outPath, "out", "o", "", "write the encoded plan to this file")

	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the soft body simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runSimulate(&cfg, cmd.OutOrStdout(), a.outPath)
		},
	}
	sf := simCmd.Flags()
	sf.IntVar(&a.flags.Steps, "steps", a.flags.Steps, "number of steps")
	sf.Float64Var(&a.flags.Timestep, "dt", a.flags.Timestep, "timestep in seconds")
	sf.Float64Var(&a.flags.Stiffness, "stiffness", a.flags.Stiffness, "spring stiffness")
	sf.BoolVar(&a.flags.Solver.Colored, "colored", a.flags.Solver.Colored, "solve color by color across workers")
	sf.IntVar(&a.flags.Solver.Workers, "workers", a.flags.Solver.Workers, "worker goroutines (0: one per core)")
	sf.BoolVar(&a.flags.Anchors.Corners, "corners", a.flags.Anchors.Corners, "pin the grid corners")
	sf.StringVarP(&a.outPath, "out", "o", "", "write the final mesh to this OBJ file")

	dotCmd := &cobra.Command{
		Use:   "dot",
		Short: "Write the colored line graph (or blob graph with --blobs) as graphviz DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runDot(&cfg, cmd.OutOrStdout(), a.outPath)
		},
	}
	dotCmd.Flags().StringVarP(&a.outPath, "out", "o", "", "write to this file rather than stdout")

	rootCmd.AddCommand(planCmd, simCmd, dotCmd)
	return rootCmd
}

// loadConfig reads the config file then applies every flag that was explicitly set.
func (a *app) loadConfig(flags *pflag.FlagSet) (SimConfig, error) {
	cfg, err := LoadSimConfig(a.configPath)
	if err != nil {
		return cfg, err
	}

	overrides := map[string]func(){
		"mesh":            func() { cfg.Mesh = a.flags.Mesh },
		"cols":            func() { cfg.Grid.Cols = a.flags.Grid.Cols },
		"rows":            func() { cfg.Grid.Rows = a.flags.Grid.Rows },
		"spacing":         func() { cfg.Grid.Spacing = a.flags.Grid.Spacing },
		"augment":         func() { cfg.Build.Augment = a.flags.Build.Augment },
		"blobs":           func() { cfg.Build.UseBlobs = a.flags.Build.UseBlobs },
		"blob-dist":       func() { cfg.Build.BlobDist = a.flags.Build.BlobDist },
		"min-connections": func() { cfg.Build.MinConnections = a.flags.Build.MinConnections },
		"sever":           func() { cfg.Build.SeverPruned = a.flags.Build.SeverPruned },
		"plan-cache":      func() { cfg.PlanCache = a.flags.PlanCache },
		"steps":           func() { cfg.Steps = a.flags.Steps },
		"dt":              func() { cfg.Timestep = a.flags.Timestep },
		"stiffness":       func() { cfg.Stiffness = a.flags.Stiffness },
		"colored":         func() { cfg.Solver.Colored = a.flags.Solver.Colored },
		"workers":         func() { cfg.Solver.Workers = a.flags.Solver.Workers },
		"corners":         func() { cfg.Anchors.Corners = a.flags.Anchors.Corners },
	}
	flags.Visit(func(f *pflag.Flag) {
		if apply := overrides[f.Name]; apply != nil {
			apply()
		}
	})

	return cfg, cfg.Validate()
}

// loadPlan returns the batch plan for m, going through the plan cache if one is configured.
func loadPlan(cfg *SimConfig, m *roft.Mesh) (*roft.BatchPlan, bool, error) {
	var store roft.PlanStore
	if cfg.PlanCache != "" {
		st, err := planstore.Open(planstore.Opts{
			DbPathName: cfg.PlanCache,
		})
		if err != nil {
			return nil, false, err
		}
		defer st.Close()
		store = st
	}
	return libroft.LoadOrBuildPlan(store, m, cfg.Build.Opts())
}

func runPlan(cfg *SimConfig, w io.Writer, outPath string) error {
	m, err := cfg.LoadMesh()
	if err != nil {
		return err
	}
	plan, cached, err := loadPlan(cfg, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "points:      %d\n", plan.NumPoints())
	fmt.Fprintf(w, "constraints: %d\n", plan.NumConstraints())
	fmt.Fprintf(w, "colors:      %d\n", plan.NumColors())
	fmt.Fprintf(w, "batches:     %d\n", plan.NumBatches())
	fmt.Fprintf(w, "cached:      %v\n", cached)

	if outPath == "" {
		return nil
	}
	buf, err := plan.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, buf, 0644)
}

func newSoftBody(cfg *SimConfig, m *roft.Mesh) (*softbody.SoftBody, error) {
	invMasses, err := cfg.InvMasses(m)
	if err != nil {
		return nil, err
	}
	opts := softbody.Opts{
		Workers: cfg.Solver.Workers,
	}

	if cfg.Solver.Colored {
		plan, _, err := loadPlan(cfg, m)
		if err != nil {
			return nil, err
		}
		return softbody.NewFromPlan(plan, invMasses, cfg.StiffnessFor(plan.NumConstraints()), opts)
	}

	mg, err := libroft.NewMeshGraph(m)
	if err != nil {
		return nil, err
	}
	if cfg.Build.Augment {
		mg.Augment()
	}
	mg.BuildEdgeGraph()
	positions, ids1, ids2 := mg.Export()
	return softbody.New(positions, ids1, ids2, invMasses, cfg.StiffnessFor(len(ids1)), opts)
}

func runSimulate(cfg *SimConfig, w io.Writer, outPath string) error {
	m, err := cfg.LoadMesh()
	if err != nil {
		return err
	}
	sb, err := newSoftBody(cfg, m)
	if err != nil {
		return err
	}

	gravity := cfg.GravityVec()
	var positions []r3.Vec
	for step := 1; step <= cfg.Steps; step++ {
		sb.Step(cfg.Timestep, gravity)
		if step%kLogEvery == 0 {
			positions = sb.Positions(positions[:0])
			lo, hi := zRange(positions)
			klog.V(2).Infof("step %4d: z in [%.4f, %.4f]", step, lo, hi)
		}
	}

	positions = sb.Positions(positions[:0])
	lo, hi := zRange(positions)
	fmt.Fprintf(w, "steps:  %d (dt %g)\n", cfg.Steps, cfg.Timestep)
	fmt.Fprintf(w, "z min:  %.6f\n", lo)
	fmt.Fprintf(w, "z max:  %.6f\n", hi)

	if outPath == "" {
		return nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err = mesh.WriteOBJ(f, m, positions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func zRange(positions []r3.Vec) (lo, hi float64) {
	for i, p := range positions {
		if i == 0 || p.Z < lo {
			lo = p.Z
		}
		if i == 0 || p.Z > hi {
			hi = p.Z
		}
	}
	return lo, hi
}

func runDot(cfg *SimConfig, w io.Writer, outPath string) error {
	m, err := cfg.LoadMesh()
	if err != nil {
		return err
	}
	mg, err := libroft.BuildMeshGraph(m, cfg.Build.Opts())
	if err != nil {
		return err
	}

	writeDot := mg.WriteLineGraphDot
	if cfg.Build.UseBlobs {
		writeDot = mg.WriteBlobGraphDot
	}

	if outPath == "" {
		return writeDot(w)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err = writeDot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
