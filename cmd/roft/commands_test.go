package main

import (
	"bytes"
	"io"
	"os"
	"path"
	"testing"

	"github.com/2x3systems/roft/libroft/mesh"
	"github.com/2x3systems/roft/roft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoft(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	planPath := path.Join(t.TempDir(), "plan.pb")
	out, err := execRoft(t, "plan", "--cols", "5", "--rows", "4", "--blobs=false", "-o", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "points:      20\n")
	assert.Contains(t, out, "cached:      false\n")

	buf, err := os.ReadFile(planPath)
	require.NoError(t, err)
	var plan roft.BatchPlan
	require.NoError(t, plan.Unmarshal(buf))
	assert.Equal(t, 20, plan.NumPoints())
	assert.NoError(t, plan.CheckConflicts())
}

func TestPlanCommandRejectsColorConflicts(t *testing.T) {
	planPath := path.Join(t.TempDir(), "plan.pb")
	_, err := execRoft(t, "plan", "--cols", "8", "--rows", "8", "--blob-dist", "1", "--min-connections", "2", "-o", planPath)
	assert.ErrorIs(t, err, roft.ErrColorConflict)
	assert.NoFileExists(t, planPath)
}

func TestPlanCommandCaches(t *testing.T) {
	cacheDir := path.Join(t.TempDir(), "plans")
	args := []string{"plan", "--cols", "6", "--rows", "5", "--plan-cache", cacheDir}

	out, err := execRoft(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "cached:      false\n")

	out, err = execRoft(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "cached:      true\n")

	// other build options make another plan
	out, err = execRoft(t, append(args, "--augment=false")...)
	require.NoError(t, err)
	assert.Contains(t, out, "cached:      false\n")
}

func TestSimulateCommand(t *testing.T) {
	for _, colored := range []string{"--colored=true", "--colored=false"} {
		t.Run(colored, func(t *testing.T) {
			objPath := path.Join(t.TempDir(), "out.obj")
			out, err := execRoft(t, "simulate", colored, "--cols", "6", "--rows", "6", "--steps", "30", "--workers", "2", "-o", objPath)
			require.NoError(t, err)
			assert.Contains(t, out, "steps:  30 (dt 0.016)\n")

			m, err := mesh.ReadOBJFile(objPath)
			require.NoError(t, err)
			start := mesh.NewQuadGrid(6, 6, DefaultSimConfig().Grid.Spacing)
			require.Equal(t, start.VertexCount(), m.VertexCount())
			assert.Equal(t, start.Triangles, m.Triangles)

			for _, vi := range mesh.CornerIndices(36, 6) {
				assert.Equal(t, start.Vertices[vi], m.Vertices[vi])
			}
			assert.Less(t, m.Vertices[14].Z, 0.0)
		})
	}
}

func TestSimulateConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := path.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("grid: {cols: 4, rows: 4}\nsteps: 0\n"), 0644))

	_, err := execRoft(t, "simulate", "-c", cfgPath)
	assert.ErrorIs(t, err, roft.ErrBadConfig)

	// flags win over the file
	out, err := execRoft(t, "simulate", "-c", cfgPath, "--steps", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "steps:  3 ")

	_, err = execRoft(t, "simulate", "-c", path.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDotCommand(t *testing.T) {
	out, err := execRoft(t, "dot", "--cols", "3", "--rows", "3", "--blobs=false")
	require.NoError(t, err)
	assert.Contains(t, out, "e0")
	assert.Contains(t, out, " -- ")

	dotPath := path.Join(t.TempDir(), "blobs.dot")
	out, err = execRoft(t, "dot", "--cols", "3", "--rows", "3", "-o", dotPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	buf, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	assert.Contains(t, string(buf), "b0")
}

func TestDotCommandReportsOutputErrors(t *testing.T) {
	_, err := execRoft(t, "dot", "--cols", "3", "--rows", "3", "-o", path.Join(t.TempDir(), "missing", "g.dot"))
	assert.Error(t, err)

	if _, statErr := os.Stat("/dev/full"); statErr != nil {
		t.Skip("no /dev/full")
	}
	_, err = execRoft(t, "dot", "--cols", "3", "--rows", "3", "-o", "/dev/full")
	assert.Error(t, err)
}
