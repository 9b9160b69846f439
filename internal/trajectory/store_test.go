package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/mesh"
)

func testSystem(t *testing.T) *membrane.System {
	t.Helper()
	p := membrane.DefaultParameters()
	p.Tension.Ksg = 0.5
	p.Tension.At = 10
	sys, err := membrane.NewSystem(mesh.Icosphere(1, 1), p, membrane.DefaultOptions(), 3)
	require.NoError(t, err)
	sys.ComputeConservativeForcing()
	sys.ComputeTotalEnergy()
	return sys
}

func TestRunLifecycle(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())
	sys := testSystem(t)

	run, err := store.Begin("relax", "euler", 3, sys)
	require.NoError(t, err)

	require.NoError(t, run.SaveFrame(sys, 0))
	sys.Time = 0.1
	require.NoError(t, run.SaveFrame(sys, 25))
	require.NoError(t, run.Finish(true, "converged", 25, 0.1))

	meta, err := store.Load(run.ID())
	require.NoError(t, err)
	assert.Equal(t, "finished", meta.Status)
	assert.Equal(t, "converged", meta.Reason)
	assert.Equal(t, 2, meta.Frames)
	assert.Equal(t, 25, meta.Iterations)
	assert.Equal(t, sys.Geo.Mesh.NVertices(), meta.NVertices)

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID(), runs[0].ID)
}

func TestLoadFrame(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())
	sys := testSystem(t)

	run, err := store.Begin("relax", "euler", 3, sys)
	require.NoError(t, err)
	require.NoError(t, run.SaveFrame(sys, 0))
	require.NoError(t, run.Finish(true, "converged", 0, 0))

	g, scalars, err := store.LoadFrame(run.ID(), -1)
	require.NoError(t, err)
	assert.Equal(t, sys.Geo.Mesh.NVertices(), g.Mesh.NVertices())
	for _, name := range []string{"phi", "vx", "vy", "vz"} {
		assert.Contains(t, scalars, name)
	}
	assert.Equal(t, sys.ProteinDensity, scalars["phi"])
}

func TestLoadFrameEmptyRun(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())
	sys := testSystem(t)

	run, err := store.Begin("empty", "euler", 3, sys)
	require.NoError(t, err)
	require.NoError(t, run.Finish(false, "aborted", 0, 0))

	_, _, err = store.LoadFrame(run.ID(), -1)
	require.Error(t, err)
}

func TestLoadEnergy(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())
	sys := testSystem(t)

	run, err := store.Begin("relax", "cg", 3, sys)
	require.NoError(t, err)
	require.NoError(t, run.SaveFrame(sys, 0))
	sys.Time = 0.5
	require.NoError(t, run.SaveFrame(sys, 10))
	require.NoError(t, run.Finish(true, "converged", 10, 0.5))

	series, err := store.LoadEnergy(run.ID())
	require.NoError(t, err)
	require.Contains(t, series, "total")
	require.Contains(t, series, "surface")
	assert.Len(t, series["total"], 2)
	assert.Equal(t, []float64{0, 0.5}, series["time"])
}

func TestListEmptyStore(t *testing.T) {
	store := New(t.TempDir())
	runs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
