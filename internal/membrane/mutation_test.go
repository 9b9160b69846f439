package membrane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/remesh"
)

func TestMutateMeshNoop(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsEdgeMutation = true
	})
	proc := remesh.New(s.TargetEdgeLength)

	nv := s.Geo.Mesh.NVertices()
	assert.Equal(t, 0, s.MutateMesh(proc, 0))
	assert.Equal(t, nv, s.Geo.Mesh.NVertices())

	s.Opts.IsEdgeMutation = false
	assert.Equal(t, 0, s.MutateMesh(proc, 10))
}

func TestMutateMeshSplitsLongEdges(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsEdgeMutation = true
		p.Protein0 = []float64{0.9, 0.1, 0.8, 10}
	})
	// a target well below the current edge length forces splits
	proc := remesh.New(0.4 * s.TargetEdgeLength)

	nv := s.Geo.Mesh.NVertices()
	applied := s.MutateMesh(proc, 8)
	require.Greater(t, applied, 0)
	assert.Greater(t, s.Geo.Mesh.NVertices(), nv)

	// still a closed genus-0 surface
	m := s.Geo.Mesh
	assert.Equal(t, 2, m.NVertices()-m.NEdges()+m.NFaces())
	assertFieldsConsistent(t, s)
}

func TestMutateMeshCollapsesShortEdges(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsEdgeMutation = true
	})
	// a target well above the current edge length forces collapses
	proc := remesh.New(4 * s.TargetEdgeLength)
	proc.FlipDihedralLimit = 0 // isolate the collapse path

	nv := s.Geo.Mesh.NVertices()
	applied := s.MutateMesh(proc, 4)
	require.Greater(t, applied, 0)
	assert.Less(t, s.Geo.Mesh.NVertices(), nv)

	m := s.Geo.Mesh
	assert.Equal(t, 2, m.NVertices()-m.NEdges()+m.NFaces())
	assertFieldsConsistent(t, s)
}

func TestVertexShiftWithoutEdgeMutation(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsVertexShift = true
	})
	perturb(s, 0.05)
	before := make([]r3.Vec, len(s.Geo.Positions))
	copy(before, s.Geo.Positions)

	proc := remesh.New(s.TargetEdgeLength)
	assert.Equal(t, 0, s.MutateMesh(proc, 10))

	shifted := false
	for i, p := range s.Geo.Positions {
		if p != before[i] {
			shifted = true
			break
		}
	}
	assert.True(t, shifted, "tangential relaxation should move interior vertices")
	assert.Equal(t, len(before), len(s.Geo.Positions), "vertex shift must not change topology")
}

func TestSmoothenMeshDampsSpike(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		p.Bending.Kb = 1e-2
	})
	const spike = 0
	s.Geo.Positions[spike] = r3.Scale(1.4, s.Geo.Positions[spike])
	s.UpdateConfigurations()

	maxH := func() float64 {
		out := 0.0
		for _, h := range s.Geo.MeanCurvatures {
			out = math.Max(out, math.Abs(h))
		}
		return out
	}
	h0 := maxH()
	r0 := r3.Norm(s.Geo.Positions[spike])

	s.SmoothenMesh(0.2, 30)

	assert.Less(t, r3.Norm(s.Geo.Positions[spike]), r0, "spike should be pulled back toward its neighbors")
	assert.Less(t, maxH(), h0)
	require.NoError(t, s.CheckFiniteness())
}

func TestMutateMeshThenForces(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsEdgeMutation = true
		o.IsVertexShift = true
		p.Bending.Kb = 1e-3
		p.Tension.Ksg = 0.5
		p.Tension.At = 10
	})
	proc := remesh.New(0.4 * s.TargetEdgeLength)
	require.Greater(t, s.MutateMesh(proc, 6), 0)

	// derived state must be coherent enough for a full evaluation
	s.ComputeConservativeForcing()
	s.ComputeTotalEnergy()
	require.NoError(t, s.CheckFiniteness())
}

// assertFieldsConsistent verifies every per-vertex field tracks the mutated
// vertex count and interpolated densities stay in the physical range.
func assertFieldsConsistent(t *testing.T, s *System) {
	t.Helper()
	nv := s.Geo.Mesh.NVertices()
	assert.Len(t, s.ProteinDensity, nv)
	assert.Len(t, s.Velocities, nv)
	assert.Len(t, s.Forces.Mechanical, nv)
	assert.Len(t, s.Potentials.Total, nv)
	assert.Len(t, s.ForceMask, nv)
	assert.Len(t, s.GeodesicDistances, nv)
	for i, phi := range s.ProteinDensity {
		assert.GreaterOrEqual(t, phi, 0.0, "vertex %d", i)
		assert.LessOrEqual(t, phi, 1.0, "vertex %d", i)
	}
}
