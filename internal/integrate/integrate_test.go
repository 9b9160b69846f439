package integrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/mesh"
)

func buildSystem(t *testing.T, mut func(*membrane.Parameters, *membrane.Options)) *membrane.System {
	t.Helper()
	g := mesh.Icosphere(2, 1)
	p := membrane.DefaultParameters()
	o := membrane.DefaultOptions()
	if mut != nil {
		mut(&p, &o)
	}
	s, err := membrane.NewSystem(g, p, o, 11)
	require.NoError(t, err)
	return s
}

func dent(s *membrane.System) {
	for i, p := range s.Geo.Positions {
		f := 1 + 0.06*math.Sin(3*p.X)*math.Cos(2*p.Y+0.5)
		s.Geo.Positions[i] = r3.Scale(f, p)
	}
	s.UpdateConfigurations()
}

func TestEulerConvergesWithoutForces(t *testing.T) {
	// a system with no active terms has zero residual from the start
	sys := buildSystem(t, nil)
	res := NewEuler(sys, DefaultOptions(), nil).Run()

	assert.True(t, res.Success)
	assert.Equal(t, "converged", res.Reason)
	assert.Equal(t, 0, res.Iterations)
}

func TestEulerConvergesAtOwnTargets(t *testing.T) {
	// capturing the initial area and volume as the targets puts the sphere
	// at its constrained equilibrium: tension and pressure are both zero
	g := mesh.Icosphere(2, 1)
	p := membrane.DefaultParameters()
	p.Tension.Ksg = 1 // At stays -1: target is the initial area
	p.Osmotic.Kv = 1
	p.Osmotic.IsPreferredVolume = true
	p.Osmotic.Vt = g.Volume
	sys, err := membrane.NewSystem(g, p, membrane.DefaultOptions(), 11)
	require.NoError(t, err)

	res := NewEuler(sys, DefaultOptions(), nil).Run()
	assert.True(t, res.Success)
	assert.Equal(t, "converged", res.Reason)
}

func TestMutationIterationSkipsMarch(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
		o.IsEdgeMutation = true
	})
	// doubling the sphere leaves every edge at twice the captured target
	// length, so the first mutation event is guaranteed to split edges
	for i, p := range sys.Geo.Positions {
		sys.Geo.Positions[i] = r3.Scale(2, p)
	}
	sys.UpdateConfigurations()

	opts := DefaultOptions()
	opts.TimeStep = 0.01
	opts.TotalTime = 0.05
	opts.Tolerance = 1e-30
	opts.SavePeriod = 0 // snapshot every iteration
	opts.MutationPeriod = 0.01

	type snap struct {
		time float64
		nv   int
	}
	var snaps []snap
	save := func(s *membrane.System, iteration int) error {
		snaps = append(snaps, snap{s.Time, s.Geo.Mesh.NVertices()})
		return nil
	}
	res := NewEuler(sys, opts, save).Run()
	require.NoError(t, res.Err)

	grew := false
	for i := 1; i < len(snaps); i++ {
		if snaps[i].nv > snaps[i-1].nv {
			grew = true
			// the iteration that mutated the mesh must not have marched on
			// force slots evaluated against the old topology
			assert.Equal(t, snaps[i-1].time, snaps[i].time,
				"time advanced across a mutation without a fresh force evaluation")
		}
	}
	assert.True(t, grew, "no mutation event fired")
}

func TestOverdampedSteppersRejectDPDForcing(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.DPD.Gamma = 0.5
		p.Temp = 1
	})

	res := NewEuler(sys, DefaultOptions(), nil).Run()
	require.Error(t, res.Err)
	assert.Equal(t, "incompatible parameters", res.Reason)

	res = NewConjugateGradient(sys, DefaultOptions(), nil).Run()
	require.Error(t, res.Err)
	assert.Equal(t, "incompatible parameters", res.Reason)

	// the inertial scheme carries velocities, so it takes the same system
	res = NewVelocityVerlet(sys, DefaultOptions(), nil).Run()
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
}

func TestEulerNonFiniteTermination(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
	})
	opts := DefaultOptions()
	opts.TimeStep = 1e3 // hopeless overshoot; the state must blow up
	opts.TotalTime = 1e6
	opts.Tolerance = 1e-12

	res := NewEuler(sys, opts, nil).Run()
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "non-finite")
}

func TestTimeBudgetExhausted(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
	})
	opts := DefaultOptions()
	opts.Tolerance = 1e-30
	opts.TimeStep = 1e-6
	opts.TotalTime = 5e-6

	res := NewEuler(sys, opts, nil).Run()
	assert.False(t, res.Success)
	assert.Equal(t, "time budget exhausted before convergence", res.Reason)
	assert.GreaterOrEqual(t, res.FinalTime, opts.TotalTime)
}

func TestEulerBacktrackingNeverIncreasesPotential(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Bending.Kb = 1e-3
		p.Tension.Ksg = 0.5
		p.Tension.At = 10
	})
	dent(sys)

	opts := DefaultOptions()
	opts.TimeStep = 0.05
	opts.TotalTime = 0.2
	opts.Tolerance = 1e-12
	opts.SavePeriod = 0 // snapshot every iteration
	opts.Backtrack = true

	var potentials []float64
	save := func(s *membrane.System, iteration int) error {
		potentials = append(potentials, s.Energy.Potential)
		return nil
	}
	res := NewEuler(sys, opts, save).Run()
	require.NoError(t, res.Err)
	require.Greater(t, len(potentials), 2)

	for i := 1; i < len(potentials); i++ {
		assert.LessOrEqual(t, potentials[i], potentials[i-1]+1e-9,
			"potential grew at snapshot %d", i)
	}
}

func TestBacktrackRejectsAscentDirection(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
	})
	sys.ComputeConservativeForcing()
	sys.ComputeTotalEnergy()

	ascent := make([]r3.Vec, len(sys.Forces.Mechanical))
	for i, f := range sys.Forces.Mechanical {
		ascent[i] = r3.Scale(-1, f)
	}
	_, err := backtrack(sys, searchDirection{positions: ascent}, 1e-4, 0.5, 1e-4, 10)
	require.Error(t, err)
}

func TestVerletDivergenceGuard(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 11
	})
	opts := DefaultOptions()
	opts.TimeStep = 4 // far beyond the stability limit
	opts.TotalTime = 1e6
	opts.Tolerance = 1e-12
	opts.SavePeriod = 1e6

	res := NewVelocityVerlet(sys, opts, nil).Run()
	assert.False(t, res.Success)
	assert.Equal(t, "total energy exceeded 1.05x its initial value", res.Reason)
}

func TestAdaptiveStepSize(t *testing.T) {
	sys := buildSystem(t, nil)
	opts := DefaultOptions()
	opts.AdaptiveStep = true
	opts.Dt2Ratio = 0.25

	e := NewEuler(sys, opts, nil)
	min := sys.Geo.MinEdgeLength()
	assert.InDelta(t, 0.25*min*min, e.stepSize(), 1e-15)

	opts.AdaptiveStep = false
	e = NewEuler(sys, opts, nil)
	assert.Equal(t, opts.TimeStep, e.stepSize())
}

func TestIntegratorSingleUse(t *testing.T) {
	sys := buildSystem(t, nil)
	e := NewEuler(sys, DefaultOptions(), nil)
	first := e.Run()
	require.NoError(t, first.Err)

	second := e.Run()
	require.Error(t, second.Err)
	assert.Equal(t, "integrator reused", second.Reason)
}

func TestSaveErrorAbortsRun(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
	})
	opts := DefaultOptions()
	opts.Tolerance = 1e-30

	boom := func(s *membrane.System, iteration int) error {
		return assert.AnError
	}
	res := NewEuler(sys, opts, boom).Run()
	require.Error(t, res.Err)
	assert.Equal(t, "snapshot persistence failed", res.Reason)
}

func TestTightenConstraints(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Tension.Ksg = 1
		p.Tension.At = 10
		p.Osmotic.Kv = 1
		p.Osmotic.IsPreferredVolume = true
		p.Osmotic.Vt = 3
	})
	cg := NewConjugateGradient(sys, DefaultOptions(), nil)
	cg.AugmentedLagrangian = true

	// the sphere starts away from both targets, so both multipliers move
	require.True(t, cg.tightenConstraints())
	assert.NotEqual(t, 0.0, sys.Params.LambdaSG)
	assert.NotEqual(t, 0.0, sys.Params.LambdaV)

	areaErr := (sys.Geo.SurfaceArea - sys.TargetArea) / sys.TargetArea
	assert.InDelta(t, areaErr, sys.Params.LambdaSG, 1e-12)
}

func TestConjugateGradientRelaxesVesicle(t *testing.T) {
	sys := buildSystem(t, func(p *membrane.Parameters, o *membrane.Options) {
		p.Bending.Kb = 1e-3
		p.Tension.Ksg = 0.5
		p.Tension.At = 12 // close to the initial area
	})
	dent(sys)
	sys.ComputeConservativeForcing()
	sys.ComputeTotalEnergy()
	e0 := sys.Energy.Potential

	opts := DefaultOptions()
	opts.TimeStep = 0.05
	opts.TotalTime = 0.5
	opts.Tolerance = 1e-12 // never reached; run the whole budget

	res := NewConjugateGradient(sys, opts, nil).Run()
	require.NoError(t, res.Err)
	sys.ComputeTotalEnergy()
	assert.Less(t, sys.Energy.Potential, e0)
}
