package membrane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSphereBendingEnergy(t *testing.T) {
	// for H0 = 0 the bending energy of a sphere is Kb * (1/r^2) * 4 pi r^2,
	// independent of radius
	const kb = 1e-2
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		p.Bending.Kb = kb
	})
	s.ComputeTotalEnergy()
	assert.InEpsilon(t, 4*math.Pi*kb, s.Energy.Bending, 0.1)
}

func TestEnergyRecomputeDeterminism(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		p.Bending.Kb = 1e-3
		p.Tension.Ksg = 0.5
		p.Tension.At = 10
		p.Osmotic.Kv = 0.5
		p.Osmotic.IsPreferredVolume = true
		p.Osmotic.Vt = 3
		p.Adsorption.Epsilon = 0.2
	})
	perturb(s, 0.05)
	s.ComputeTotalEnergy()
	first := s.Energy
	s.ComputeTotalEnergy()
	assert.Equal(t, first, s.Energy)
}

func TestTotalEnergyIdentity(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		p.Bending.Kb = 1e-3
		p.Tension.Ksg = 0.5
		p.Tension.At = 10
	})
	for i := range s.Velocities {
		s.Velocities[i] = r3.Vec{X: 0.1, Y: -0.2, Z: 0.05}
	}
	s.Energy.ExternalWork = 1.23
	s.ComputeTotalEnergy()

	assert.Equal(t, 1.23, s.Energy.ExternalWork, "external work must survive re-evaluation")
	assert.Greater(t, s.Energy.Kinetic, 0.0)
	assert.Zero(t, s.Energy.AreaDifference, "no area-difference modulus is configured")
	assert.InDelta(t, s.Energy.Kinetic+s.Energy.Potential-1.23, s.Energy.Total, 1e-12)
}

func TestCapMeasureExcludesInteriorPenalty(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		o.IsProteinVariation = true
		p.Bc = 1
		p.Protein0 = []float64{0.5}
		p.LambdaPhi = 0.1
	})
	s.ComputeTotalEnergy()
	assert.NotEqual(t, 0.0, s.Energy.InteriorPenalty)
	assert.InDelta(t, s.Energy.Total-s.Energy.InteriorPenalty, s.Energy.CapMeasure(), 1e-12)
}

func TestSpringEnergyExcludedFromPotential(t *testing.T) {
	s := sphereSystem(t, func(p *Parameters, o *Options) {
		p.Kse = 1
		p.Ksl = 1
		p.Kst = 1
	})
	perturb(s, 0.08)
	s.ComputeTotalEnergy()

	assert.Greater(t, s.Energy.EdgeSpring, 0.0)
	assert.Greater(t, s.Energy.FaceSpring, 0.0)
	// deformed sphere: bending is the only physical term configured
	assert.InDelta(t, s.Energy.Bending+s.Energy.Deviatoric, s.Energy.Potential, 1e-12)
}
