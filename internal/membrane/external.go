package membrane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// External force: a Gaussian profile in geodesic distance from the center
// vertex, pulling each vertex toward the target height along z. The work it
// performs is accumulated separately and enters the total energy with a
// negative sign; it is not part of the potential energy.
func (s *System) computeExternalForce() {
	p := &s.Params
	for i := range s.Forces.External {
		g := math.Exp(-s.GeodesicDistances[i] * s.GeodesicDistances[i] * p.External.Conc)
		pull := -p.External.Kf * g * (s.Geo.Positions[i].Z - p.External.Height)
		s.Forces.External[i] = r3.Vec{Z: pull}
	}
}

// AccumulateExternalWork integrates the external power over one step using
// the current velocities. Integrators call it after each march.
func (s *System) AccumulateExternalWork(dt float64) {
	if s.Params.External.Kf == 0 {
		return
	}
	for i, f := range s.Forces.External {
		s.Energy.ExternalWork += dt * r3.Dot(maskVec(s.ForceMask[i], f), s.Velocities[i])
	}
}
