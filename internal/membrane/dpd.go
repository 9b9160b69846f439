package membrane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DPD pair forces over mesh edges. Damping projects the relative velocity of
// the endpoints onto the edge direction; the stochastic kick is a zero-mean
// Gaussian along the same direction with the fluctuation-dissipation
// amplitude sigma = sqrt(2 gamma Temp / dt). Both act equal and opposite on
// the endpoints, so the pair forces conserve linear momentum exactly.
//
// Edges are visited in index order and the noise source is owned by the
// System, so a run is reproducible for a given seed.
func (s *System) computeDPDForces(dt float64) {
	g := s.Geo
	gamma := s.Params.DPD.Gamma
	sigma := math.Sqrt(2 * gamma * s.Params.Temp / dt)

	zeroVec(s.Forces.Damping)
	zeroVec(s.Forces.Stochastic)
	for ei, e := range g.Mesh.Edges() {
		l := g.EdgeLengths[ei]
		if l == 0 {
			continue
		}
		dir := r3.Scale(1/l, r3.Sub(g.Positions[e.V1], g.Positions[e.V0]))

		dv := r3.Sub(s.Velocities[e.V1], s.Velocities[e.V0])
		damp := r3.Scale(gamma*r3.Dot(dv, dir), dir)
		s.Forces.Damping[e.V0] = r3.Add(s.Forces.Damping[e.V0], damp)
		s.Forces.Damping[e.V1] = r3.Sub(s.Forces.Damping[e.V1], damp)

		if sigma != 0 {
			kick := r3.Scale(sigma*s.noise.Rand(), dir)
			s.Forces.Stochastic[e.V0] = r3.Add(s.Forces.Stochastic[e.V0], kick)
			s.Forces.Stochastic[e.V1] = r3.Sub(s.Forces.Stochastic[e.V1], kick)
		}
	}
}
