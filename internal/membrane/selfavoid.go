package membrane

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Self-avoidance penalizes pairs of vertices that come closer than D0 while
// being topologically distant, so approaching sheets repel before they
// interpenetrate. Vertices within the configured neighborhood ring are
// excluded; local mesh density is the remesher's business, not a collision.
func (s *System) computeSelfAvoidanceForce() {
	g := s.Geo
	m := g.Mesh
	mu := s.Params.SelfAvoidance.Mu
	d0 := s.Params.SelfAvoidance.D0
	ring := s.Params.SelfAvoidance.Ring
	if ring < 1 {
		ring = 1
	}

	zeroVec(s.Forces.SelfAvoidance)
	nv := m.NVertices()
	for i := 0; i < nv; i++ {
		excluded := m.Ring(i, ring)
		pi := g.Positions[i]
		for j := i + 1; j < nv; j++ {
			if excluded[j] {
				continue
			}
			d := r3.Sub(pi, g.Positions[j])
			dist := r3.Norm(d)
			if dist >= d0 || dist == 0 {
				continue
			}
			f := r3.Scale(mu*(d0-dist)/dist, d)
			s.Forces.SelfAvoidance[i] = r3.Add(s.Forces.SelfAvoidance[i], f)
			s.Forces.SelfAvoidance[j] = r3.Sub(s.Forces.SelfAvoidance[j], f)
		}
	}
}

// selfAvoidanceEnergy is the quadratic overlap penalty matching the pair
// force above.
func (s *System) selfAvoidanceEnergy() float64 {
	g := s.Geo
	m := g.Mesh
	mu := s.Params.SelfAvoidance.Mu
	if mu == 0 {
		return 0
	}
	d0 := s.Params.SelfAvoidance.D0
	ring := s.Params.SelfAvoidance.Ring
	if ring < 1 {
		ring = 1
	}

	e := 0.0
	nv := m.NVertices()
	for i := 0; i < nv; i++ {
		excluded := m.Ring(i, ring)
		pi := g.Positions[i]
		for j := i + 1; j < nv; j++ {
			if excluded[j] {
				continue
			}
			dist := r3.Norm(r3.Sub(pi, g.Positions[j]))
			if dist >= d0 {
				continue
			}
			e += 0.5 * mu * (d0 - dist) * (d0 - dist)
		}
	}
	return e
}
