package membrane

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Regularization springs. These are numerical terms that keep the
// triangulation from degenerating while the physical forces deform the
// surface. They act in the tangent plane only, so they reshuffle vertices
// along the surface without fighting the physical normal motion, and they
// never enter the physical energy balance.

func (s *System) computeSpringForces() {
	p := &s.Params
	if p.Kse != 0 {
		s.computeEdgeSpringForce()
	} else {
		zeroVec(s.Forces.EdgeSpring)
	}
	if p.Ksl != 0 {
		s.computeFaceSpringForce()
	} else {
		zeroVec(s.Forces.FaceSpring)
	}
	if p.Kst != 0 {
		s.computeLcrSpringForce()
	} else {
		zeroVec(s.Forces.LcrSpring)
	}
}

func (s *System) projectTangent(v int, f r3.Vec) r3.Vec {
	n := s.Geo.VertexNormals[v]
	return r3.Sub(f, r3.Scale(r3.Dot(f, n), n))
}

// computeEdgeSpringForce penalizes deviation of each edge length from the
// target length captured at construction.
func (s *System) computeEdgeSpringForce() {
	g := s.Geo
	zeroVec(s.Forces.EdgeSpring)
	for ei, e := range g.Mesh.Edges() {
		l := g.EdgeLengths[ei]
		if l == 0 {
			continue
		}
		c := s.Params.Kse * (l - s.TargetEdgeLength) / l
		d := r3.Scale(c, r3.Sub(g.Positions[e.V0], g.Positions[e.V1]))
		s.Forces.EdgeSpring[e.V0] = r3.Sub(s.Forces.EdgeSpring[e.V0], d)
		s.Forces.EdgeSpring[e.V1] = r3.Add(s.Forces.EdgeSpring[e.V1], d)
	}
	for v := range s.Forces.EdgeSpring {
		s.Forces.EdgeSpring[v] = s.projectTangent(v, s.Forces.EdgeSpring[v])
	}
}

// computeFaceSpringForce penalizes deviation of each face area from the
// target area captured at construction.
func (s *System) computeFaceSpringForce() {
	g := s.Geo
	zeroVec(s.Forces.FaceSpring)
	for fi, f := range g.Mesh.Faces() {
		c := s.Params.Ksl * (g.FaceAreas[fi] - s.TargetFaceArea)
		if c == 0 {
			continue
		}
		grad := g.AreaGradient(fi)
		for corner := 0; corner < 3; corner++ {
			s.Forces.FaceSpring[f[corner]] = r3.Sub(s.Forces.FaceSpring[f[corner]], r3.Scale(c, grad[corner]))
		}
	}
	for v := range s.Forces.FaceSpring {
		s.Forces.FaceSpring[v] = s.projectTangent(v, s.Forces.FaceSpring[v])
	}
}

// computeLcrSpringForce penalizes deviation of each interior edge's length
// cross-ratio from 1, the value on a conformally regular mesh. The gradient
// chains through the four flank lengths of the cross-ratio.
func (s *System) computeLcrSpringForce() {
	g := s.Geo
	pos := g.Positions
	zeroVec(s.Forces.LcrSpring)
	for ei, e := range g.Mesh.Edges() {
		if e.F1 < 0 {
			continue
		}
		lcr := g.LengthCrossRatio(ei)
		c := s.Params.Kst * (lcr - 1)
		if c == 0 {
			continue
		}
		i, j, l, k := e.V0, e.V1, e.O0, e.O1

		// lcr = |il||jk| / (|ki||lj|); d(lcr)/d(len) = ±lcr/len
		addPair := func(a, b int, sign float64) {
			d := r3.Sub(pos[a], pos[b])
			l := r3.Norm(d)
			if l == 0 {
				return
			}
			f := r3.Scale(c*sign*lcr/(l*l), d)
			s.Forces.LcrSpring[a] = r3.Sub(s.Forces.LcrSpring[a], f)
			s.Forces.LcrSpring[b] = r3.Add(s.Forces.LcrSpring[b], f)
		}
		addPair(i, l, 1)
		addPair(j, k, 1)
		addPair(k, i, -1)
		addPair(l, j, -1)
	}
	for v := range s.Forces.LcrSpring {
		s.Forces.LcrSpring[v] = s.projectTangent(v, s.Forces.LcrSpring[v])
	}
}

// SpringEnergies returns the three spring energies for diagnostics. They are
// reported but excluded from the physical potential energy.
func (s *System) springEnergies() (edge, face, lcr float64) {
	g := s.Geo
	if s.Params.Kse != 0 {
		for ei := range g.Mesh.Edges() {
			d := g.EdgeLengths[ei] - s.TargetEdgeLength
			edge += 0.5 * s.Params.Kse * d * d
		}
	}
	if s.Params.Ksl != 0 {
		for fi := range g.Mesh.Faces() {
			d := g.FaceAreas[fi] - s.TargetFaceArea
			face += 0.5 * s.Params.Ksl * d * d
		}
	}
	if s.Params.Kst != 0 {
		for ei, e := range g.Mesh.Edges() {
			if e.F1 < 0 {
				continue
			}
			d := g.LengthCrossRatio(ei) - 1
			lcr += 0.5 * s.Params.Kst * d * d
		}
	}
	return edge, face, lcr
}
