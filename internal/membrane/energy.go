package membrane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Energy is the named scalar accumulator record. Every evaluation recomputes
// all terms from current state; nothing is updated incrementally. The spring
// terms are reported for diagnostics but excluded from Potential, and the
// external work is carried across evaluations since it is a path integral.
type Energy struct {
	Kinetic    float64
	Bending    float64
	Deviatoric float64

	// bilayer-couple area-difference elasticity; stays zero until its
	// modulus is wired into Parameters
	AreaDifference float64

	Surface  float64
	Pressure float64

	Adsorption    float64
	Aggregation   float64
	Entropy       float64
	Dirichlet     float64
	SelfAvoidance float64

	InteriorPenalty float64

	EdgeSpring float64
	FaceSpring float64
	LcrSpring  float64

	ExternalWork float64

	Potential float64
	Total     float64
}

// CapMeasure is the divergence-guard quantity: total energy excluding the
// interior penalty, whose barrier can spike legitimately near the domain
// boundary.
func (e Energy) CapMeasure() float64 { return e.Total - e.InteriorPenalty }

// ComputeTotalEnergy recomputes the full energy record from current state.
// Used for diagnostics, line search, and termination only; forces never read
// it back.
func (s *System) ComputeTotalEnergy() {
	s.checkStale()
	g := s.Geo
	p := &s.Params

	work := s.Energy.ExternalWork
	s.Energy = Energy{ExternalWork: work}

	for i, v := range s.Velocities {
		s.Energy.Kinetic += 0.5 * g.VertexDualAreas[i] * r3.Dot(v, v)
	}

	if s.Opts.IsShapeVariation || s.Opts.IsProteinVariation {
		for i := 0; i < g.Mesh.NVertices(); i++ {
			h, h0 := g.MeanCurvatures[i], s.SpontaneousCurvature[i]
			a := g.VertexDualAreas[i]
			s.Energy.Bending += s.BendingRigidity[i] * (h - h0) * (h - h0) * a
			s.Energy.Deviatoric += s.DeviatoricRigidity[i] * (h*h - g.GaussCurvatures[i]) * a
		}
	}

	if p.Tension.Ksg != 0 {
		if p.Tension.IsConstant || g.Mesh.HasBoundary() {
			s.Energy.Surface = p.Tension.Ksg * (g.SurfaceArea - s.TargetArea)
		} else {
			da := g.SurfaceArea - s.TargetArea
			s.Energy.Surface = p.Tension.Ksg*da*da/(2*s.TargetArea) + s.Params.LambdaSG*da
		}
	}

	if p.Osmotic.Kv != 0 {
		switch {
		case p.Osmotic.IsPreferredVolume:
			dv := g.Volume - s.TargetVolume
			s.Energy.Pressure = p.Osmotic.Kv*dv*dv/(2*s.TargetVolume) + s.Params.LambdaV*dv
		case p.Osmotic.IsConstantPressure:
			s.Energy.Pressure = -p.Osmotic.Kv * (g.Volume - s.RefVolume)
		default:
			v := g.Volume + p.Osmotic.Vres
			s.Energy.Pressure = p.Temp * (-p.Osmotic.N*math.Log(v/(s.RefVolume+p.Osmotic.Vres)) +
				p.Osmotic.Cam*(g.Volume-s.RefVolume))
		}
	}

	// the density-coupled area terms integrate with the face-mean quadrature
	// so they stay the exact conjugates of the area-gradient forces
	if p.Adsorption.Epsilon != 0 {
		for fi, f := range g.Mesh.Faces() {
			mean := (s.ProteinDensity[f[0]] + s.ProteinDensity[f[1]] + s.ProteinDensity[f[2]]) / 3
			s.Energy.Adsorption += p.Adsorption.Epsilon * mean * g.FaceAreas[fi]
		}
	}
	if p.Aggregation.Chi != 0 {
		for fi, f := range g.Mesh.Faces() {
			mean := 0.0
			for _, v := range f {
				w := s.ProteinDensity[v] * (1 - s.ProteinDensity[v])
				mean += w * w / 3
			}
			s.Energy.Aggregation += p.Aggregation.Chi * mean * g.FaceAreas[fi]
		}
	}
	if p.Temp != 0 && s.Opts.IsProteinVariation {
		for fi, f := range g.Mesh.Faces() {
			mean := (mixingEntropy(s.ProteinDensity[f[0]]) +
				mixingEntropy(s.ProteinDensity[f[1]]) +
				mixingEntropy(s.ProteinDensity[f[2]])) / 3
			s.Energy.Entropy += p.Temp * mean * g.FaceAreas[fi]
		}
	}
	if p.Dirichlet.Eta != 0 {
		s.Energy.Dirichlet = p.Dirichlet.Eta * g.DirichletEnergy(s.ProteinDensity)
	}
	if p.SelfAvoidance.Mu != 0 {
		s.Energy.SelfAvoidance = s.selfAvoidanceEnergy()
	}
	if p.LambdaPhi != 0 && s.Opts.IsProteinVariation {
		for _, phi := range s.ProteinDensity {
			s.Energy.InteriorPenalty += -p.LambdaPhi * (math.Log(phi) + math.Log(1-phi))
		}
	}

	s.Energy.EdgeSpring, s.Energy.FaceSpring, s.Energy.LcrSpring = s.springEnergies()

	s.Energy.Potential = s.Energy.Bending + s.Energy.Deviatoric +
		s.Energy.AreaDifference +
		s.Energy.Surface + s.Energy.Pressure + s.Energy.Adsorption +
		s.Energy.Aggregation + s.Energy.Entropy + s.Energy.Dirichlet +
		s.Energy.SelfAvoidance + s.Energy.InteriorPenalty
	s.Energy.Total = s.Energy.Kinetic + s.Energy.Potential - s.Energy.ExternalWork
}
