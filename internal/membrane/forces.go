package membrane

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Force evaluation. Every term writes its own slot; inactive terms are zeroed
// so no stale contribution survives a configuration change. All slots hold
// integrated forces (pressure times dual area), so summing them gives the
// force conjugate to vertex position.

func zeroVec(s []r3.Vec) {
	for i := range s {
		s[i] = r3.Vec{}
	}
}

func zeroScalar(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

// ComputeConservativeForcing evaluates every active conservative force term
// and chemical potential term, then assembles the masked aggregates
// Mechanical, Regularization, and Potentials.Total.
func (s *System) ComputeConservativeForcing() {
	s.checkStale()
	p := &s.Params

	if s.Opts.IsShapeVariation {
		if anyNonzero(s.BendingRigidity) {
			s.computeBendingForce()
		} else {
			zeroVec(s.Forces.Bending)
		}
		if anyNonzero(s.DeviatoricRigidity) {
			s.computeDeviatoricForce()
		} else {
			zeroVec(s.Forces.Deviatoric)
		}
		if p.Tension.Ksg != 0 {
			s.computeCapillaryForce()
		} else {
			zeroVec(s.Forces.Capillary)
		}
		if p.Osmotic.Kv != 0 {
			s.computeOsmoticForce()
		} else {
			zeroVec(s.Forces.Osmotic)
		}
		if p.Dirichlet.Eta != 0 {
			s.computeLineCapillaryForce()
		} else {
			zeroVec(s.Forces.LineCapillary)
		}
		if p.Adsorption.Epsilon != 0 {
			s.computeAdsorptionForce()
		} else {
			zeroVec(s.Forces.Adsorption)
		}
		if p.Aggregation.Chi != 0 {
			s.computeAggregationForce()
		} else {
			zeroVec(s.Forces.Aggregation)
		}
		if p.Temp != 0 && s.Opts.IsProteinVariation {
			s.computeEntropyForce()
		} else {
			zeroVec(s.Forces.Entropy)
		}
		if p.SelfAvoidance.Mu != 0 {
			s.computeSelfAvoidanceForce()
		} else {
			zeroVec(s.Forces.SelfAvoidance)
		}
		if p.External.Kf != 0 {
			s.computeExternalForce()
		} else {
			zeroVec(s.Forces.External)
		}
		s.computeSpringForces()
	} else {
		zeroVec(s.Forces.Bending)
		zeroVec(s.Forces.Deviatoric)
		zeroVec(s.Forces.Capillary)
		zeroVec(s.Forces.Osmotic)
		zeroVec(s.Forces.LineCapillary)
		zeroVec(s.Forces.Adsorption)
		zeroVec(s.Forces.Aggregation)
		zeroVec(s.Forces.Entropy)
		zeroVec(s.Forces.SelfAvoidance)
		zeroVec(s.Forces.External)
		zeroVec(s.Forces.EdgeSpring)
		zeroVec(s.Forces.FaceSpring)
		zeroVec(s.Forces.LcrSpring)
	}

	if s.Opts.IsProteinVariation {
		s.computeChemicalPotentials()
	} else {
		zeroScalar(s.Potentials.Bending)
		zeroScalar(s.Potentials.Adsorption)
		zeroScalar(s.Potentials.Aggregation)
		zeroScalar(s.Potentials.Entropy)
		zeroScalar(s.Potentials.Dirichlet)
		zeroScalar(s.Potentials.InteriorPenalty)
		zeroScalar(s.Potentials.Total)
	}

	s.assembleAggregates()
}

// AddNonconservativeForcing evaluates the DPD damping and stochastic pair
// forces for the given time step and folds them, masked, into Mechanical.
// The step size enters through the fluctuation-dissipation balance.
func (s *System) AddNonconservativeForcing(dt float64) {
	s.checkStale()
	if s.Params.DPD.Gamma != 0 && s.Opts.IsShapeVariation {
		s.computeDPDForces(dt)
	} else {
		zeroVec(s.Forces.Damping)
		zeroVec(s.Forces.Stochastic)
	}
	for v := range s.Forces.Mechanical {
		add := r3.Add(s.Forces.Damping[v], s.Forces.Stochastic[v])
		s.Forces.Mechanical[v] = r3.Add(s.Forces.Mechanical[v], maskVec(s.ForceMask[v], add))
	}
}

// ComputePhysicalForcing is the aggregate entry point: conservative terms
// plus the nonconservative DPD pair forces.
func (s *System) ComputePhysicalForcing(dt float64) {
	s.ComputeConservativeForcing()
	s.AddNonconservativeForcing(dt)
}

func (s *System) assembleAggregates() {
	for v := range s.Forces.Mechanical {
		sum := s.Forces.Bending[v]
		sum = r3.Add(sum, s.Forces.Deviatoric[v])
		sum = r3.Add(sum, s.Forces.Capillary[v])
		sum = r3.Add(sum, s.Forces.Osmotic[v])
		sum = r3.Add(sum, s.Forces.LineCapillary[v])
		sum = r3.Add(sum, s.Forces.Adsorption[v])
		sum = r3.Add(sum, s.Forces.Aggregation[v])
		sum = r3.Add(sum, s.Forces.Entropy[v])
		sum = r3.Add(sum, s.Forces.SelfAvoidance[v])
		sum = r3.Add(sum, s.Forces.External[v])
		s.Forces.Mechanical[v] = maskVec(s.ForceMask[v], sum)

		reg := r3.Add(s.Forces.EdgeSpring[v], s.Forces.FaceSpring[v])
		reg = r3.Add(reg, s.Forces.LcrSpring[v])
		s.Forces.Regularization[v] = maskVec(s.ForceMask[v], reg)
	}
	for v := range s.Potentials.Total {
		sum := s.Potentials.Bending[v] + s.Potentials.Adsorption[v] +
			s.Potentials.Aggregation[v] + s.Potentials.Entropy[v] +
			s.Potentials.Dirichlet[v] + s.Potentials.InteriorPenalty[v]
		s.Potentials.Total[v] = s.ProteinMask[v] * sum
	}
}

func anyNonzero(s []float64) bool {
	for _, v := range s {
		if v != 0 {
			return true
		}
	}
	return false
}

// computeBendingForce evaluates the spontaneous-curvature shape force
//
//	f_i = 2 [ -(L q)_i + 2 A_i Kb_i (H_i-H0_i)(H_i^2 + H_i H0_i - K_i) ] n_i
//
// with q = Kb (H - H0). The Laplacian term is the integrated biharmonic part;
// the cubic reaction term carries the Gaussian-curvature coupling. On a
// sphere with H = H0 both parts vanish.
func (s *System) computeBendingForce() {
	g := s.Geo
	nv := g.Mesh.NVertices()
	q := make([]float64, nv)
	lq := make([]float64, nv)
	for i := 0; i < nv; i++ {
		q[i] = s.BendingRigidity[i] * (g.MeanCurvatures[i] - s.SpontaneousCurvature[i])
	}
	g.LaplacianApply(q, lq)

	for i := 0; i < nv; i++ {
		h, h0 := g.MeanCurvatures[i], s.SpontaneousCurvature[i]
		k := g.GaussCurvatures[i]
		reaction := 2 * s.BendingRigidity[i] * (h - h0) * (h*h + h*h0 - k) * g.VertexDualAreas[i]
		s.Forces.Bending[i] = r3.Scale(2*(-lq[i]+reaction), g.VertexNormals[i])
	}
}

// computeDeviatoricForce is the H0=0 analogue of the bending force with the
// deviatoric rigidity field, conjugate to the energy Kd (H^2 - K).
func (s *System) computeDeviatoricForce() {
	g := s.Geo
	nv := g.Mesh.NVertices()
	q := make([]float64, nv)
	lq := make([]float64, nv)
	for i := 0; i < nv; i++ {
		q[i] = s.DeviatoricRigidity[i] * g.MeanCurvatures[i]
	}
	g.LaplacianApply(q, lq)

	for i := 0; i < nv; i++ {
		h, k := g.MeanCurvatures[i], g.GaussCurvatures[i]
		reaction := 2 * s.DeviatoricRigidity[i] * h * (h*h - k) * g.VertexDualAreas[i]
		s.Forces.Deviatoric[i] = r3.Scale(2*(-lq[i]+reaction), g.VertexNormals[i])
	}
}

// computeCapillaryForce applies the global surface tension along the exact
// area gradient, which equals the integrated mean-curvature vector -2HAn.
func (s *System) computeCapillaryForce() {
	lx := s.Forces.Capillary
	s.Geo.LaplacianApplyVec(s.Geo.Positions, lx)
	for i := range lx {
		lx[i] = r3.Scale(-s.SurfaceTension, lx[i])
	}
}

// computeOsmoticForce applies the global osmotic pressure along the exact
// volume gradient.
func (s *System) computeOsmoticForce() {
	s.Geo.VolumeGradient(s.Forces.Osmotic)
	for i := range s.Forces.Osmotic {
		s.Forces.Osmotic[i] = r3.Scale(s.OsmoticPressure, s.Forces.Osmotic[i])
	}
}

// computeLineCapillaryForce concentrates tension where the density field
// jumps. Each interior edge carries a line tension proportional to the
// squared density difference; its pull acts along the integrated edge normal
// curvature (dihedral angle times length, along the mean face normal), split
// between the two endpoints.
func (s *System) computeLineCapillaryForce() {
	g := s.Geo
	zeroVec(s.Forces.LineCapillary)
	eta := s.Params.Dirichlet.Eta
	for ei, e := range g.Mesh.Edges() {
		if e.F1 < 0 {
			continue
		}
		dphi := s.ProteinDensity[e.V0] - s.ProteinDensity[e.V1]
		if dphi == 0 {
			continue
		}
		tension := eta * g.CotanWeights[ei] * dphi * dphi
		en := r3.Add(g.FaceNormals[e.F0], g.FaceNormals[e.F1])
		if n := r3.Norm(en); n > 0 {
			en = r3.Scale(1/n, en)
		}
		pull := r3.Scale(-0.5*tension*g.DihedralAngles[ei]*g.EdgeLengths[ei], en)
		s.Forces.LineCapillary[e.V0] = r3.Add(s.Forces.LineCapillary[e.V0], pull)
		s.Forces.LineCapillary[e.V1] = r3.Add(s.Forces.LineCapillary[e.V1], pull)
	}
}

// areaCoupledForce accumulates -d/dx of sum_f A_f * mean(density over the
// face corners), the exact shape gradient of the face-mean quadrature the
// density-coupled energy terms use.
func (s *System) areaCoupledForce(density []float64, out []r3.Vec) {
	g := s.Geo
	zeroVec(out)
	for fi, f := range g.Mesh.Faces() {
		mean := (density[f[0]] + density[f[1]] + density[f[2]]) / 3
		if mean == 0 {
			continue
		}
		grad := g.AreaGradient(fi)
		for c := 0; c < 3; c++ {
			out[f[c]] = r3.Sub(out[f[c]], r3.Scale(mean, grad[c]))
		}
	}
}

// computeAdsorptionForce is the shape derivative of the linear binding
// energy epsilon * sum phi A.
func (s *System) computeAdsorptionForce() {
	nv := s.Geo.Mesh.NVertices()
	density := make([]float64, nv)
	for i, phi := range s.ProteinDensity {
		density[i] = s.Params.Adsorption.Epsilon * phi
	}
	s.areaCoupledForce(density, s.Forces.Adsorption)
}

// computeAggregationForce is the shape derivative of the double-well
// aggregation energy chi * sum phi^2 (1-phi)^2 A.
func (s *System) computeAggregationForce() {
	nv := s.Geo.Mesh.NVertices()
	density := make([]float64, nv)
	for i, phi := range s.ProteinDensity {
		w := phi * (1 - phi)
		density[i] = s.Params.Aggregation.Chi * w * w
	}
	s.areaCoupledForce(density, s.Forces.Aggregation)
}

// computeEntropyForce is the shape derivative of the mixing entropy
// Temp * sum [phi ln phi + (1-phi) ln(1-phi)] A.
func (s *System) computeEntropyForce() {
	nv := s.Geo.Mesh.NVertices()
	density := make([]float64, nv)
	for i, phi := range s.ProteinDensity {
		density[i] = s.Params.Temp * mixingEntropy(phi)
	}
	s.areaCoupledForce(density, s.Forces.Entropy)
}

// mixingEntropy is phi ln phi + (1-phi) ln(1-phi), continuously extended by
// zero at the endpoints.
func mixingEntropy(phi float64) float64 {
	e := 0.0
	if phi > 0 {
		e += phi * math.Log(phi)
	}
	if phi < 1 {
		e += (1 - phi) * math.Log(1-phi)
	}
	return e
}

// MechanicalErrorNorm is the root of the masked mechanical force squared
// norm, the convergence measure for shape.
func (s *System) MechanicalErrorNorm() float64 {
	sum := 0.0
	for _, f := range s.Forces.Mechanical {
		sum += r3.Dot(f, f)
	}
	return math.Sqrt(sum)
}

// ChemicalErrorNorm is the root of the masked chemical potential squared
// norm, the convergence measure for the density field.
func (s *System) ChemicalErrorNorm() float64 {
	sum := 0.0
	for _, mu := range s.Potentials.Total {
		sum += mu * mu
	}
	return math.Sqrt(sum)
}
