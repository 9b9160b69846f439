package membrane

import "math"

// Chemical potential slots hold the negative functional derivative of each
// density-coupled energy term, so a positive potential drives the density up
// and explicit flux steps descend the energy. The flux itself is
// dphi/dt = Bc * mu / A_dual, applied by the integrators.

func (s *System) computeChemicalPotentials() {
	g := s.Geo
	p := &s.Params
	nv := g.Mesh.NVertices()

	// d(coupling)/d(phi) for the chosen relation
	dc := func(phi float64) float64 {
		if p.Bending.Relation == "hill" {
			d := 1 + phi*phi
			return 2 * phi / (d * d)
		}
		return 1
	}

	// the density-coupled area energies integrate with the face-mean
	// quadrature, so their derivatives carry the matching barycentric weight
	var bar []float64
	if p.Adsorption.Epsilon != 0 || p.Aggregation.Chi != 0 || p.Temp != 0 {
		bar = make([]float64, nv)
		for fi, f := range g.Mesh.Faces() {
			a := g.FaceAreas[fi] / 3
			bar[f[0]] += a
			bar[f[1]] += a
			bar[f[2]] += a
		}
	}

	if p.Bending.Kbc != 0 || p.Bending.H0c != 0 || p.Bending.Kdc != 0 {
		for i := 0; i < nv; i++ {
			h, h0 := g.MeanCurvatures[i], s.SpontaneousCurvature[i]
			k := g.GaussCurvatures[i]
			a := g.VertexDualAreas[i]
			d := dc(s.ProteinDensity[i])
			rigidity := p.Bending.Kbc*(h-h0)*(h-h0) - 2*s.BendingRigidity[i]*(h-h0)*p.Bending.H0c
			deviatoric := p.Bending.Kdc * (h*h - k)
			s.Potentials.Bending[i] = -a * d * (rigidity + deviatoric)
		}
	} else {
		zeroScalar(s.Potentials.Bending)
	}

	if p.Adsorption.Epsilon != 0 {
		for i := 0; i < nv; i++ {
			s.Potentials.Adsorption[i] = -p.Adsorption.Epsilon * bar[i]
		}
	} else {
		zeroScalar(s.Potentials.Adsorption)
	}

	if p.Aggregation.Chi != 0 {
		for i := 0; i < nv; i++ {
			phi := s.ProteinDensity[i]
			s.Potentials.Aggregation[i] = -p.Aggregation.Chi * 2 * phi * (1 - phi) * (1 - 2*phi) * bar[i]
		}
	} else {
		zeroScalar(s.Potentials.Aggregation)
	}

	if p.Temp != 0 {
		for i := 0; i < nv; i++ {
			phi := s.ProteinDensity[i]
			// diverges at the endpoints; the interior penalty keeps phi off
			// them, and a non-finite value here is fatal by contract
			s.Potentials.Entropy[i] = -p.Temp * math.Log(phi/(1-phi)) * bar[i]
		}
	} else {
		zeroScalar(s.Potentials.Entropy)
	}

	if p.Dirichlet.Eta != 0 {
		g.LaplacianApply(s.ProteinDensity, s.Potentials.Dirichlet)
		for i := 0; i < nv; i++ {
			s.Potentials.Dirichlet[i] = -p.Dirichlet.Eta * s.Potentials.Dirichlet[i]
		}
	} else {
		zeroScalar(s.Potentials.Dirichlet)
	}

	if p.LambdaPhi != 0 {
		for i := 0; i < nv; i++ {
			phi := s.ProteinDensity[i]
			s.Potentials.InteriorPenalty[i] = p.LambdaPhi * (1/phi - 1/(1-phi))
		}
	} else {
		zeroScalar(s.Potentials.InteriorPenalty)
	}
}
