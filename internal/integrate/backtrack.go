package integrate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/membrane"
)

// Backtracking line search shared by the Euler and conjugate-gradient
// steppers. Given a shape direction and optionally a density direction, the
// step shrinks by rho until the Armijo sufficient-decrease condition on the
// potential energy holds. On exhaustion the state is restored and the error
// carries a per-term diagnosis of which energy refused to decrease.

type searchDirection struct {
	positions []r3.Vec
	protein   []float64 // nil when the density is frozen
}

// backtrack returns the accepted step size. The system is left at the
// accepted point with caches refreshed; on error it is restored to the
// starting point.
func backtrack(sys *membrane.System, dir searchDirection, alpha, rho, c1 float64, maxShrink int) (float64, error) {
	g := sys.Geo

	sys.ComputeTotalEnergy()
	e0 := sys.Energy.Potential
	terms0 := energyTerms(sys)

	// slope = <grad E, d> = -<F, d>, negative along any descent direction
	slope := 0.0
	for i, d := range dir.positions {
		slope -= r3.Dot(sys.Forces.Mechanical[i], d)
	}
	if dir.protein != nil {
		for i, d := range dir.protein {
			slope -= sys.Potentials.Total[i] * d
		}
	}
	if slope >= 0 {
		return 0, fmt.Errorf("integrate: direction is not a descent direction (slope %g)", slope)
	}

	savedPos := make([]r3.Vec, len(g.Positions))
	copy(savedPos, g.Positions)
	var savedPhi []float64
	if dir.protein != nil {
		savedPhi = make([]float64, len(sys.ProteinDensity))
		copy(savedPhi, sys.ProteinDensity)
	}

	restore := func() {
		copy(g.Positions, savedPos)
		if savedPhi != nil {
			copy(sys.ProteinDensity, savedPhi)
		}
		sys.UpdateConfigurations()
	}

	for shrink := 0; shrink <= maxShrink; shrink++ {
		for i := range g.Positions {
			g.Positions[i] = r3.Add(savedPos[i], r3.Scale(alpha, dir.positions[i]))
		}
		if dir.protein != nil {
			for i := range sys.ProteinDensity {
				sys.ProteinDensity[i] = savedPhi[i] + alpha*dir.protein[i]
			}
		}
		sys.UpdateConfigurations()
		sys.ComputeTotalEnergy()

		e := sys.Energy.Potential
		if math.IsNaN(e) || math.IsInf(e, 0) {
			alpha *= rho
			continue
		}
		if e <= e0+c1*alpha*slope {
			return alpha, nil
		}
		alpha *= rho
	}

	diagnosis := lineSearchErrorBacktrace(terms0, energyTerms(sys))
	restore()
	return 0, fmt.Errorf("integrate: line search exhausted after %d shrinks; %s", maxShrink, diagnosis)
}

type namedTerm struct {
	name  string
	value float64
}

func energyTerms(sys *membrane.System) []namedTerm {
	e := sys.Energy
	return []namedTerm{
		{"bending", e.Bending},
		{"deviatoric", e.Deviatoric},
		{"surface", e.Surface},
		{"pressure", e.Pressure},
		{"adsorption", e.Adsorption},
		{"aggregation", e.Aggregation},
		{"entropy", e.Entropy},
		{"dirichlet", e.Dirichlet},
		{"selfAvoidance", e.SelfAvoidance},
		{"interiorPenalty", e.InteriorPenalty},
	}
}

// lineSearchErrorBacktrace names the energy terms that grew at the smallest
// trial step, worst offender first. Diagnostic only.
func lineSearchErrorBacktrace(before, after []namedTerm) string {
	type growth struct {
		name string
		by   float64
	}
	var grew []growth
	for i := range before {
		if d := after[i].value - before[i].value; d > 0 {
			grew = append(grew, growth{before[i].name, d})
		}
	}
	if len(grew) == 0 {
		return "no single term grew; decrease was below the Armijo margin"
	}
	sort.Slice(grew, func(i, j int) bool { return grew[i].by > grew[j].by })
	out := "terms that grew:"
	for _, g := range grew {
		out += fmt.Sprintf(" %s(+%.3g)", g.name, g.by)
	}
	return out
}
