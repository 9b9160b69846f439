package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/membrane"
)

// Euler is the overdamped forward scheme: velocity is read directly off the
// force field each step, nothing persists across steps. With backtracking
// enabled each step is also an Armijo-guarded descent step, which makes this
// the workhorse for energy minimization.
type Euler struct {
	loop
}

func NewEuler(sys *membrane.System, opts Options, save SaveFunc) *Euler {
	return &Euler{loop: newLoop(sys, opts, save)}
}

// Run executes the integration loop to termination.
func (e *Euler) Run() Result { return e.loop.run(e) }

// checkParameters rejects the DPD pair forces: the overdamped update reads
// velocities off the force field, so there is no velocity state for the
// damping to act on.
func (e *Euler) checkParameters(sys *membrane.System) error {
	if sys.Params.DPD.Gamma != 0 {
		return fmt.Errorf("integrate: DPD forces require the velocity Verlet integrator")
	}
	return nil
}

func (e *Euler) status(l *loop) {
	l.sys.ComputeConservativeForcing()
	l.sys.ComputeTotalEnergy()
	l.checkCommonStatus(true)
}

func (e *Euler) march(l *loop) error {
	sys := l.sys
	dt := l.stepSize()

	for i := range sys.Velocities {
		sys.Velocities[i] = r3.Add(sys.Forces.Mechanical[i], sys.Forces.Regularization[i])
	}
	var phiDot []float64
	if sys.Opts.IsProteinVariation {
		phiDot = make([]float64, len(sys.ProteinDensity))
		for i, mu := range sys.Potentials.Total {
			phiDot[i] = sys.Params.Bc * mu / sys.Geo.VertexDualAreas[i]
		}
	}

	if l.opts.Backtrack {
		alpha, err := backtrack(sys, searchDirection{positions: sys.Velocities, protein: phiDot},
			dt, l.opts.Rho, l.opts.C1, l.opts.MaxShrink)
		if err != nil {
			return err
		}
		dt = alpha
	} else {
		for i := range sys.Geo.Positions {
			sys.Geo.Positions[i] = r3.Add(sys.Geo.Positions[i], r3.Scale(dt, sys.Velocities[i]))
		}
		for i := range phiDot {
			sys.ProteinDensity[i] += dt * phiDot[i]
		}
		sys.UpdateConfigurations()
	}

	sys.Time += dt
	sys.AccumulateExternalWork(dt)
	return nil
}
