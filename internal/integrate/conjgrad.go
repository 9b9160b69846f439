package integrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/membrane"
)

// ConjugateGradient minimizes the potential energy with Fletcher-Reeves
// directions and a backtracking line search. The direction restarts to
// steepest descent every RestartPeriod iterations, the usual guard against
// loss of conjugacy on an irregular objective.
//
// In augmented-Lagrangian mode the area and volume constraints are enforced
// by multiplier updates: when the force norm converges but a constraint is
// still violated beyond ConstraintTolerance, the matching multiplier is
// tightened and minimization continues instead of declaring convergence. The
// policy follows the osmotic model: preferred-volume runs tighten both the
// volume and area multipliers, ambient-pressure runs only the area one.
type ConjugateGradient struct {
	loop

	RestartPeriod       int
	ConstraintTolerance float64
	AugmentedLagrangian bool

	dir     []r3.Vec
	phiDir  []float64
	prevNsq float64
	count   int
}

func NewConjugateGradient(sys *membrane.System, opts Options, save SaveFunc) *ConjugateGradient {
	return &ConjugateGradient{
		loop:                newLoop(sys, opts, save),
		RestartPeriod:       20,
		ConstraintTolerance: 1e-2,
	}
}

// Run executes the minimization loop to termination.
func (cg *ConjugateGradient) Run() Result { return cg.loop.run(cg) }

// checkParameters rejects the DPD pair forces: minimization has no velocity
// state and nonconservative forcing would break the line search.
func (cg *ConjugateGradient) checkParameters(sys *membrane.System) error {
	if sys.Params.DPD.Gamma != 0 {
		return fmt.Errorf("integrate: DPD forces require the velocity Verlet integrator")
	}
	return nil
}

func (cg *ConjugateGradient) status(l *loop) {
	sys := l.sys
	sys.ComputeConservativeForcing()
	sys.ComputeTotalEnergy()

	if err := sys.CheckFiniteness(); err != nil {
		l.exit, l.success = true, false
		l.reason = err.Error()
		return
	}

	converged := sys.MechanicalErrorNorm() < l.opts.Tolerance
	if sys.Opts.IsProteinVariation {
		converged = converged && sys.ChemicalErrorNorm() < l.opts.Tolerance
	}
	if converged {
		if cg.AugmentedLagrangian && cg.tightenConstraints() {
			// multipliers moved; restart the direction and keep going
			cg.prevNsq = 0
			cg.count = 0
			return
		}
		l.exit, l.success = true, true
		l.reason = "converged"
		return
	}

	if sys.Time >= l.opts.TotalTime {
		l.exit, l.success = true, false
		l.reason = "time budget exhausted before convergence"
	}
}

// tightenConstraints applies one augmented-Lagrangian multiplier update and
// reports whether any constraint was still violated.
func (cg *ConjugateGradient) tightenConstraints() bool {
	sys := cg.sys
	p := &sys.Params
	violated := false

	if p.Tension.Ksg != 0 && !p.Tension.IsConstant {
		areaErr := (sys.Geo.SurfaceArea - sys.TargetArea) / sys.TargetArea
		if math.Abs(areaErr) > cg.ConstraintTolerance {
			p.LambdaSG += p.Tension.Ksg * areaErr
			violated = true
		}
	}
	if p.Osmotic.IsPreferredVolume && p.Osmotic.Kv != 0 {
		volErr := (sys.Geo.Volume - sys.TargetVolume) / sys.TargetVolume
		if math.Abs(volErr) > cg.ConstraintTolerance {
			p.LambdaV += p.Osmotic.Kv * volErr
			violated = true
		}
	}

	if violated {
		sys.UpdateConfigurations()
	}
	return violated
}

func (cg *ConjugateGradient) march(l *loop) error {
	sys := l.sys
	nv := len(sys.Geo.Positions)
	if len(cg.dir) != nv {
		cg.dir = make([]r3.Vec, nv)
		cg.phiDir = make([]float64, nv)
		cg.prevNsq = 0
		cg.count = 0
	}

	nsq := 0.0
	for _, f := range sys.Forces.Mechanical {
		nsq += r3.Dot(f, f)
	}
	withProtein := sys.Opts.IsProteinVariation
	if withProtein {
		for _, mu := range sys.Potentials.Total {
			nsq += mu * mu
		}
	}

	restart := cg.prevNsq == 0 || cg.count%cg.RestartPeriod == 0
	if restart {
		for i := 0; i < nv; i++ {
			cg.dir[i] = sys.Forces.Mechanical[i]
			cg.phiDir[i] = sys.Potentials.Total[i]
		}
	} else {
		beta := nsq / cg.prevNsq
		for i := 0; i < nv; i++ {
			cg.dir[i] = r3.Add(sys.Forces.Mechanical[i], r3.Scale(beta, cg.dir[i]))
			cg.phiDir[i] = sys.Potentials.Total[i] + beta*cg.phiDir[i]
		}
	}
	cg.prevNsq = nsq
	cg.count++

	var phiDir []float64
	if withProtein {
		phiDir = cg.phiDir
	}
	dt := l.stepSize()
	_, err := backtrack(sys, searchDirection{positions: cg.dir, protein: phiDir},
		dt, l.opts.Rho, l.opts.C1, l.opts.MaxShrink)
	if err != nil {
		// a stale conjugate direction can stop being a descent direction;
		// retry once from steepest descent before giving up
		for i := 0; i < nv; i++ {
			cg.dir[i] = sys.Forces.Mechanical[i]
			cg.phiDir[i] = sys.Potentials.Total[i]
		}
		cg.count = 1
		if _, err = backtrack(sys, searchDirection{positions: cg.dir, protein: phiDir},
			dt, l.opts.Rho, l.opts.C1, l.opts.MaxShrink); err != nil {
			return err
		}
	}

	sys.Time += dt
	return nil
}
