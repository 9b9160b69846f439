// Package integrate drives a membrane.System toward equilibrium. The three
// steppers (forward Euler, velocity Verlet, nonlinear conjugate gradient)
// share one loop contract: evaluate status, persist a snapshot when due,
// run the periodic mesh maintenance, then march one step. An iteration that
// mutated the mesh or refreshed geodesics skips its march so forces are
// rebuilt on the new topology before positions move again. The loop exits
// only through the EXIT flag; SUCCESS tells converged apart from failed.
package integrate

import (
	"fmt"

	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/remesh"
)

// Options are the knobs shared by all integrator variants. Periods are in
// simulated time, like TotalTime.
type Options struct {
	TotalTime float64
	TimeStep  float64
	Tolerance float64

	SavePeriod     float64
	MutationPeriod float64 // 0 disables
	GeodesicPeriod float64 // 0 disables
	MutationBatch  int     // max topology ops per mutation event

	// adaptive step ties dt to the squared minimum edge length
	AdaptiveStep bool
	Dt2Ratio     float64

	// backtracking line search
	Backtrack bool
	Rho       float64
	C1        float64
	MaxShrink int
}

// DefaultOptions fills the conventional line-search and adaptivity constants.
func DefaultOptions() Options {
	return Options{
		TimeStep:      1e-4,
		TotalTime:     1,
		Tolerance:     1e-6,
		SavePeriod:    0.05,
		MutationBatch: 50,
		Dt2Ratio:      0.25,
		Rho:           0.5,
		C1:            1e-4,
		MaxShrink:     40,
	}
}

// SaveFunc persists one snapshot. A non-nil error aborts the run.
type SaveFunc func(s *membrane.System, iteration int) error

// Result is the terminal state of one integration run.
type Result struct {
	Success    bool
	Reason     string
	Iterations int
	FinalTime  float64
	Err        error
}

// stepper is the per-variant part of the loop: checkParameters rejects
// configurations the scheme cannot integrate, status decides EXIT/SUCCESS,
// march advances the state by one step.
type stepper interface {
	checkParameters(sys *membrane.System) error
	status(l *loop)
	march(l *loop) error
}

// loop carries the state shared by the variants. An integrator is
// single-use: construct, Run once, discard.
type loop struct {
	sys  *membrane.System
	proc remesh.Processor
	opts Options
	save SaveFunc

	exit    bool
	success bool
	reason  string

	iteration    int
	lastSave     float64
	lastMutation float64
	lastGeodesic float64
	ran          bool
}

func newLoop(sys *membrane.System, opts Options, save SaveFunc) loop {
	return loop{
		sys:  sys,
		proc: remesh.New(sys.TargetEdgeLength),
		opts: opts,
		save: save,
	}
}

func (l *loop) run(st stepper) Result {
	if l.ran {
		return Result{Reason: "integrator reused", Err: fmt.Errorf("integrate: integrator is single-use, construct a new one per run")}
	}
	l.ran = true
	if err := st.checkParameters(l.sys); err != nil {
		return l.fail("incompatible parameters", err)
	}
	l.lastSave = l.sys.Time
	l.lastMutation = l.sys.Time
	l.lastGeodesic = l.sys.Time

	for {
		st.status(l)

		if l.save != nil {
			due := l.iteration == 0 || l.exit ||
				l.sys.Time-l.lastSave >= l.opts.SavePeriod
			if due {
				if err := l.save(l.sys, l.iteration); err != nil {
					return l.fail("snapshot persistence failed", err)
				}
				l.lastSave = l.sys.Time
			}
		}

		if l.exit {
			break
		}

		processed := false
		if l.opts.MutationPeriod > 0 && l.sys.Time-l.lastMutation >= l.opts.MutationPeriod {
			l.sys.MutateMesh(l.proc, l.opts.MutationBatch)
			l.lastMutation = l.sys.Time
			processed = true
		}
		if l.opts.GeodesicPeriod > 0 && l.sys.Time-l.lastGeodesic >= l.opts.GeodesicPeriod {
			l.sys.RefreshGeodesics()
			l.sys.UpdateConfigurations()
			l.lastGeodesic = l.sys.Time
			processed = true
		}
		if processed {
			// forces and energies still describe the state before the mesh
			// maintenance; skip the march and let the next status rebuild
			// them on the current topology
			l.iteration++
			continue
		}

		if err := st.march(l); err != nil {
			return l.fail("march failed", err)
		}
		l.iteration++
	}

	return Result{
		Success:    l.success,
		Reason:     l.reason,
		Iterations: l.iteration,
		FinalTime:  l.sys.Time,
	}
}

func (l *loop) fail(reason string, err error) Result {
	return Result{
		Success:    false,
		Reason:     reason,
		Iterations: l.iteration,
		FinalTime:  l.sys.Time,
		Err:        err,
	}
}

// stepSize returns the adaptive or fixed characteristic time step.
func (l *loop) stepSize() float64 {
	if l.opts.AdaptiveStep {
		min := l.sys.Geo.MinEdgeLength()
		return l.opts.Dt2Ratio * min * min
	}
	return l.opts.TimeStep
}

// checkCommonStatus applies the termination rules every variant shares:
// non-finite state is fatal, tolerance satisfaction converges, exceeding the
// time budget is a reported failure.
func (l *loop) checkCommonStatus(chemical bool) {
	if err := l.sys.CheckFiniteness(); err != nil {
		l.exit, l.success = true, false
		l.reason = err.Error()
		return
	}

	converged := l.sys.MechanicalErrorNorm() < l.opts.Tolerance
	if chemical && l.sys.Opts.IsProteinVariation {
		converged = converged && l.sys.ChemicalErrorNorm() < l.opts.Tolerance
	}
	if converged {
		l.exit, l.success = true, true
		l.reason = "converged"
		return
	}

	if l.sys.Time >= l.opts.TotalTime {
		l.exit, l.success = true, false
		l.reason = "time budget exhausted before convergence"
	}
}
