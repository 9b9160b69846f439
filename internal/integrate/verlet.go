package integrate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/membrane/internal/membrane"
)

// VelocityVerlet is the inertial second-order scheme: positions advance with
// a half-step-squared term, velocities with the trapezoidal average of the
// old and new accelerations. It is the only stepper that exercises the DPD
// pair forces, since those need real velocities. A divergence guard aborts
// the run when the total energy (excluding the interior penalty barrier)
// exceeds 1.05 times its initial magnitude envelope.
type VelocityVerlet struct {
	loop
	accel      []r3.Vec
	haveAccel  bool
	initialCap float64
	haveCap    bool
}

func NewVelocityVerlet(sys *membrane.System, opts Options, save SaveFunc) *VelocityVerlet {
	return &VelocityVerlet{loop: newLoop(sys, opts, save)}
}

// Run executes the integration loop to termination.
func (v *VelocityVerlet) Run() Result { return v.loop.run(v) }

// checkParameters accepts every configuration the system does: the inertial
// scheme carries real velocities, so even the DPD pair forces apply.
func (v *VelocityVerlet) checkParameters(sys *membrane.System) error { return nil }

func (v *VelocityVerlet) status(l *loop) {
	l.sys.ComputeConservativeForcing()
	l.sys.ComputeTotalEnergy()

	measure := l.sys.Energy.CapMeasure()
	if !v.haveCap {
		v.initialCap = measure
		v.haveCap = true
	} else if measure > v.initialCap+0.05*math.Abs(v.initialCap) {
		l.exit, l.success = true, false
		l.reason = "total energy exceeded 1.05x its initial value"
		return
	}

	l.checkCommonStatus(true)
}

func (v *VelocityVerlet) acceleration(i int) r3.Vec {
	sys := v.sys
	f := r3.Add(sys.Forces.Mechanical[i], sys.Forces.Regularization[i])
	return r3.Scale(1/sys.Geo.VertexDualAreas[i], f)
}

func (v *VelocityVerlet) march(l *loop) error {
	sys := l.sys
	dt := l.stepSize()
	nv := len(sys.Geo.Positions)

	if len(v.accel) != nv {
		v.accel = make([]r3.Vec, nv)
		v.haveAccel = false
	}
	if !v.haveAccel {
		// forces are current from status
		for i := 0; i < nv; i++ {
			v.accel[i] = v.acceleration(i)
		}
		v.haveAccel = true
	}

	for i := 0; i < nv; i++ {
		dx := r3.Add(r3.Scale(dt, sys.Velocities[i]), r3.Scale(0.5*dt*dt, v.accel[i]))
		sys.Geo.Positions[i] = r3.Add(sys.Geo.Positions[i], dx)
	}
	if sys.Opts.IsProteinVariation {
		for i, mu := range sys.Potentials.Total {
			sys.ProteinDensity[i] += dt * sys.Params.Bc * mu / sys.Geo.VertexDualAreas[i]
		}
	}

	sys.UpdateConfigurations()
	sys.ComputePhysicalForcing(dt)

	for i := 0; i < nv; i++ {
		aNew := v.acceleration(i)
		sys.Velocities[i] = r3.Add(sys.Velocities[i], r3.Scale(0.5*dt, r3.Add(v.accel[i], aNew)))
		v.accel[i] = aNew
	}

	sys.Time += dt
	sys.AccumulateExternalWork(dt)
	return nil
}
