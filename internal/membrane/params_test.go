package membrane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClosedParams() (Parameters, Options) {
	p := DefaultParameters()
	p.Bending.Kb = 1e-4
	p.Tension.Ksg = 0.1
	return p, DefaultOptions()
}

func TestCheckParametersAccepts(t *testing.T) {
	p, o := validClosedParams()
	_, err := p.CheckParameters(o, false, 42)
	require.NoError(t, err)
}

func TestCheckParametersConflicts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Parameters, *Options)
	}{
		{"bad bending relation", func(p *Parameters, o *Options) {
			p.Bending.Relation = "quadratic"
		}},
		{"constant tension with reservoir", func(p *Parameters, o *Options) {
			p.Tension.IsConstant = true
			p.Tension.Ares = 1
		}},
		{"preferred volume and constant pressure", func(p *Parameters, o *Options) {
			p.Osmotic.IsPreferredVolume = true
			p.Osmotic.IsConstantPressure = true
		}},
		{"preferred volume with ambient concentration", func(p *Parameters, o *Options) {
			p.Osmotic.IsPreferredVolume = true
			p.Osmotic.Cam = 0.5
		}},
		{"constant pressure with target volume", func(p *Parameters, o *Options) {
			p.Osmotic.IsConstantPressure = true
			p.Osmotic.Vt = 2
		}},
		{"ideal gas without solute", func(p *Parameters, o *Options) {
			p.Osmotic.Kv = 1
			p.Osmotic.N = 0
		}},
		{"tension without shape variation", func(p *Parameters, o *Options) {
			o.IsShapeVariation = false
		}},
		{"protein variation without mobility", func(p *Parameters, o *Options) {
			o.IsProteinVariation = true
		}},
		{"mobility without protein variation", func(p *Parameters, o *Options) {
			p.Bc = 1
		}},
		{"bad shape boundary", func(p *Parameters, o *Options) {
			o.ShapeBoundary = "clamp"
		}},
		{"closed mesh with reservoir", func(p *Parameters, o *Options) {
			p.Tension.IsConstant = true
			p.Tension.At = -1
			p.Osmotic.Vres = 1
		}},
		{"closed mesh with boundary condition", func(p *Parameters, o *Options) {
			o.ShapeBoundary = "pin"
		}},
		{"bad geodesic radius", func(p *Parameters, o *Options) {
			p.Radius = 0
		}},
		{"protein density out of range", func(p *Parameters, o *Options) {
			p.Protein0 = []float64{1.5}
		}},
		{"protein vector wrong length", func(p *Parameters, o *Options) {
			p.Protein0 = []float64{0.5, 0.5, 0.5}
		}},
		{"saturated density with interior penalty", func(p *Parameters, o *Options) {
			o.IsProteinVariation = true
			p.Bc = 1
			p.Protein0 = []float64{1}
		}},
		{"self avoidance without distance", func(p *Parameters, o *Options) {
			p.SelfAvoidance.Mu = 1
		}},
		{"external force without profile width", func(p *Parameters, o *Options) {
			p.External.Kf = 1
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, o := validClosedParams()
			tc.mutate(&p, &o)
			_, err := p.CheckParameters(o, false, 42)
			require.Error(t, err)
			assert.IsType(t, ConfigError{}, err)
		})
	}
}

func TestCheckParametersWarnsOpenMesh(t *testing.T) {
	p, o := validClosedParams()
	warnings, err := p.CheckParameters(o, true, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestCheckParametersGeodesicDisk(t *testing.T) {
	p, o := validClosedParams()
	p.Protein0 = []float64{0.9, 0.1, 0.5, 20}
	_, err := p.CheckParameters(o, false, 42)
	require.NoError(t, err)

	p.Protein0 = []float64{0.9, 0.1, -0.5, 20}
	_, err = p.CheckParameters(o, false, 42)
	require.Error(t, err)
}
