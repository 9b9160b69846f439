package membrane

import (
	"fmt"
	"math"
)

// Parameters is the per-run physical coefficient bag, grouped by aspect.
// It is validated once by CheckParameters before any step runs and treated
// as immutable afterwards, except for the augmented-Lagrangian multipliers
// LambdaSG/LambdaV which the conjugate-gradient integrator tightens.
type Parameters struct {
	Bending       Bending       `yaml:"bending"`
	Tension       Tension       `yaml:"tension"`
	Osmotic       Osmotic       `yaml:"osmotic"`
	Adsorption    Adsorption    `yaml:"adsorption"`
	Aggregation   Aggregation   `yaml:"aggregation"`
	Dirichlet     Dirichlet     `yaml:"dirichlet"`
	External      External      `yaml:"external"`
	DPD           DPD           `yaml:"dpd"`
	SelfAvoidance SelfAvoidance `yaml:"self_avoidance"`

	// mesh regularization springs
	Kst float64 `yaml:"kst"` // length-cross-ratio spring
	Ksl float64 `yaml:"ksl"` // face area spring
	Kse float64 `yaml:"kse"` // edge length spring

	Bc   float64 `yaml:"bc"`   // protein mobility
	Temp float64 `yaml:"temp"` // temperature, gas constant folded in

	// geodesic integration domain, -1 disables masking
	Radius float64 `yaml:"radius"`

	LambdaSG  float64 `yaml:"lambda_sg"`  // area multiplier
	LambdaV   float64 `yaml:"lambda_v"`   // volume multiplier
	LambdaPhi float64 `yaml:"lambda_phi"` // protein interior penalty
	Sharpness float64 `yaml:"sharpness"`  // tanh transition sharpness

	// "the point": reference location for geodesics and external force
	Point [3]float64 `yaml:"point"`

	// initial protein density: one value (uniform), four values
	// (inside, outside, geodesic radius, sharpness of a geodesic disk), or
	// one value per vertex
	Protein0 []float64 `yaml:"protein0"`
}

type Bending struct {
	Kb       float64 `yaml:"kb"`       // uniform bending modulus
	Kbc      float64 `yaml:"kbc"`      // modulus vs protein density
	Kdc      float64 `yaml:"kdc"`      // deviatoric modulus vs protein density
	H0c      float64 `yaml:"h0c"`      // spontaneous curvature vs protein density
	Relation string  `yaml:"relation"` // "linear" or "hill"
}

type Tension struct {
	Ksg        float64 `yaml:"ksg"`
	At         float64 `yaml:"at"`   // target area; -1 means unset
	Ares       float64 `yaml:"ares"` // area reservoir (open meshes)
	IsConstant bool    `yaml:"is_constant"`
}

type Osmotic struct {
	Kv                 float64 `yaml:"kv"`
	Vt                 float64 `yaml:"vt"`   // preferred volume; -1 means unset
	Cam                float64 `yaml:"cam"`  // ambient concentration; -1 means unset
	Vres               float64 `yaml:"vres"` // volume reservoir
	N                  float64 `yaml:"n"`    // enclosed solute
	IsPreferredVolume  bool    `yaml:"is_preferred_volume"`
	IsConstantPressure bool    `yaml:"is_constant_pressure"`
}

type Adsorption struct {
	Epsilon float64 `yaml:"epsilon"` // binding energy per protein
}

type Aggregation struct {
	Chi float64 `yaml:"chi"`
}

type Dirichlet struct {
	Eta float64 `yaml:"eta"` // interface smoothing / line tension
}

type External struct {
	Kf     float64 `yaml:"kf"`
	Conc   float64 `yaml:"conc"`   // concentration of the Gaussian profile
	Height float64 `yaml:"height"` // target height feedback
}

type DPD struct {
	Gamma float64 `yaml:"gamma"`
}

type SelfAvoidance struct {
	Mu   float64 `yaml:"mu"`
	D0   float64 `yaml:"d0"`   // minimum separation
	Ring int     `yaml:"ring"` // excluded topological neighborhood
}

// Options select which physics are active and how boundaries behave. They
// gate term evaluation; they never change a term's formula.
type Options struct {
	IsShapeVariation   bool   `yaml:"is_shape_variation"`
	IsProteinVariation bool   `yaml:"is_protein_variation"`
	IsVertexShift      bool   `yaml:"is_vertex_shift"`
	IsEdgeMutation     bool   `yaml:"is_edge_mutation"`
	ShapeBoundary      string `yaml:"shape_boundary"`   // roller, pin, fixed, none
	ProteinBoundary    string `yaml:"protein_boundary"` // pin, none
}

// DefaultParameters returns the zeroed coefficient set with the sentinel
// values the validation rules expect.
func DefaultParameters() Parameters {
	return Parameters{
		Bending:   Bending{Relation: "linear"},
		Tension:   Tension{At: -1},
		Osmotic:   Osmotic{Vt: -1, Cam: -1, N: 1},
		Radius:    -1,
		LambdaPhi: 1e-7,
		Sharpness: 20,
		Protein0:  []float64{1},
	}
}

// DefaultOptions enables shape evolution only.
func DefaultOptions() Options {
	return Options{
		IsShapeVariation: true,
		ShapeBoundary:    "none",
		ProteinBoundary:  "none",
	}
}

// ConfigError is a fatal, pre-run parameter conflict.
type ConfigError struct{ msg string }

func (e ConfigError) Error() string { return "configuration: " + e.msg }

func configErrorf(format string, args ...interface{}) error {
	return ConfigError{msg: fmt.Sprintf(format, args...)}
}

// CheckParameters validates the coefficient set against the option flags and
// the open/closed state of the mesh. Conflicts are fatal; ambiguous but
// legal combinations come back as warnings.
func (p *Parameters) CheckParameters(opts Options, hasBoundary bool, nVertices int) ([]string, error) {
	var warnings []string

	if p.Bending.Relation != "linear" && p.Bending.Relation != "hill" {
		return nil, configErrorf("bending relation must be linear or hill, got %q", p.Bending.Relation)
	}

	if p.Tension.IsConstant {
		if p.Tension.Ares != 0 {
			return nil, configErrorf("area reservoir must be 0 under constant surface tension (Ksg is the tension itself)")
		}
	} else if p.Tension.At != -1 && p.Tension.At <= 0 {
		// -1 means capture the initial surface area as the target
		return nil, configErrorf("target area At must be positive or -1, got %g", p.Tension.At)
	}

	switch {
	case p.Osmotic.IsPreferredVolume && p.Osmotic.IsConstantPressure:
		return nil, configErrorf("preferred volume and constant osmotic pressure cannot both be enabled")
	case p.Osmotic.IsPreferredVolume:
		if p.Osmotic.Cam != -1 {
			return nil, configErrorf("ambient concentration must stay -1 under preferred volume")
		}
		if p.Osmotic.Kv != 0 && !(p.Osmotic.Vt > 0) {
			return nil, configErrorf("preferred volume Vt must be positive, got %g", p.Osmotic.Vt)
		}
	case p.Osmotic.IsConstantPressure:
		if p.Osmotic.Vt != -1 || p.Osmotic.Cam != -1 || p.Osmotic.Vres != 0 {
			return nil, configErrorf("Vt and Cam must stay -1 and Vres 0 under constant pressure (Kv is the pressure itself)")
		}
	default: // ideal gas / ambient pressure mode
		if p.Osmotic.Kv != 0 {
			if p.Osmotic.N == 0 {
				return nil, configErrorf("enclosed solute N cannot be 0 under ambient pressure osmotic model")
			}
			if p.Osmotic.Vt != -1 {
				return nil, configErrorf("preferred volume Vt must stay -1 under ambient pressure osmotic model")
			}
		}
	}

	if !opts.IsShapeVariation {
		if p.Tension.Ksg != 0 {
			return nil, configErrorf("tension modulus Ksg must be zero without shape variation")
		}
		if p.Osmotic.Kv != 0 {
			return nil, configErrorf("osmotic modulus Kv must be zero without shape variation")
		}
		if opts.ShapeBoundary != "none" {
			return nil, configErrorf("shape boundary condition must be none without shape variation")
		}
	}

	if opts.IsProteinVariation != (p.Bc > 0) {
		return nil, configErrorf("protein mobility Bc (%g) must be positive exactly when protein variation is on", p.Bc)
	}

	switch opts.ShapeBoundary {
	case "roller", "pin", "fixed", "none":
	default:
		return nil, configErrorf("invalid shape boundary condition %q", opts.ShapeBoundary)
	}
	switch opts.ProteinBoundary {
	case "pin", "none":
	default:
		return nil, configErrorf("invalid protein boundary condition %q", opts.ProteinBoundary)
	}

	if hasBoundary {
		if opts.ShapeBoundary == "none" && opts.IsShapeVariation {
			warnings = append(warnings, "open mesh without shape boundary condition; osmotic and tension terms may behave unexpectedly")
		}
		if opts.ProteinBoundary != "pin" && opts.IsProteinVariation {
			warnings = append(warnings, "open mesh without protein boundary condition")
		}
	} else {
		if p.Tension.Ares != 0 || p.Osmotic.Vres != 0 {
			return nil, configErrorf("closed mesh cannot have area or volume reservoirs")
		}
		if opts.ShapeBoundary != "none" || opts.ProteinBoundary != "none" {
			return nil, configErrorf("boundary conditions must be none on a closed mesh")
		}
	}

	if p.Radius != -1 && p.Radius <= 0 {
		return nil, configErrorf("geodesic radius must be positive or -1 to disable, got %g", p.Radius)
	}

	switch len(p.Protein0) {
	case 1:
		if p.Protein0[0] < 0 || p.Protein0[0] > 1 {
			return nil, configErrorf("uniform protein density must lie in [0,1], got %g", p.Protein0[0])
		}
		if p.Protein0[0] == 0 || p.Protein0[0] == 1 {
			if opts.IsProteinVariation && p.LambdaPhi != 0 {
				return nil, configErrorf("uniform protein density of exactly 0 or 1 conflicts with the interior penalty")
			}
			warnings = append(warnings, "homogeneous protein density at the domain boundary; curvature-density coupling is inert")
		}
	case 4:
		in, out, r := p.Protein0[0], p.Protein0[1], p.Protein0[2]
		if in < 0 || in > 1 || out < 0 || out > 1 {
			return nil, configErrorf("geodesic disk densities must lie in [0,1]")
		}
		if r <= 0 {
			return nil, configErrorf("geodesic disk radius must be positive, got %g", r)
		}
	case nVertices:
		for i, v := range p.Protein0 {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return nil, configErrorf("per-vertex protein density out of range at vertex %d", i)
			}
		}
	default:
		return nil, configErrorf("protein0 must have length 1, 4, or nVertices (%d), got %d", nVertices, len(p.Protein0))
	}

	if p.DPD.Gamma != 0 && p.Temp < 0 {
		return nil, configErrorf("temperature must be non-negative with DPD enabled")
	}
	if p.SelfAvoidance.Mu != 0 && p.SelfAvoidance.D0 <= 0 {
		return nil, configErrorf("self-avoidance minimum distance D0 must be positive")
	}
	if p.External.Kf != 0 && p.External.Conc <= 0 {
		return nil, configErrorf("external force concentration must be positive")
	}

	return warnings, nil
}
