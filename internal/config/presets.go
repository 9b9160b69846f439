package config

// Presets are complete, runnable starting points for the common scenarios.
// Each returns a fresh Config so callers can tweak without aliasing.
var presets = map[string]func() *Config{
	"vesicle-relax": vesicleRelax,
	"budding":       budding,
	"patch-poke":    patchPoke,
	"osmotic-swell": osmoticSwell,
	"tether-anchor": tetherAnchor,
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	f, ok := presets[name]
	if !ok {
		return nil
	}
	return f()
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// vesicleRelax: closed vesicle descending to the Helfrich minimum under an
// area penalty and a preferred reduced volume of 0.7.
func vesicleRelax() *Config {
	c := DefaultConfig()
	c.Name = "vesicle-relax"
	c.Mesh = MeshConfig{Kind: "icosphere", Subdivisions: 3, Radius: 1}
	c.Integrator = "cg"
	c.Run.TotalTime = 1000
	c.Run.TimeStep = 0.1
	c.Run.RestartPeriod = 30
	c.Run.AugmentedLagrangian = true
	c.Parameters.Bending.Kb = 8.22e-5
	c.Parameters.Tension.Ksg = 0.1
	c.Parameters.Osmotic.Kv = 0.01
	c.Parameters.Osmotic.IsPreferredVolume = true
	c.Parameters.Osmotic.Vt = 2.932 // reduced volume 0.7 of the unit sphere
	c.Parameters.Kst = 1e-6
	return c
}

// budding: protein disk on a vesicle couples to curvature and aggregates,
// pulling a bud out of the cap.
func budding() *Config {
	c := DefaultConfig()
	c.Name = "budding"
	c.Mesh = MeshConfig{Kind: "icosphere", Subdivisions: 3, Radius: 1}
	c.Integrator = "euler"
	c.Run.TotalTime = 500
	c.Run.TimeStep = 0.05
	c.Run.MutationPeriod = 25
	c.Run.GeodesicPeriod = 25
	c.Options.IsProteinVariation = true
	c.Options.IsEdgeMutation = true
	c.Options.IsVertexShift = true
	c.Parameters.Bc = 0.2
	c.Parameters.Protein0 = []float64{0.9, 0.1, 0.5, 20}
	c.Parameters.Bending.Kb = 8.22e-5
	c.Parameters.Bending.Kbc = 8.22e-5
	c.Parameters.Bending.H0c = 6
	c.Parameters.Tension.Ksg = 0.05
	c.Parameters.Osmotic.Kv = 0.01
	c.Parameters.Osmotic.IsPreferredVolume = true
	c.Parameters.Osmotic.Vt = 3.5
	c.Parameters.Dirichlet.Eta = 1e-4
	c.Parameters.Adsorption.Epsilon = -1e-3
	c.Parameters.Aggregation.Chi = 2e-3
	c.Parameters.Temp = 1e-4
	c.Parameters.Kse = 1e-6
	c.Parameters.Ksl = 1e-6
	return c
}

// patchPoke: open hexagonal patch with roller boundary, poked toward a
// target height by the external force.
func patchPoke() *Config {
	c := DefaultConfig()
	c.Name = "patch-poke"
	c.Mesh = MeshConfig{Kind: "hexagon", Rings: 12, EdgeLength: 0.2}
	c.Integrator = "euler"
	c.Run.TotalTime = 200
	c.Run.TimeStep = 0.02
	c.Run.AdaptiveStep = true
	c.Run.GeodesicPeriod = 10
	c.Options.ShapeBoundary = "roller"
	c.Parameters.Bending.Kb = 8.22e-5
	c.Parameters.Tension.Ksg = 1e-3
	c.Parameters.Tension.IsConstant = true
	c.Parameters.External.Kf = 5e-3
	c.Parameters.External.Conc = 4
	c.Parameters.External.Height = 0.6
	return c
}

// osmoticSwell: ideal-gas osmotic pressure inflates a vesicle against its
// tension, with DPD damping carrying off the kinetic energy.
func osmoticSwell() *Config {
	c := DefaultConfig()
	c.Name = "osmotic-swell"
	c.Mesh = MeshConfig{Kind: "icosphere", Subdivisions: 3, Radius: 1}
	c.Integrator = "verlet"
	c.Run.TotalTime = 100
	c.Run.TimeStep = 1e-3
	c.Run.Backtrack = false
	c.Parameters.Bending.Kb = 8.22e-5
	c.Parameters.Tension.Ksg = 0.5
	c.Parameters.Osmotic.Kv = 1
	c.Parameters.Osmotic.N = 5
	c.Parameters.Osmotic.Cam = 0.8
	c.Parameters.Osmotic.Vt = -1
	c.Parameters.Temp = 1
	c.Parameters.DPD.Gamma = 0.05
	return c
}

// tetherAnchor: constrained minimization with self-avoidance while the
// external force pulls a tether from a low-tension vesicle.
func tetherAnchor() *Config {
	c := DefaultConfig()
	c.Name = "tether-anchor"
	c.Mesh = MeshConfig{Kind: "icosphere", Subdivisions: 4, Radius: 1}
	c.Integrator = "cg"
	c.Run.TotalTime = 2000
	c.Run.TimeStep = 0.05
	c.Run.AugmentedLagrangian = true
	c.Run.MutationPeriod = 100
	c.Run.GeodesicPeriod = 100
	c.Options.IsEdgeMutation = true
	c.Options.IsVertexShift = true
	c.Parameters.Bending.Kb = 8.22e-5
	c.Parameters.Tension.Ksg = 0.02
	c.Parameters.Osmotic.Kv = 0.01
	c.Parameters.Osmotic.IsPreferredVolume = true
	c.Parameters.Osmotic.Vt = 3.9
	c.Parameters.External.Kf = 1e-2
	c.Parameters.External.Conc = 16
	c.Parameters.External.Height = 2.5
	c.Parameters.SelfAvoidance.Mu = 1e-3
	c.Parameters.SelfAvoidance.D0 = 0.05
	c.Parameters.SelfAvoidance.Ring = 2
	c.Parameters.Kst = 1e-6
	c.Parameters.Kse = 1e-6
	return c
}
