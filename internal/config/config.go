// Package config binds a whole simulation run into one YAML document: the
// initial mesh, the physical parameters, the option flags, and the
// integrator settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/membrane/internal/integrate"
	"github.com/san-kum/membrane/internal/membrane"
	"github.com/san-kum/membrane/internal/mesh"
	"github.com/san-kum/membrane/internal/meshio"
)

type Config struct {
	Name       string              `yaml:"name"`
	Mesh       MeshConfig          `yaml:"mesh"`
	Integrator string              `yaml:"integrator"` // euler, verlet, cg
	Seed       uint64              `yaml:"seed"`
	Run        RunConfig           `yaml:"run"`
	Parameters membrane.Parameters `yaml:"parameters"`
	Options    membrane.Options    `yaml:"options"`
}

type MeshConfig struct {
	Kind         string  `yaml:"kind"` // icosphere, hexagon, file
	Subdivisions int     `yaml:"subdivisions"`
	Radius       float64 `yaml:"radius"`
	Rings        int     `yaml:"rings"`
	EdgeLength   float64 `yaml:"edge_length"`
	Path         string  `yaml:"path"`
}

type RunConfig struct {
	TotalTime      float64 `yaml:"total_time"`
	TimeStep       float64 `yaml:"time_step"`
	Tolerance      float64 `yaml:"tolerance"`
	SavePeriod     float64 `yaml:"save_period"`
	MutationPeriod float64 `yaml:"mutation_period"`
	GeodesicPeriod float64 `yaml:"geodesic_period"`
	MutationBatch  int     `yaml:"mutation_batch"`

	AdaptiveStep bool    `yaml:"adaptive_step"`
	Dt2Ratio     float64 `yaml:"dt2_ratio"`

	Backtrack bool    `yaml:"backtrack"`
	Rho       float64 `yaml:"rho"`
	C1        float64 `yaml:"c1"`
	MaxShrink int     `yaml:"max_shrink"`

	RestartPeriod       int     `yaml:"restart_period"`
	AugmentedLagrangian bool    `yaml:"augmented_lagrangian"`
	ConstraintTolerance float64 `yaml:"constraint_tolerance"`
}

func DefaultConfig() *Config {
	base := integrate.DefaultOptions()
	return &Config{
		Name:       "run",
		Integrator: "euler",
		Mesh: MeshConfig{
			Kind:         "icosphere",
			Subdivisions: 3,
			Radius:       1,
		},
		Run: RunConfig{
			TotalTime:           base.TotalTime,
			TimeStep:            base.TimeStep,
			Tolerance:           base.Tolerance,
			SavePeriod:          base.SavePeriod,
			MutationBatch:       base.MutationBatch,
			Dt2Ratio:            base.Dt2Ratio,
			Backtrack:           true,
			Rho:                 base.Rho,
			C1:                  base.C1,
			MaxShrink:           base.MaxShrink,
			RestartPeriod:       20,
			ConstraintTolerance: 1e-2,
		},
		Parameters: membrane.DefaultParameters(),
		Options:    membrane.DefaultOptions(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IntegratorOptions maps the run section onto the stepping options.
func (r RunConfig) IntegratorOptions() integrate.Options {
	return integrate.Options{
		TotalTime:      r.TotalTime,
		TimeStep:       r.TimeStep,
		Tolerance:      r.Tolerance,
		SavePeriod:     r.SavePeriod,
		MutationPeriod: r.MutationPeriod,
		GeodesicPeriod: r.GeodesicPeriod,
		MutationBatch:  r.MutationBatch,
		AdaptiveStep:   r.AdaptiveStep,
		Dt2Ratio:       r.Dt2Ratio,
		Backtrack:      r.Backtrack,
		Rho:            r.Rho,
		C1:             r.C1,
		MaxShrink:      r.MaxShrink,
	}
}

// BuildGeometry constructs the initial mesh described by the mesh section.
func (c *Config) BuildGeometry() (*mesh.Geometry, error) {
	switch c.Mesh.Kind {
	case "icosphere":
		if c.Mesh.Subdivisions < 0 || c.Mesh.Radius <= 0 {
			return nil, fmt.Errorf("config: icosphere needs subdivisions >= 0 and radius > 0")
		}
		return mesh.Icosphere(c.Mesh.Subdivisions, c.Mesh.Radius), nil
	case "hexagon":
		if c.Mesh.Rings < 1 || c.Mesh.EdgeLength <= 0 {
			return nil, fmt.Errorf("config: hexagon needs rings >= 1 and edge_length > 0")
		}
		return mesh.HexagonPatch(c.Mesh.Rings, c.Mesh.EdgeLength), nil
	case "file":
		g, _, err := meshio.ReadFile(c.Mesh.Path)
		return g, err
	default:
		return nil, fmt.Errorf("config: unknown mesh kind %q", c.Mesh.Kind)
	}
}

// BuildSystem builds the geometry and the system in one go.
func (c *Config) BuildSystem() (*membrane.System, error) {
	g, err := c.BuildGeometry()
	if err != nil {
		return nil, err
	}
	return membrane.NewSystem(g, c.Parameters, c.Options, c.Seed)
}
