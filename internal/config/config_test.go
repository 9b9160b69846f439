package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryPresetBuilds(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			require.NotNil(t, cfg)
			sys, err := cfg.BuildSystem()
			require.NoError(t, err)

			// a preset must survive a full evaluation out of the box
			sys.ComputeConservativeForcing()
			sys.ComputeTotalEnergy()
			require.NoError(t, sys.CheckFiniteness())
		})
	}
}

func TestGetPresetUnknown(t *testing.T) {
	assert.Nil(t, GetPreset("does-not-exist"))
}

func TestGetPresetReturnsFreshCopy(t *testing.T) {
	a := GetPreset("vesicle-relax")
	a.Parameters.Bending.Kb = 999
	b := GetPreset("vesicle-relax")
	assert.NotEqual(t, a.Parameters.Bending.Kb, b.Parameters.Bending.Kb)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("budding")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, got.Name)
	assert.Equal(t, cfg.Integrator, got.Integrator)
	assert.Equal(t, cfg.Mesh, got.Mesh)
	assert.Equal(t, cfg.Parameters, got.Parameters)
	assert.Equal(t, cfg.Options, got.Options)
	assert.Equal(t, cfg.Run, got.Run)
}

func TestLoadKeepsDefaults(t *testing.T) {
	// a sparse document only overrides what it names
	path := filepath.Join(t.TempDir(), "sparse.yaml")
	doc := "name: sparse\nintegrator: verlet\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sparse", cfg.Name)
	assert.Equal(t, "verlet", cfg.Integrator)
	assert.Equal(t, DefaultConfig().Mesh, cfg.Mesh)
	assert.Equal(t, DefaultConfig().Run.Tolerance, cfg.Run.Tolerance)
}

func TestBuildGeometryRejectsBadKinds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mesh.Kind = "torus"
	_, err := cfg.BuildGeometry()
	require.Error(t, err)

	cfg.Mesh = MeshConfig{Kind: "icosphere", Subdivisions: -1, Radius: 1}
	_, err = cfg.BuildGeometry()
	require.Error(t, err)

	cfg.Mesh = MeshConfig{Kind: "hexagon", Rings: 0, EdgeLength: 0.1}
	_, err = cfg.BuildGeometry()
	require.Error(t, err)
}

func TestIntegratorOptionsMapping(t *testing.T) {
	cfg := GetPreset("patch-poke")
	opts := cfg.Run.IntegratorOptions()
	assert.Equal(t, cfg.Run.TotalTime, opts.TotalTime)
	assert.Equal(t, cfg.Run.AdaptiveStep, opts.AdaptiveStep)
	assert.Equal(t, cfg.Run.Backtrack, opts.Backtrack)
	assert.Equal(t, cfg.Run.MutationBatch, opts.MutationBatch)
}
