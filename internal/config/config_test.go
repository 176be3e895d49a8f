package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "black_scholes", cfg.Model)
	assert.Equal(t, "crank_nicolson", cfg.Scheme)
	assert.True(t, cfg.Option.Call)
	require.NoError(t, cfg.Validate())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("cev", "skew")
	require.NotNil(t, cfg)
	assert.Equal(t, 0.4, cfg.Market.CEVBeta)
	assert.Equal(t, "hyperbolic", cfg.Grid.Mesh)

	cfg.Regimes.Vols[0] = 9
	assert.Equal(t, 0.15, GetPreset("cev", "skew").Regimes.Vols[0])
}

func TestGetPresetNotFound(t *testing.T) {
	assert.Nil(t, GetPreset("cev", "nonexistent"))
	assert.Nil(t, GetPreset("nonexistent", "skew"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"psor", "reference"}, ListPresets("american_put"))
	assert.Nil(t, ListPresets("nonexistent"))
}

func TestPresetsValidate(t *testing.T) {
	for model, byName := range Presets {
		for name, cfg := range byName {
			assert.NoError(t, cfg.Validate(), "%s/%s", model, name)
			assert.Equal(t, model, cfg.Model, "%s/%s", model, name)
		}
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run.yaml", "run.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			want := GetPreset("american_put", "reference")
			require.NoError(t, Save(path, want))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cev.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("model: cev\nmarket:\n  cev_beta: 0.3\n"), 0644))
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "cev", cfg.Model)
	assert.Equal(t, 0.3, cfg.Market.CEVBeta)
	assert.Equal(t, DefaultVol, cfg.Market.Vol)

	tomlPath := filepath.Join(dir, "heston.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("model = \"heston\"\n[heston]\nrho = -0.9\n"), 0644))
	cfg, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, -0.9, cfg.Heston.Rho)
	assert.Equal(t, 2.0, cfg.Heston.Kappa)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("model = "), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"no model", func(c *Config) { c.Model = "" }},
		{"negative vol", func(c *Config) { c.Market.Vol = -0.1 }},
		{"theta", func(c *Config) { c.Theta = 1.5 }},
		{"grid", func(c *Config) { c.Grid.SpaceSteps = 1 }},
		{"single time step", func(c *Config) { c.Grid.TimeSteps = 1 }},
		{"mesh", func(c *Config) { c.Grid.Mesh = "chebyshev" }},
		{"hyperbolic strength", func(c *Config) { c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0 }},
		{"regimes", func(c *Config) { c.Regimes.Vols = []float64{0.2} }},
		{"regime rate", func(c *Config) { c.Regimes.Rates[1] = -1 }},
		{"rho", func(c *Config) { c.Heston.Rho = -1.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			assert.ErrorIs(t, cfg.Validate(), fdm.ErrParameterBounds)
		})
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.SetParam("vol", 0.3))
	require.NoError(t, cfg.SetParam("rho", -0.2))
	require.NoError(t, cfg.SetParam("long_var", 0.09))
	assert.Equal(t, 0.3, cfg.Market.Vol)
	assert.Equal(t, -0.2, cfg.Heston.Rho)
	assert.Equal(t, 0.09, cfg.Heston.Theta)

	err := cfg.SetParam("sigma", 1)
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
	assert.Contains(t, Params(), "vol_of_vol")
	assert.True(t, sort.StringsAreSorted(Params()))
}
