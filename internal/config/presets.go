package config

import "sort"

// preset starts from the defaults and applies edit.
func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"black_scholes": {
		"atm": preset(func(c *Config) {}),
		"long_dated": preset(func(c *Config) {
			c.Scheme, c.Theta = "implicit", 1
			c.Option.Expiry = 5
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 10, 100, 6
		}),
		"richardson": preset(func(c *Config) {
			c.Scheme, c.Theta = "richardson", 1
			c.Option.Expiry = 5
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 10, 100, 6
		}),
		"put": preset(func(c *Config) {
			c.Option.Call = false
		}),
	},
	"log_black_scholes": {
		"atm": preset(func(c *Config) {
			c.Model = "log_black_scholes"
			c.Option.Strike, c.Market.Spot = 100, 100
			c.Grid.TimeSteps, c.Grid.SpaceMax = 100, 6
		}),
	},
	"cev": {
		"skew": preset(func(c *Config) {
			c.Model = "cev"
			c.Market.CEVBeta = 0.4
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 25, 100, 6
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.1
		}),
		"square_root": preset(func(c *Config) {
			c.Model = "cev"
			c.Market.CEVBeta = 0.5
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.1
		}),
	},
	"local_vol": {
		"skew": preset(func(c *Config) {
			c.Model = "local_vol"
			c.Market.Skew = -0.5
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.1
		}),
	},
	"american_put": {
		"reference": preset(func(c *Config) {
			c.Model = "american_put"
			c.Option.Call = false
			c.Option.Strike, c.Market.Spot = 100, 100
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 100, 200, 4
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.1
		}),
		"psor": preset(func(c *Config) {
			c.Model, c.Scheme = "american_put", "psor"
			c.Option.Call = false
			c.Option.Strike, c.Market.Spot = 100, 100
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 100, 200, 4
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.1
		}),
	},
	"regime_switching": {
		"calm_stress": preset(func(c *Config) {
			c.Model = "regime_switching"
			c.Regimes.Vols = []float64{0.15, 0.35}
			c.Regimes.Rates = []float64{0.5, 2}
		}),
	},
	"fokker_planck": {
		"lognormal": preset(func(c *Config) {
			c.Model = "fokker_planck"
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.SpaceMax = 200, 300, 5
			c.Grid.Mesh, c.Grid.Strength = "hyperbolic", 0.05
		}),
	},
	"heston": {
		"near_black_scholes": preset(func(c *Config) {
			c.Model, c.Scheme = "heston", "douglas"
			c.Heston = HestonConfig{Kappa: 2, Theta: 0.04, VolOfVol: 0.01, Rho: -0.5}
			c.Grid.TimeSteps, c.Grid.SpaceSteps, c.Grid.VarSteps, c.Grid.VarMax = 50, 80, 16, 0.16
		}),
		"skewed": preset(func(c *Config) {
			c.Model, c.Scheme = "heston", "operator_splitting"
			c.Grid.TimeSteps, c.Grid.SpaceSteps = 50, 100
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
