// Package config loads and saves problem descriptions for the CLI. Files
// ending in .toml are read with BurntSushi/toml; anything else is YAML.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/pdesim/internal/fdm"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSpot       = 1.0
	DefaultStrike     = 1.0
	DefaultExpiry     = 1.0
	DefaultRate       = 0.05
	DefaultVol        = 0.2
	DefaultTheta      = 0.5
	DefaultTimeSteps  = 50
	DefaultSpaceSteps = 200
	DefaultSpaceMax   = 4.0
)

type Config struct {
	Model       string  `yaml:"model" toml:"model"`
	Scheme      string  `yaml:"scheme" toml:"scheme"`
	Theta       float64 `yaml:"theta" toml:"theta"`
	FullResults bool    `yaml:"full_results" toml:"full_results"`

	// Experimental unlocks the ADI schemes that are not yet trusted.
	Experimental bool `yaml:"experimental" toml:"experimental"`

	Market  MarketConfig  `yaml:"market" toml:"market"`
	Option  OptionConfig  `yaml:"option" toml:"option"`
	Grid    GridConfig    `yaml:"grid" toml:"grid"`
	Heston  HestonConfig  `yaml:"heston" toml:"heston"`
	Regimes RegimesConfig `yaml:"regimes" toml:"regimes"`
}

type MarketConfig struct {
	Spot     float64 `yaml:"spot" toml:"spot"`
	Rate     float64 `yaml:"rate" toml:"rate"`
	Dividend float64 `yaml:"dividend" toml:"dividend"`
	Vol      float64 `yaml:"vol" toml:"vol"`
	// CEVBeta is the elasticity of the cev model.
	CEVBeta float64 `yaml:"cev_beta" toml:"cev_beta"`
	// Skew tilts the local_vol surface: σ(t, s) = vol·(s/spot)^skew.
	Skew float64 `yaml:"skew" toml:"skew"`
}

type OptionConfig struct {
	Strike float64 `yaml:"strike" toml:"strike"`
	Expiry float64 `yaml:"expiry" toml:"expiry"`
	Call   bool    `yaml:"call" toml:"call"`
}

// GridConfig sizes the grid. SpaceMax is a multiple of the strike (of the
// spot for densities); Mesh is uniform, exponential or hyperbolic with
// Strength its λ or β.
type GridConfig struct {
	TimeSteps  int     `yaml:"time_steps" toml:"time_steps"`
	SpaceSteps int     `yaml:"space_steps" toml:"space_steps"`
	SpaceMax   float64 `yaml:"space_max" toml:"space_max"`
	Mesh       string  `yaml:"mesh" toml:"mesh"`
	Strength   float64 `yaml:"strength" toml:"strength"`
	VarSteps   int     `yaml:"var_steps" toml:"var_steps"`
	VarMax     float64 `yaml:"var_max" toml:"var_max"`
}

type HestonConfig struct {
	Kappa    float64 `yaml:"kappa" toml:"kappa"`
	Theta    float64 `yaml:"theta" toml:"theta"`
	VolOfVol float64 `yaml:"vol_of_vol" toml:"vol_of_vol"`
	Rho      float64 `yaml:"rho" toml:"rho"`
}

// RegimesConfig describes a two-state regime-switching model: Vols[i] is
// the volatility in regime i and Rates[i] the rate of leaving it.
type RegimesConfig struct {
	Vols  []float64 `yaml:"vols" toml:"vols"`
	Rates []float64 `yaml:"rates" toml:"rates"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:  "black_scholes",
		Scheme: "crank_nicolson",
		Theta:  DefaultTheta,
		Market: MarketConfig{
			Spot:    DefaultSpot,
			Rate:    DefaultRate,
			Vol:     DefaultVol,
			CEVBeta: 0.5,
		},
		Option: OptionConfig{
			Strike: DefaultStrike,
			Expiry: DefaultExpiry,
			Call:   true,
		},
		Grid: GridConfig{
			TimeSteps:  DefaultTimeSteps,
			SpaceSteps: DefaultSpaceSteps,
			SpaceMax:   DefaultSpaceMax,
			Mesh:       "uniform",
			VarSteps:   32,
			VarMax:     0.5,
		},
		Heston: HestonConfig{Kappa: 2, Theta: 0.04, VolOfVol: 0.3, Rho: -0.7},
		Regimes: RegimesConfig{
			Vols:  []float64{0.15, 0.35},
			Rates: []float64{1, 1},
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path over the defaults, so files only need the fields they
// change.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("config: %s must be positive, got %v: %w", name, v, fdm.ErrParameterBounds)
	}
	return nil
}

// Validate checks ranges; it does not know which models or schemes exist.
func (c *Config) Validate() error {
	if c.Model == "" || c.Scheme == "" {
		return fmt.Errorf("config: model and scheme are required: %w", fdm.ErrParameterBounds)
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"market.spot", c.Market.Spot},
		{"market.vol", c.Market.Vol},
		{"option.strike", c.Option.Strike},
		{"option.expiry", c.Option.Expiry},
		{"grid.space_max", c.Grid.SpaceMax},
	}
	for _, ch := range checks {
		if err := positive(ch.name, ch.v); err != nil {
			return err
		}
	}
	if !(c.Theta >= 0 && c.Theta <= 1) {
		return fmt.Errorf("config: theta %v not in [0, 1]: %w", c.Theta, fdm.ErrParameterBounds)
	}
	if c.Grid.TimeSteps < 2 || c.Grid.SpaceSteps < 2 {
		return fmt.Errorf("config: grid needs at least 2 time steps and 2 space steps, got %d and %d: %w",
			c.Grid.TimeSteps, c.Grid.SpaceSteps, fdm.ErrParameterBounds)
	}
	switch c.Grid.Mesh {
	case "", "uniform", "exponential":
	case "hyperbolic":
		if err := positive("grid.strength", c.Grid.Strength); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: unknown mesh %q: %w", c.Grid.Mesh, fdm.ErrParameterBounds)
	}
	if len(c.Regimes.Vols) != 2 || len(c.Regimes.Rates) != 2 {
		return fmt.Errorf("config: regimes need two vols and two rates: %w", fdm.ErrParameterBounds)
	}
	for i := range c.Regimes.Vols {
		if err := positive(fmt.Sprintf("regimes.vols[%d]", i), c.Regimes.Vols[i]); err != nil {
			return err
		}
		if !(c.Regimes.Rates[i] >= 0) {
			return fmt.Errorf("config: regimes.rates[%d] is %v: %w", i, c.Regimes.Rates[i], fdm.ErrParameterBounds)
		}
	}
	if math.Abs(c.Heston.Rho) > 1 {
		return fmt.Errorf("config: heston.rho %v outside [-1, 1]: %w", c.Heston.Rho, fdm.ErrParameterBounds)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Regimes.Vols = append([]float64(nil), c.Regimes.Vols...)
	out.Regimes.Rates = append([]float64(nil), c.Regimes.Rates...)
	return &out
}

// Params lists the names SetParam accepts.
func Params() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var params = map[string]func(c *Config) *float64{
	"spot":       func(c *Config) *float64 { return &c.Market.Spot },
	"rate":       func(c *Config) *float64 { return &c.Market.Rate },
	"dividend":   func(c *Config) *float64 { return &c.Market.Dividend },
	"vol":        func(c *Config) *float64 { return &c.Market.Vol },
	"cev_beta":   func(c *Config) *float64 { return &c.Market.CEVBeta },
	"skew":       func(c *Config) *float64 { return &c.Market.Skew },
	"strike":     func(c *Config) *float64 { return &c.Option.Strike },
	"expiry":     func(c *Config) *float64 { return &c.Option.Expiry },
	"theta":      func(c *Config) *float64 { return &c.Theta },
	"kappa":      func(c *Config) *float64 { return &c.Heston.Kappa },
	"long_var":   func(c *Config) *float64 { return &c.Heston.Theta },
	"vol_of_vol": func(c *Config) *float64 { return &c.Heston.VolOfVol },
	"rho":        func(c *Config) *float64 { return &c.Heston.Rho },
}

// SetParam sets one scalar parameter by name, for sweeps and calibration.
func (c *Config) SetParam(name string, v float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("config: unknown parameter %q (known: %v): %w", name, Params(), fdm.ErrParameterBounds)
	}
	*p(c) = v
	return nil
}
