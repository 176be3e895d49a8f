package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pdesim/internal/adi"
	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/metrics"
)

const (
	BlackScholes    = "black_scholes"
	LogBlackScholes = "log_black_scholes"
	CEV             = "cev"
	LocalVol        = "local_vol"
	AmericanPut     = "american_put"
	RegimeSwitching = "regime_switching"
	FokkerPlanck    = "fokker_planck"
	Heston          = "heston"
)

var (
	thetaSchemes    = []string{"explicit", "implicit", "crank_nicolson", "theta"}
	oneFactor       = append(append([]string(nil), thetaSchemes...), "richardson")
	americanSchemes = append(append([]string(nil), oneFactor...), "psor")
)

// Model builds and solves one family of problems.
type Model struct {
	Name        string
	Description string
	Schemes     []string
	run         func(cfg *config.Config, ms []metrics.Metric) (*Outcome, error)
}

func (m *Model) supports(scheme string) bool {
	for _, s := range m.Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

type Registry struct {
	models map[string]*Model
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]*Model)}

	r.add(&Model{BlackScholes, "vanilla option, spot grid", oneFactor, runBlackScholes})
	r.add(&Model{LogBlackScholes, "vanilla option, log-spot grid", oneFactor, runLogBlackScholes})
	r.add(&Model{CEV, "vanilla option on a CEV forward", oneFactor, runCEV})
	r.add(&Model{LocalVol, "vanilla option under a power-law local vol", oneFactor, runLocalVol})
	r.add(&Model{AmericanPut, "early-exercise put", americanSchemes, runAmericanPut})
	r.add(&Model{RegimeSwitching, "two-regime Black-Scholes", thetaSchemes, runRegimeSwitching})
	r.add(&Model{FokkerPlanck, "regime densities and their local vol", thetaSchemes, runFokkerPlanck})
	r.add(&Model{Heston, "stochastic-vol call by ADI", adi.Names(), runHeston})

	return r
}

func (r *Registry) add(m *Model) { r.models[m.Name] = m }

func (r *Registry) GetModel(name string) (*Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q: %w", name, fdm.ErrParameterBounds)
	}
	return m, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are attached to every marching solve. The stability
// threshold scales with the strike so that it flags blow-ups, not prices.
func (r *Registry) DefaultMetrics(cfg *config.Config) []metrics.Metric {
	return []metrics.Metric{
		metrics.NewMaxAbs(),
		metrics.NewStability(1e3 * (cfg.Option.Strike + cfg.Market.Spot)),
		metrics.NewMinValue(),
	}
}
