package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/metrics"
	"github.com/san-kum/fesdsim/internal/models"
)

const (
	MetricNLPIter = "total_nlp_iter"
	MetricFailed  = "failed_steps"
	MetricCPU     = "cpu_seconds"
	MetricCompRes = "max_comp_res"
)

// Metric names understood by Metrics.
func MetricNames() []string {
	return []string{MetricNLPIter, MetricFailed, MetricCPU, MetricCompRes}
}

// setters maps tunable setting names to config fields.
var setters = map[string]func(c *config.Config, v float64){
	"sigma_0":           func(c *config.Config, v float64) { c.Solver.Homotopy.Sigma0 = v },
	"sigma_N":           func(c *config.Config, v float64) { c.Solver.Homotopy.SigmaN = v },
	"update_slope":      func(c *config.Config, v float64) { c.Solver.Homotopy.Slope = v },
	"update_exponent":   func(c *config.Config, v float64) { c.Solver.Homotopy.Exponent = v },
	"comp_tol":          func(c *config.Config, v float64) { c.Solver.Homotopy.CompTol = v },
	"max_iter":          func(c *config.Config, v float64) { c.Solver.Homotopy.MaxIter = int(v) },
	"lambda_init":       func(c *config.Config, v float64) { c.Solver.Homotopy.LamInit = v },
	"mu_init":           func(c *config.Config, v float64) { c.Solver.Homotopy.MuInit = v },
	"regularization":    func(c *config.Config, v float64) { c.Solver.Homotopy.Newton.Regularization = v },
	"n_finite_elements": func(c *config.Config, v float64) { c.Solver.NFiniteElements = int(v) },
	"smoothing_kappa":   func(c *config.Config, v float64) { c.Solver.SmoothingKappa = v },
}

func ParamNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetParam writes one named setting into cfg.
func SetParam(cfg *config.Config, name string, v float64) error {
	fn, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", name)
	}
	fn(cfg, v)
	return nil
}

// DefaultMetrics returns fresh trajectory metrics suited to the model.
func DefaultMetrics(model string) []metrics.Metric {
	out := []metrics.Metric{
		metrics.NewSwitches(),
		metrics.NewSliding(1e-3),
		metrics.NewStability(1e3),
	}
	if model == "pendulum" {
		out = append(out, metrics.NewEnergyDrift("energy_change", models.NewPendulum().Energy))
	}
	return out
}
