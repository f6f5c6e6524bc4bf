package config

import (
	"math"
	"sort"

	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/homotopy"
)

func preset(model string, steps int, horizon float64, mutate func(c *Config)) func() *Config {
	return func() *Config {
		c := DefaultConfig()
		c.Model = model
		c.Steps = steps
		c.Horizon = horizon
		if mutate != nil {
			mutate(c)
		}
		return c
	}
}

var Presets = map[string]map[string]func() *Config{
	"oscillator": {
		"reference": preset("oscillator", 29, math.Pi/2, nil),
		"superlinear": preset("oscillator", 29, math.Pi/2, func(c *Config) {
			c.Solver.Homotopy.Rule = homotopy.Superlinear
		}),
		"cross": preset("oscillator", 29, math.Pi/2, func(c *Config) {
			c.Solver.CrossComplementarity = true
			c.Solver.Homotopy.CompTol = 1e-7
		}),
	},
	"relay": {
		"sliding": preset("relay", 10, 1, func(c *Config) {
			c.X0 = []float64{0.35}
		}),
		"drift": preset("relay", 10, 1, func(c *Config) {
			c.X0 = []float64{0.35}
			c.PGlobal = []float64{0.5}
		}),
		"smoothed": preset("relay", 10, 1, func(c *Config) {
			c.Solver.Initialization = fesd.RK4Smoothed
		}),
	},
	"decay": {
		"reference": preset("decay", 10, 1, nil),
	},
	"pendulum": {
		"small": preset("pendulum", 40, 4, func(c *Config) {
			c.X0 = []float64{0.2, 0}
		}),
		"spinning": preset("pendulum", 40, 4, func(c *Config) {
			c.X0 = []float64{0.1, 3}
			c.Solver.Initialization = fesd.WarmStart
		}),
	},
}

// GetPreset returns a fresh copy of the named preset or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	build, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return build()
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
