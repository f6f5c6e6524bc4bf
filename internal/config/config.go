package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/mpcc"
)

const (
	DefaultModel    = "oscillator"
	DefaultSteps    = 29
	DefaultHorizon  = 1.5707963267948966
	DefaultLogLevel = "info"
)

type Config struct {
	Model    string       `yaml:"model"`
	Steps    int          `yaml:"steps"`
	Horizon  float64      `yaml:"horizon"`
	X0       []float64    `yaml:"x0,omitempty"`
	PGlobal  []float64    `yaml:"p_global,omitempty"`
	PValues  [][]float64  `yaml:"p_values,omitempty"`
	LogLevel string       `yaml:"log_level"`
	Solver   fesd.Options `yaml:"solver"`
}

func DefaultConfig() *Config {
	solver := fesd.DefaultOptions()
	solver.Homotopy.CompTol = 1e-6
	return &Config{
		Model:    DefaultModel,
		Steps:    DefaultSteps,
		Horizon:  DefaultHorizon,
		LogLevel: DefaultLogLevel,
		Solver:   solver,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
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

// StepTime is the length of one simulation step.
func (c *Config) StepTime() float64 {
	return c.Horizon / float64(c.Steps)
}

// SolverOptions returns the solver options with the terminal time of one
// step derived from the horizon.
func (c *Config) SolverOptions() fesd.Options {
	opts := c.Solver
	opts.TerminalTime = c.StepTime()
	return opts
}

func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return &mpcc.ConfigurationError{Message: fmt.Sprintf("steps must be positive, got %d", c.Steps), Wrapped: mpcc.ErrInvalidConfig}
	}
	if c.Horizon <= 0 {
		return &mpcc.ConfigurationError{Message: fmt.Sprintf("horizon must be positive, got %g", c.Horizon), Wrapped: mpcc.ErrInvalidConfig}
	}
	return c.SolverOptions().Validate()
}

// Apply overrides the model defaults with the configured x0 and p_global.
func (c *Config) Apply(m *fesd.Model) error {
	if c.X0 != nil {
		if len(c.X0) != m.NX {
			return &mpcc.DimensionError{Field: "x0", Want: m.NX, Got: len(c.X0)}
		}
		m.X0 = append([]float64(nil), c.X0...)
	}
	if c.PGlobal != nil {
		if len(c.PGlobal) != m.NPGlobal {
			return &mpcc.DimensionError{Field: "p_global", Want: m.NPGlobal, Got: len(c.PGlobal)}
		}
		m.PGlobal = append([]float64(nil), c.PGlobal...)
	}
	return nil
}
