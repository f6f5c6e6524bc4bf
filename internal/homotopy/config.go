package homotopy

import (
	"fmt"

	"github.com/san-kum/fesdsim/internal/kkt"
	"github.com/san-kum/fesdsim/internal/mpcc"
	"github.com/san-kum/fesdsim/internal/newton"
)

const (
	DefaultSigma0   = 1.0
	DefaultSigmaN   = 1e-9
	DefaultSlope    = 0.1
	DefaultExponent = 1.5
	DefaultCompTol  = 1e-9
	DefaultMaxIter  = 15
)

type Config struct {
	Sigma0    float64         `yaml:"sigma_0"`
	SigmaN    float64         `yaml:"sigma_N"`
	Rule      UpdateRule      `yaml:"update_rule"`
	Slope     float64         `yaml:"update_slope"`
	Exponent  float64         `yaml:"update_exponent"`
	CompTol   float64         `yaml:"comp_tol"`
	MaxIter   int             `yaml:"max_iter"`
	SlackInit kkt.SlackInit   `yaml:"slack_init"`
	LamInit   float64         `yaml:"lambda_init"`
	MuInit    float64         `yaml:"mu_init"`
	Newton    newton.Settings `yaml:"newton"`
}

func DefaultConfig() Config {
	return Config{
		Sigma0:    DefaultSigma0,
		SigmaN:    DefaultSigmaN,
		Rule:      Linear,
		Slope:     DefaultSlope,
		Exponent:  DefaultExponent,
		CompTol:   DefaultCompTol,
		MaxIter:   DefaultMaxIter,
		SlackInit: kkt.SlackZero,
		LamInit:   0,
		MuInit:    1,
		Newton:    newton.DefaultSettings(),
	}
}

func invalid(format string, args ...any) error {
	return &mpcc.ConfigurationError{Message: fmt.Sprintf(format, args...), Wrapped: mpcc.ErrInvalidConfig}
}

func (c Config) Validate() error {
	switch {
	case c.Sigma0 <= 0:
		return invalid("sigma_0 must be positive, got %g", c.Sigma0)
	case c.SigmaN < 0 || c.SigmaN > c.Sigma0:
		return invalid("sigma_N must be in [0, sigma_0], got %g", c.SigmaN)
	case c.Slope <= 0 || c.Slope >= 1:
		return invalid("update slope must be in (0,1), got %g", c.Slope)
	case c.Rule != Linear && c.Rule != Superlinear:
		return invalid("unknown update rule %v", c.Rule)
	case c.Rule == Superlinear && c.Exponent <= 1:
		return invalid("superlinear exponent must exceed 1, got %g", c.Exponent)
	case c.CompTol <= 0:
		return invalid("comp_tol must be positive, got %g", c.CompTol)
	case c.MaxIter <= 0:
		return invalid("max homotopy iterations must be positive, got %d", c.MaxIter)
	}
	return c.Newton.Validate()
}
