package fesd

import (
	"fmt"
	"strings"

	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/integrators"
	"github.com/san-kum/fesdsim/internal/mpcc"
)

// Initialization selects the primal guess handed to the homotopy.
type Initialization int

const (
	// AllXCurrent copies the current state into every element.
	AllXCurrent Initialization = iota
	// RK4Smoothed integrates the softmin-smoothed vector field.
	RK4Smoothed
	// WarmStart reuses the previous solution with the states reset to the
	// current state.
	WarmStart
)

func (i Initialization) String() string {
	switch i {
	case AllXCurrent:
		return "all_xcurrent"
	case RK4Smoothed:
		return "rk4_smoothed"
	case WarmStart:
		return "warm_start"
	default:
		return fmt.Sprintf("Initialization(%d)", int(i))
	}
}

func ParseInitialization(name string) (Initialization, error) {
	switch strings.ToLower(name) {
	case "all_xcurrent", "":
		return AllXCurrent, nil
	case "rk4_smoothed":
		return RK4Smoothed, nil
	case "warm_start":
		return WarmStart, nil
	}
	return AllXCurrent, fmt.Errorf("unknown initialization strategy: %s", name)
}

func (i Initialization) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Initialization) UnmarshalText(text []byte) error {
	v, err := ParseInitialization(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

type Options struct {
	NFiniteElements      int             `yaml:"n_finite_elements"`
	TerminalTime         float64         `yaml:"terminal_time"`
	CrossComplementarity bool            `yaml:"cross_complementarity"`
	Initialization       Initialization  `yaml:"initialization"`
	SmoothingKappa       float64         `yaml:"smoothing_kappa"`
	SmoothingIntegrator  string          `yaml:"smoothing_integrator"`
	Homotopy             homotopy.Config `yaml:"homotopy"`
}

func DefaultOptions() Options {
	return Options{
		NFiniteElements:     2,
		TerminalTime:        0.1,
		Initialization:      AllXCurrent,
		SmoothingKappa:      0.1,
		SmoothingIntegrator: "rk4",
		Homotopy:            homotopy.DefaultConfig(),
	}
}

func (o Options) Validate() error {
	bad := func(format string, args ...any) error {
		return &mpcc.ConfigurationError{Message: fmt.Sprintf(format, args...), Wrapped: mpcc.ErrInvalidConfig}
	}
	switch {
	case o.NFiniteElements <= 0:
		return bad("n_finite_elements must be positive, got %d", o.NFiniteElements)
	case o.TerminalTime <= 0:
		return bad("terminal_time must be positive, got %g", o.TerminalTime)
	case o.Initialization == RK4Smoothed && o.SmoothingKappa <= 0:
		return bad("smoothing_kappa must be positive, got %g", o.SmoothingKappa)
	}
	if o.Initialization == RK4Smoothed {
		if _, err := integrators.New(o.SmoothingIntegrator); err != nil {
			return bad("%v", err)
		}
	}
	return o.Homotopy.Validate()
}
