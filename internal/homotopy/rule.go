package homotopy

import (
	"fmt"
	"math"
	"strings"
)

// UpdateRule selects how the relaxation parameter shrinks between levels.
type UpdateRule int

const (
	// Linear multiplies sigma by the update slope.
	Linear UpdateRule = iota
	// Superlinear takes max(sigma_N, min(slope·sigma, sigma^exponent)).
	Superlinear
)

func (r UpdateRule) String() string {
	switch r {
	case Linear:
		return "linear"
	case Superlinear:
		return "superlinear"
	default:
		return fmt.Sprintf("UpdateRule(%d)", int(r))
	}
}

func ParseUpdateRule(name string) (UpdateRule, error) {
	switch strings.ToLower(name) {
	case "linear", "":
		return Linear, nil
	case "superlinear":
		return Superlinear, nil
	}
	return Linear, fmt.Errorf("unknown homotopy update rule: %s", name)
}

func (r UpdateRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *UpdateRule) UnmarshalText(text []byte) error {
	v, err := ParseUpdateRule(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Update returns the next relaxation level. It never increases sigma for a
// valid configuration.
func (r UpdateRule) Update(sigma float64, cfg Config) float64 {
	switch r {
	case Superlinear:
		return math.Max(cfg.SigmaN, math.Min(cfg.Slope*sigma, math.Pow(sigma, cfg.Exponent)))
	default:
		return cfg.Slope * sigma
	}
}
