package mpcc

import (
	"math"
)

type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// InfNorm returns max |v_i|. A NaN entry yields +Inf so that callers comparing
// residual norms never accept a NaN point.
func (v Vector) InfNorm() float64 {
	norm := 0.0
	for _, x := range v {
		if math.IsNaN(x) {
			return math.Inf(1)
		}
		norm = math.Max(norm, math.Abs(x))
	}
	return norm
}

// Params is the numeric parameter vector passed to every oracle evaluation.
type Params struct {
	Sigma    float64
	Tau      float64
	X0       []float64
	Lambda00 []float64
	Global   []float64
}

func (p Params) Clone() Params {
	return Params{
		Sigma:    p.Sigma,
		Tau:      p.Tau,
		X0:       Vector(p.X0).Clone(),
		Lambda00: Vector(p.Lambda00).Clone(),
		Global:   Vector(p.Global).Clone(),
	}
}

// Kind distinguishes pure simulation problems from optimal-control problems.
type Kind int

const (
	Simulation Kind = iota
	OptimalControl
)

func (k Kind) String() string {
	switch k {
	case Simulation:
		return "simulation"
	case OptimalControl:
		return "optimal_control"
	default:
		return "unknown"
	}
}

// CompResidual measures exact complementarity violation as max_i min(|a_i|, |b_i|).
func CompResidual(a, b []float64) float64 {
	res := 0.0
	for i := range a {
		v := math.Min(math.Abs(a[i]), math.Abs(b[i]))
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		res = math.Max(res, v)
	}
	return res
}
