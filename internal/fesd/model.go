package fesd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/mpcc"
)

// Field evaluates dx = f(x; p_global).
type Field func(x, pg, dx []float64)

// FieldJac writes the Jacobian of a Field with respect to x.
type FieldJac func(x, pg []float64, jac *mat.Dense)

// Model is a Filippov system in Stewart form: the mode F_i is active where
// the indicator g_i(x) is the smallest.
type Model struct {
	Name     string
	NX       int
	X0       []float64
	F        []Field
	FJac     []FieldJac
	G        Field
	GJac     FieldJac
	NPGlobal int
	PGlobal  []float64
}

func (m *Model) NF() int { return len(m.F) }

func (m *Model) Validate() error {
	switch {
	case m.NX <= 0:
		return &mpcc.DimensionError{Field: "n_x", Want: 1, Got: m.NX}
	case len(m.X0) != m.NX:
		return &mpcc.DimensionError{Field: "x0", Want: m.NX, Got: len(m.X0)}
	case len(m.F) == 0:
		return &mpcc.DimensionError{Field: "modes", Want: 1, Got: 0}
	case m.FJac != nil && len(m.FJac) != len(m.F):
		return &mpcc.DimensionError{Field: "mode jacobians", Want: len(m.F), Got: len(m.FJac)}
	case m.G == nil:
		return fmt.Errorf("%w: model %s has no indicator function", mpcc.ErrDimensionMismatch, m.Name)
	case len(m.PGlobal) != m.NPGlobal:
		return &mpcc.DimensionError{Field: "p_global", Want: m.NPGlobal, Got: len(m.PGlobal)}
	}
	return nil
}

// Indicators evaluates g(x).
func (m *Model) Indicators(x, pg []float64) []float64 {
	g := make([]float64, m.NF())
	m.G(x, pg, g)
	return g
}

// Active returns the index of the smallest indicator.
func (m *Model) Active(x, pg []float64) int {
	g := m.Indicators(x, pg)
	best := 0
	for i, v := range g {
		if v < g[best] {
			best = i
		}
	}
	return best
}

// Lambda00 returns g(x0) - min g(x0), the Stewart multipliers of the state
// preceding the first finite element.
func (m *Model) Lambda00(x0, pg []float64) []float64 {
	g := m.Indicators(x0, pg)
	low := math.Inf(1)
	for _, v := range g {
		low = math.Min(low, v)
	}
	for i := range g {
		g[i] -= low
	}
	return g
}

func (m *Model) modeJac(i int, x, pg []float64, jac *mat.Dense) {
	if m.FJac != nil && m.FJac[i] != nil {
		m.FJac[i](x, pg, jac)
		return
	}
	fd.Jacobian(jac, func(y, z []float64) { m.F[i](z, pg, y) }, x, &fd.JacobianSettings{Formula: fd.Central})
}

func (m *Model) indicatorJac(x, pg []float64, jac *mat.Dense) {
	if m.GJac != nil {
		m.GJac(x, pg, jac)
		return
	}
	fd.Jacobian(jac, func(y, z []float64) { m.G(z, pg, y) }, x, &fd.JacobianSettings{Formula: fd.Central})
}

// Smoothed evaluates the convex combination of the modes weighted by the
// softmin of the indicators with temperature kappa.
func (m *Model) Smoothed(x, pg []float64, kappa float64, dx []float64) {
	theta := Softmin(m.Indicators(x, pg), kappa)
	for j := range dx {
		dx[j] = 0
	}
	fi := make([]float64, m.NX)
	for i, f := range m.F {
		f(x, pg, fi)
		for j := range dx {
			dx[j] += theta[i] * fi[j]
		}
	}
}

// Softmin returns exp(-g/kappa) normalized to sum one.
func Softmin(g []float64, kappa float64) []float64 {
	low := math.Inf(1)
	for _, v := range g {
		low = math.Min(low, v)
	}
	out := make([]float64, len(g))
	sum := 0.0
	for i, v := range g {
		out[i] = math.Exp(-(v - low) / kappa)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
