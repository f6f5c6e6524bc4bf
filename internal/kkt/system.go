package kkt

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/mpcc"
)

// SlackInit selects how the slack block of the initial iterate is seeded.
type SlackInit int

const (
	// SlackZero starts every slack at zero.
	SlackZero SlackInit = iota
	// SlackRelation evaluates s = -G1·G2 + sigma at the initial primal guess.
	SlackRelation
)

func (s SlackInit) String() string {
	switch s {
	case SlackZero:
		return "zero"
	case SlackRelation:
		return "relation"
	default:
		return fmt.Sprintf("SlackInit(%d)", int(s))
	}
}

func ParseSlackInit(name string) (SlackInit, error) {
	switch strings.ToLower(name) {
	case "zero", "":
		return SlackZero, nil
	case "relation":
		return SlackRelation, nil
	}
	return SlackZero, fmt.Errorf("unknown slack init: %s", name)
}

func (s SlackInit) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SlackInit) UnmarshalText(text []byte) error {
	v, err := ParseSlackInit(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// System is the residual/Jacobian oracle of the smoothed KKT equations.
// It is built once per problem and is stateless afterwards.
type System struct {
	prob   *mpcc.Problem
	layout Layout
	eqRows []int
}

// Build validates the problem and assembles its primal-dual system.
func Build(prob *mpcc.Problem) (*System, error) {
	if err := prob.Validate(); err != nil {
		return nil, err
	}

	eq := prob.EqualityRows()
	s := &System{
		prob:   prob,
		eqRows: eq,
		layout: Layout{NW: prob.NW, NH: len(eq), NComp: prob.NComp()},
	}

	logrus.WithFields(logrus.Fields{
		"problem": prob.Name,
		"n_w":     s.layout.NW,
		"n_H":     s.layout.NH,
		"n_comp":  s.layout.NComp,
		"n_w_pd":  s.layout.Dim(),
	}).Debug("created primal dual problem")

	return s, nil
}

func (s *System) Layout() Layout { return s.layout }
func (s *System) Dim() int       { return s.layout.Dim() }
func (s *System) NComp() int     { return s.layout.NComp }

// point caches the problem functions evaluated at one primal vector.
type point struct {
	h, g1, g2  []float64
	jh, j1, j2 *mat.Dense
}

func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func (s *System) evalPoint(w []float64, p *mpcc.Params, withJac bool) *point {
	l := s.layout
	pt := &point{
		h:  make([]float64, l.NH),
		g1: make([]float64, l.NComp),
		g2: make([]float64, l.NComp),
	}

	if l.NH > 0 {
		nc := s.prob.Constraints.N
		g := make([]float64, nc)
		s.prob.Constraints.Eval(w, p, g)
		for i, row := range s.eqRows {
			pt.h[i] = g[row] - s.prob.Lower[row]
		}
		if withJac {
			full := mat.NewDense(nc, l.NW, nil)
			s.prob.Constraints.Jacobian(w, p, full)
			pt.jh = mat.NewDense(l.NH, l.NW, nil)
			for i, row := range s.eqRows {
				pt.jh.SetRow(i, full.RawRowView(row))
			}
		}
	}

	if l.NComp > 0 {
		s.prob.EvalG1(w, p, pt.g1)
		s.prob.G2.Eval(w, p, pt.g2)
		if withJac {
			pt.j1 = newDense(l.NComp, l.NW)
			pt.j2 = newDense(l.NComp, l.NW)
			s.prob.JacG1(w, p, pt.j1)
			s.prob.G2.Jacobian(w, p, pt.j2)
		}
	}
	return pt
}

// statW evaluates J_H' lam_H + J_sc' lam_comp - J_G1' mu_G1 - J_G2' mu_G2 with
// J_sc = diag(G2) J_G1 + diag(G1) J_G2.
func (s *System) statW(pt *point, parts Parts, out []float64) {
	for j := range out {
		out[j] = 0
	}
	for i := 0; i < s.layout.NH; i++ {
		row := pt.jh.RawRowView(i)
		for j, v := range row {
			out[j] += v * parts.LamH[i]
		}
	}
	for i := 0; i < s.layout.NComp; i++ {
		c1 := pt.g2[i]*parts.LamComp[i] - parts.MuG1[i]
		c2 := pt.g1[i]*parts.LamComp[i] - parts.MuG2[i]
		r1 := pt.j1.RawRowView(i)
		r2 := pt.j2.RawRowView(i)
		for j := range out {
			out[j] += r1[j]*c1 + r2[j]*c2
		}
	}
}

// FischerBurmeister returns a + b - sqrt(a² + b² + 2τ).
func FischerBurmeister(a, b, tau float64) float64 {
	return a + b - math.Sqrt(a*a+b*b+2*tau)
}

// fbGrad returns the partial derivatives of φ with respect to a and b.
func fbGrad(a, b, tau float64) (float64, float64) {
	r := math.Sqrt(a*a + b*b + 2*tau)
	if r == 0 {
		return 1 - math.Sqrt2/2, 1 - math.Sqrt2/2
	}
	return 1 - a/r, 1 - b/r
}

func (s *System) fill(w []float64, p *mpcc.Params, r []float64, pt *point) Parts {
	l := s.layout
	parts := l.Split(w)

	s.statW(pt, parts, r[:l.NW])
	for i := 0; i < l.NComp; i++ {
		r[l.RowStatS()+i] = parts.LamComp[i] - parts.MuS[i]
	}
	copy(r[l.RowH():l.RowH()+l.NH], pt.h)
	for i := 0; i < l.NComp; i++ {
		r[l.RowComp()+i] = parts.Slack[i] + pt.g1[i]*pt.g2[i] - p.Sigma
	}
	fb := l.RowFB()
	for i := 0; i < l.NComp; i++ {
		r[fb+i] = FischerBurmeister(pt.g1[i], parts.MuG1[i], p.Tau)
		r[fb+l.NComp+i] = FischerBurmeister(pt.g2[i], parts.MuG2[i], p.Tau)
		r[fb+2*l.NComp+i] = FischerBurmeister(parts.Slack[i], parts.MuS[i], p.Tau)
	}
	return parts
}

// Residual evaluates the stacked KKT residual at w into dst.
func (s *System) Residual(w []float64, p *mpcc.Params, dst []float64) {
	pt := s.evalPoint(w[:s.layout.NW], p, true)
	s.fill(w, p, dst, pt)
}

// ResidualJacobian evaluates the residual into r and its Jacobian with respect
// to w_pd into jac (Dim×Dim). The second-order block d stat_w/dw is a central
// finite difference of stat_w with the multipliers held fixed.
func (s *System) ResidualJacobian(w []float64, p *mpcc.Params, r []float64, jac *mat.Dense) {
	l := s.layout
	pt := s.evalPoint(w[:l.NW], p, true)
	parts := s.fill(w, p, r, pt)

	jac.Zero()

	hess := jac.Slice(0, l.NW, 0, l.NW).(*mat.Dense)
	fd.Jacobian(hess, func(y, x []float64) {
		s.statW(s.evalPoint(x, p, true), parts, y)
	}, parts.W, &fd.JacobianSettings{Formula: fd.Central})

	for i := 0; i < l.NH; i++ {
		row := pt.jh.RawRowView(i)
		for j, v := range row {
			jac.Set(j, l.LamH()+i, v)
			jac.Set(l.RowH()+i, j, v)
		}
	}

	fb := l.RowFB()
	for i := 0; i < l.NComp; i++ {
		r1 := pt.j1.RawRowView(i)
		r2 := pt.j2.RawRowView(i)
		d1a, d1b := fbGrad(pt.g1[i], parts.MuG1[i], p.Tau)
		d2a, d2b := fbGrad(pt.g2[i], parts.MuG2[i], p.Tau)
		dsa, dsb := fbGrad(parts.Slack[i], parts.MuS[i], p.Tau)

		for j := 0; j < l.NW; j++ {
			jsc := pt.g2[i]*r1[j] + pt.g1[i]*r2[j]
			// stat_w columns
			jac.Set(j, l.LamComp()+i, jsc)
			jac.Set(j, l.MuG1()+i, -r1[j])
			jac.Set(j, l.MuG2()+i, -r2[j])
			// slacked complementarity and FB rows
			jac.Set(l.RowComp()+i, j, jsc)
			jac.Set(fb+i, j, d1a*r1[j])
			jac.Set(fb+l.NComp+i, j, d2a*r2[j])
		}

		jac.Set(l.RowStatS()+i, l.LamComp()+i, 1)
		jac.Set(l.RowStatS()+i, l.MuS()+i, -1)
		jac.Set(l.RowComp()+i, l.Slack()+i, 1)
		jac.Set(fb+i, l.MuG1()+i, d1b)
		jac.Set(fb+l.NComp+i, l.MuG2()+i, d2b)
		jac.Set(fb+2*l.NComp+i, l.Slack()+i, dsa)
		jac.Set(fb+2*l.NComp+i, l.MuS()+i, dsb)
	}
}

// Slack0 evaluates the slack defining relation -diag(G1)·G2 + sigma at the primal point w.
func (s *System) Slack0(w []float64, p *mpcc.Params) []float64 {
	pt := s.evalPoint(w, p, false)
	out := make([]float64, s.layout.NComp)
	for i := range out {
		out[i] = -pt.g1[i]*pt.g2[i] + p.Sigma
	}
	return out
}

// InitialIterate assembles a fresh primal-dual vector from the primal guess w0.
// Equality and complementarity multipliers start at lam0, the smoothing
// multipliers mu_G1, mu_G2, mu_s at mu0.
func (s *System) InitialIterate(w0 []float64, p *mpcc.Params, mode SlackInit, lam0, mu0 float64) []float64 {
	l := s.layout
	wpd := make([]float64, l.Dim())
	parts := l.Split(wpd)
	copy(parts.W, w0)
	for i := range parts.LamH {
		parts.LamH[i] = lam0
	}
	for i := 0; i < l.NComp; i++ {
		parts.LamComp[i] = lam0
		parts.MuG1[i] = mu0
		parts.MuG2[i] = mu0
		parts.MuS[i] = mu0
	}
	if mode == SlackRelation {
		copy(parts.Slack, s.Slack0(w0, p))
	}
	return wpd
}

// CompResidual evaluates the exact complementarity residual on the primal part of w_pd.
func (s *System) CompResidual(wpd []float64, p *mpcc.Params) float64 {
	return s.prob.CompResidualAt(wpd[:s.layout.NW], p)
}

// Primal returns a copy of the original primal block of w_pd.
func (s *System) Primal(wpd []float64) []float64 {
	return mpcc.Vector(wpd[:s.layout.NW]).Clone()
}
