// Package newton implements the globalized Newton method used on the smoothed
// KKT system at a fixed relaxation level.
package newton

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/mpcc"
)

// Oracle evaluates the square KKT residual and its Jacobian.
type Oracle interface {
	Dim() int
	NComp() int
	Residual(w []float64, p *mpcc.Params, dst []float64)
	ResidualJacobian(w []float64, p *mpcc.Params, r []float64, jac *mat.Dense)
}

// Settings bound the inner iteration and shape the line search.
type Settings struct {
	MaxIter           int     `yaml:"max_iter"`
	Regularization    float64 `yaml:"regularization"`
	LineSearchRho     float64 `yaml:"line_search_rho"`
	LineSearchGamma   float64 `yaml:"line_search_gamma"`
	LineSearchMaxIter int     `yaml:"line_search_max_iter"`
}

// DefaultSettings returns 12 iterations, regularization 1e-6 and an Armijo
// search with rho 0.8, gamma 0.2 and 7 tries.
func DefaultSettings() Settings {
	return Settings{
		MaxIter:           12,
		Regularization:    1e-6,
		LineSearchRho:     0.8,
		LineSearchGamma:   0.2,
		LineSearchMaxIter: 7,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.MaxIter <= 0:
		return &mpcc.ConfigurationError{Message: fmt.Sprintf("newton max_iter must be positive, got %d", s.MaxIter), Wrapped: mpcc.ErrInvalidConfig}
	case s.Regularization < 0:
		return &mpcc.ConfigurationError{Message: "newton regularization must be non-negative", Wrapped: mpcc.ErrInvalidConfig}
	case s.LineSearchRho <= 0 || s.LineSearchRho >= 1:
		return &mpcc.ConfigurationError{Message: fmt.Sprintf("line search rho must be in (0,1), got %g", s.LineSearchRho), Wrapped: mpcc.ErrInvalidConfig}
	case s.LineSearchGamma <= 0 || s.LineSearchGamma >= 1:
		return &mpcc.ConfigurationError{Message: fmt.Sprintf("line search gamma must be in (0,1), got %g", s.LineSearchGamma), Wrapped: mpcc.ErrInvalidConfig}
	case s.LineSearchMaxIter <= 0:
		return &mpcc.ConfigurationError{Message: "line search max_iter must be positive", Wrapped: mpcc.ErrInvalidConfig}
	}
	return nil
}

// StepInfo describes one Newton iteration.
type StepInfo struct {
	Alpha     float64
	StepNorm  float64
	ResNorm   float64
	Cond      float64
	Converged bool
}

// Stats summarizes an inner solve at one relaxation level.
type Stats struct {
	Iterations int
	StepNorm   float64
	ResNorm    float64
	Converged  bool
}

// Stepper owns the scratch buffers of the Newton iteration. It is not safe
// for concurrent use.
type Stepper struct {
	oracle   Oracle
	settings Settings

	r         []float64
	rc        []float64
	candidate []float64
	jac       *mat.Dense
}

// New allocates a stepper sized to the oracle's dimension.
func New(oracle Oracle, settings Settings) *Stepper {
	n := oracle.Dim()
	return &Stepper{
		oracle:    oracle,
		settings:  settings,
		r:         make([]float64, n),
		rc:        make([]float64, n),
		candidate: make([]float64, n),
		jac:       mat.NewDense(n, n, nil),
	}
}

func (st *Stepper) Settings() Settings { return st.settings }

// condition returns the LU estimate of the condition number. An exactly zero
// matrix reports +Inf rather than NaN.
func condition(lu *mat.LU) float64 {
	c := lu.Cond()
	if math.IsNaN(c) {
		return math.Inf(1)
	}
	return c
}

// regularize adds a multiple of the identity to the trailing 3·n_comp block,
// the rows of the smoothed complementarities against the mu columns.
func (st *Stepper) regularize() {
	n := st.oracle.Dim()
	for i := n - 3*st.oracle.NComp(); i < n; i++ {
		st.jac.Set(i, i, st.jac.At(i, i)+st.settings.Regularization)
	}
}

// Step performs one regularized Newton step with backtracking on w in place.
// When the inner stopping test already holds at w, nothing is changed and
// Converged is set.
func (st *Stepper) Step(w []float64, p *mpcc.Params) (StepInfo, error) {
	var info StepInfo
	n := st.oracle.Dim()

	st.oracle.ResidualJacobian(w, p, st.r, st.jac)
	st.regularize()

	var lu mat.LU
	lu.Factorize(st.jac)

	rhs := make([]float64, n)
	floats.ScaleTo(rhs, -1, st.r)
	step := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(step, false, mat.NewVecDense(n, rhs)); err != nil {
		return info, &mpcc.SingularError{
			Cond:  condition(&lu),
			Sigma: p.Sigma,
			Cause: err,
		}
	}
	dw := step.RawVector().Data

	info.StepNorm = floats.Norm(dw, 2)
	info.ResNorm = mpcc.Vector(st.r).InfNorm()
	info.Cond = condition(&lu)

	if info.StepNorm < p.Sigma || info.ResNorm < p.Sigma/10 {
		info.Converged = true
		return info, nil
	}

	alpha := 1.0
	for k := 0; k < st.settings.LineSearchMaxIter; k++ {
		if k > 0 {
			alpha *= st.settings.LineSearchRho
		}
		floats.AddScaledTo(st.candidate, w, alpha, dw)
		st.oracle.Residual(st.candidate, p, st.rc)
		if mpcc.Vector(st.rc).InfNorm() < (1-st.settings.LineSearchGamma*alpha)*info.ResNorm {
			break
		}
	}
	info.Alpha = alpha

	// an exhausted line search keeps the smallest tried step
	copy(w, st.candidate)
	return info, nil
}

// Solve iterates Step until the inner stopping test holds or MaxIter steps
// have been taken. Iterations counts the steps actually applied.
func (st *Stepper) Solve(w []float64, p *mpcc.Params) (Stats, error) {
	var stats Stats
	for it := 0; it < st.settings.MaxIter; it++ {
		info, err := st.Step(w, p)
		if err != nil {
			var se *mpcc.SingularError
			if errors.As(err, &se) {
				se.Iter = it
			}
			return stats, err
		}
		stats.StepNorm = info.StepNorm
		stats.ResNorm = info.ResNorm

		if info.Converged {
			stats.Converged = true
			return stats, nil
		}
		stats.Iterations++

		logrus.WithFields(logrus.Fields{
			"alpha":     fmt.Sprintf("%.3f", info.Alpha),
			"step_norm": fmt.Sprintf("%.2e", info.StepNorm),
			"kkt_res":   fmt.Sprintf("%.2e", info.ResNorm),
			"cond":      fmt.Sprintf("%.2e", info.Cond),
		}).Debug("newton step")
	}
	return stats, nil
}
