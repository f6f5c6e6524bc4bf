package fesd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/integrators"
	"github.com/san-kum/fesdsim/internal/kkt"
	"github.com/san-kum/fesdsim/internal/mpcc"
)

// Result is the outcome of one integration interval.
type Result struct {
	XList      [][]float64
	ThetaList  [][]float64
	LambdaList [][]float64
	TimeSteps  []float64
	WSol       []float64
	WAll       [][]float64
	CPUTime    []float64
	NLPIter    []int
	Status     homotopy.Status
	Log        *homotopy.Log
}

// Solver integrates a model over one interval per Solve call. The state and
// global parameters are updated between calls with Set.
type Solver struct {
	model  *Model
	opts   Options
	layout layout
	prob   *mpcc.Problem
	sys    *kkt.System
	driver *homotopy.Driver
	integ  integrators.Integrator

	x0      []float64
	pGlobal []float64
	prev    []float64
}

func NewSolver(m *Model, opts Options) (*Solver, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	prob := discretize(m, opts)
	sys, err := kkt.Build(prob)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	driver, err := homotopy.NewDriver(sys, opts.Homotopy)
	if err != nil {
		return nil, err
	}
	driver.Lambda00 = m.Lambda00

	s := &Solver{
		model:   m,
		opts:    opts,
		layout:  layout{nx: m.NX, nf: m.NF(), n: opts.NFiniteElements},
		prob:    prob,
		sys:     sys,
		driver:  driver,
		x0:      mpcc.Vector(m.X0).Clone(),
		pGlobal: mpcc.Vector(m.PGlobal).Clone(),
	}
	if opts.Initialization == RK4Smoothed {
		s.integ, _ = integrators.New(opts.SmoothingIntegrator)
	}
	return s, nil
}

func (s *Solver) Model() *Model          { return s.model }
func (s *Solver) Options() Options       { return s.opts }
func (s *Solver) Problem() *mpcc.Problem { return s.prob }
func (s *Solver) IsSimulation() bool     { return s.prob.Kind == mpcc.Simulation }
func (s *Solver) GlobalParamDim() int    { return s.model.NPGlobal }
func (s *Solver) StateDim() int          { return s.model.NX }

// Set updates "x" (the initial state of the next interval) or "p_global".
func (s *Solver) Set(field string, value []float64) error {
	switch field {
	case "x":
		if len(value) != s.model.NX {
			return &mpcc.DimensionError{Field: "x", Want: s.model.NX, Got: len(value)}
		}
		s.x0 = mpcc.Vector(value).Clone()
	case "p_global":
		if len(value) != s.model.NPGlobal {
			return fmt.Errorf("%w: p_global has length %d, want %d", mpcc.ErrShapeMismatch, len(value), s.model.NPGlobal)
		}
		s.pGlobal = mpcc.Vector(value).Clone()
	default:
		return fmt.Errorf("unknown solver field %q", field)
	}
	return nil
}

// Solve runs the homotopy for the current state. Non-convergence is reported
// through Result.Status; only numerical failures are errors.
func (s *Solver) Solve() (*Result, error) {
	w0 := s.initialGuess()
	p := mpcc.Params{X0: s.x0, Global: s.pGlobal}

	res, err := s.driver.Solve(w0, p)
	if err != nil {
		return nil, fmt.Errorf("solving %s: %w", s.model.Name, err)
	}

	primal := s.sys.Primal(res.W)
	s.prev = primal

	h := s.opts.TerminalTime / float64(s.layout.n)
	out := &Result{
		WSol:    res.W,
		WAll:    res.Log.WAll(),
		CPUTime: res.Log.CPUSeconds(s.opts.Homotopy.MaxIter),
		NLPIter: res.Log.NLPIter,
		Status:  res.Status,
		Log:     res.Log,
	}
	for k := 0; k < s.layout.n; k++ {
		out.XList = append(out.XList, mpcc.Vector(s.layout.xOf(primal, k)).Clone())
		out.ThetaList = append(out.ThetaList, mpcc.Vector(s.layout.thetaOf(primal, k)).Clone())
		out.LambdaList = append(out.LambdaList, mpcc.Vector(s.layout.lambdaOf(primal, k)).Clone())
		out.TimeSteps = append(out.TimeSteps, h)
	}

	logrus.WithFields(logrus.Fields{
		"model":    s.model.Name,
		"status":   res.Status,
		"levels":   res.Log.Levels(),
		"nlp_iter": res.Log.TotalIter(),
	}).Debug("interval solved")

	return out, nil
}

func (s *Solver) initialGuess() []float64 {
	l := s.layout
	w := make([]float64, l.nw())

	switch {
	case s.opts.Initialization == WarmStart && s.prev != nil:
		copy(w, s.prev)
		for k := 0; k < l.n; k++ {
			copy(l.xOf(w, k), s.x0)
		}
		return w

	case s.opts.Initialization == RK4Smoothed:
		h := s.opts.TerminalTime / float64(l.n)
		kappa := s.opts.SmoothingKappa
		field := func(x, dx []float64) { s.model.Smoothed(x, s.pGlobal, kappa, dx) }
		x := s.x0
		for k := 0; k < l.n; k++ {
			x = s.integ.Step(field, x, h)
			copy(l.xOf(w, k), x)
			copy(l.thetaOf(w, k), Softmin(s.model.Indicators(x, s.pGlobal), kappa))
		}
		return w
	}

	for k := 0; k < l.n; k++ {
		copy(l.xOf(w, k), s.x0)
		theta := l.thetaOf(w, k)
		for i := range theta {
			theta[i] = 1 / float64(l.nf)
		}
	}
	return w
}
