package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/mpcc"
)

// Results is the concatenated trajectory of a simulation run.
type Results struct {
	XSim      []State
	TimeSteps []float64
	TGrid     []float64
	CPUNLP    [][]float64
	ThetaSim  [][]float64
	LambdaSim [][]float64
	WSim      [][]float64
	WAll      [][][]float64
	Statuses  []homotopy.Status
	NLPIter   []int
	Logs      []*homotopy.Log
	Failed    int
}

// Looper calls a solver repeatedly, feeding each step's final state into the
// next. It runs once and is not safe for concurrent use.
type Looper struct {
	solver    Solver
	nsim      int
	pValues   [][]float64
	observers []Observer

	xcurrent State
	res      Results
	ran      bool
}

func NewLooper(solver Solver, x0 []float64, nsim int, pValues [][]float64) (*Looper, error) {
	if !solver.IsSimulation() {
		return nil, &mpcc.ConfigurationError{
			Message: "looper can only be used with pure simulation problems",
			Wrapped: mpcc.ErrNotSimulation,
		}
	}
	if nsim < 0 {
		return nil, &mpcc.ConfigurationError{
			Message: fmt.Sprintf("number of steps must be non-negative, got %d", nsim),
			Wrapped: mpcc.ErrInvalidConfig,
		}
	}
	if len(x0) != solver.StateDim() {
		return nil, fmt.Errorf("%w: x0 has length %d, want %d", mpcc.ErrShapeMismatch, len(x0), solver.StateDim())
	}
	if !State(x0).IsValid() {
		return nil, &mpcc.ConfigurationError{
			Message: "x0 contains non-finite entries",
			Wrapped: mpcc.ErrInvalidConfig,
		}
	}
	if pValues != nil {
		np := solver.GlobalParamDim()
		if len(pValues) != nsim {
			return nil, fmt.Errorf("%w: p_values has %d rows, want (%d, %d)", mpcc.ErrShapeMismatch, len(pValues), nsim, np)
		}
		for i, row := range pValues {
			if len(row) != np {
				return nil, fmt.Errorf("%w: p_values row %d has length %d, want (%d, %d)", mpcc.ErrShapeMismatch, i, len(row), nsim, np)
			}
		}
	}

	x := State(x0).Clone()
	return &Looper{
		solver:   solver,
		nsim:     nsim,
		pValues:  pValues,
		xcurrent: x,
		res: Results{
			XSim:   []State{x.Clone()},
			CPUNLP: make([][]float64, nsim),
		},
	}, nil
}

func (l *Looper) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Run performs the steps in order. Steps that stop without reaching the
// complementarity tolerance are kept and counted in Failed. A numerical
// failure aborts the run; the results gathered so far stay available.
func (l *Looper) Run(ctx context.Context) error {
	if l.ran {
		return errors.New("looper has already run")
	}
	l.ran = true

	t := 0.0
	for i := 0; i < l.nsim; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.solver.Set("x", l.xcurrent); err != nil {
			return &StepError{Step: i, Time: t, Err: err}
		}
		if l.pValues != nil {
			if err := l.solver.Set("p_global", l.pValues[i]); err != nil {
				return &StepError{Step: i, Time: t, Err: err}
			}
		}

		out, err := l.solver.Solve()
		if err != nil {
			return &StepError{Step: i, Time: t, Err: err}
		}
		l.collect(i, out)

		for _, h := range out.TimeSteps {
			t += h
		}
		if out.Status != homotopy.Converged {
			l.res.Failed++
			logrus.WithFields(logrus.Fields{
				"step":   i,
				"t":      fmt.Sprintf("%.4f", t),
				"status": out.Status,
			}).Warn("step did not converge")
		}
		for _, o := range l.observers {
			o.OnStep(i, t, out)
		}
	}
	return nil
}

func (l *Looper) collect(i int, out *fesd.Result) {
	for _, x := range out.XList {
		l.res.XSim = append(l.res.XSim, State(x).Clone())
	}
	if len(out.XList) > 0 {
		l.xcurrent = l.res.XSim[len(l.res.XSim)-1].Clone()
	}
	l.res.CPUNLP[i] = append([]float64(nil), out.CPUTime...)
	l.res.TimeSteps = append(l.res.TimeSteps, out.TimeSteps...)
	l.res.ThetaSim = append(l.res.ThetaSim, out.ThetaList...)
	l.res.LambdaSim = append(l.res.LambdaSim, out.LambdaList...)
	l.res.WSim = append(l.res.WSim, out.WSol)
	l.res.WAll = append(l.res.WAll, out.WAll)
	l.res.Statuses = append(l.res.Statuses, out.Status)
	l.res.Logs = append(l.res.Logs, out.Log)

	iters := 0
	for _, n := range out.NLPIter {
		iters += n
	}
	l.res.NLPIter = append(l.res.NLPIter, iters)
}

// Current returns the state handed to the next step.
func (l *Looper) Current() State { return l.xcurrent.Clone() }

// Results returns the collected trajectory with the time grid 0 followed by
// the prefix sums of the step sizes.
func (l *Looper) Results() *Results {
	res := l.res
	res.TGrid = make([]float64, 1, len(res.TimeSteps)+1)
	t := 0.0
	for _, h := range res.TimeSteps {
		t += h
		res.TGrid = append(res.TGrid, t)
	}

	width := 0
	for _, row := range res.CPUNLP {
		width = max(width, len(row))
	}
	res.CPUNLP = make([][]float64, len(l.res.CPUNLP))
	for i, row := range l.res.CPUNLP {
		res.CPUNLP[i] = make([]float64, width)
		copy(res.CPUNLP[i], row)
	}
	return &res
}
