package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/metrics"
	"github.com/san-kum/fesdsim/internal/models"
	"github.com/san-kum/fesdsim/internal/sim"
	"github.com/san-kum/fesdsim/internal/storage"
)

// Experiment binds one configuration to a model, a solver and a looper.
type Experiment struct {
	cfg    *config.Config
	model  *fesd.Model
	solver *fesd.Solver
	looper *sim.Looper
	extra  []metrics.Metric
}

type Result struct {
	Results *sim.Results
	Metrics map[string]float64
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup validates the configuration and builds the solver and looper.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	m, err := models.Get(e.cfg.Model)
	if err != nil {
		return err
	}
	if err := e.cfg.Apply(m); err != nil {
		return err
	}
	solver, err := fesd.NewSolver(m, e.cfg.SolverOptions())
	if err != nil {
		return err
	}
	looper, err := sim.NewLooper(solver, m.X0, e.cfg.Steps, e.cfg.PValues)
	if err != nil {
		return err
	}

	e.model, e.solver, e.looper = m, solver, looper
	return nil
}

// AddMetric attaches a trajectory metric to the looper. Its value is
// reported under its name in Result.Metrics.
func (e *Experiment) AddMetric(m metrics.Metric) error {
	if e.looper == nil {
		return fmt.Errorf("experiment not setup")
	}
	if s, ok := m.(interface{ Start(x0 []float64) }); ok {
		s.Start(e.model.X0)
	}
	e.looper.AddObserver(m)
	e.extra = append(e.extra, m)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.looper == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	err := e.looper.Run(ctx)
	res := e.looper.Results()
	out := &Result{Results: res, Metrics: Metrics(res)}
	for _, m := range e.extra {
		out.Metrics[m.Name()] = m.Value()
	}
	return out, err
}

// Job returns the experiment as an ensemble job. The experiment must be set
// up and must not be run directly afterwards.
func (e *Experiment) Job(name string) (sim.Job, error) {
	if e.solver == nil {
		return sim.Job{}, fmt.Errorf("experiment not setup")
	}
	return sim.Job{
		Name:    name,
		Solver:  e.solver,
		X0:      e.model.X0,
		NSim:    e.cfg.Steps,
		PValues: e.cfg.PValues,
	}, nil
}

// GetLooper returns the underlying looper for adding observers
func (e *Experiment) GetLooper() *sim.Looper {
	return e.looper
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Model() *fesd.Model     { return e.model }

// Metadata describes the run for the store. Totals are filled in on save.
func (e *Experiment) Metadata() storage.RunMetadata {
	opts := e.cfg.Solver
	return storage.RunMetadata{
		Model:          e.cfg.Model,
		Steps:          e.cfg.Steps,
		Horizon:        e.cfg.Horizon,
		FiniteElements: opts.NFiniteElements,
		UpdateRule:     opts.Homotopy.Rule.String(),
		CompTol:        opts.Homotopy.CompTol,
		Initialization: opts.Initialization.String(),
		CrossComp:      opts.CrossComplementarity,
	}
}

// Metrics summarizes a run: total Newton iterations, failed steps, solver CPU
// seconds and the largest final complementarity residual over all steps.
func Metrics(res *sim.Results) map[string]float64 {
	m := map[string]float64{
		MetricNLPIter: 0,
		MetricFailed:  float64(res.Failed),
		MetricCPU:     0,
		MetricCompRes: 0,
	}
	for _, n := range res.NLPIter {
		m[MetricNLPIter] += float64(n)
	}
	for _, row := range res.CPUNLP {
		for _, v := range row {
			m[MetricCPU] += v
		}
	}
	for _, log := range res.Logs {
		if log == nil || log.Levels() == 0 {
			continue
		}
		m[MetricCompRes] = math.Max(m[MetricCompRes], log.CompRes[log.Levels()-1])
	}
	return m
}
