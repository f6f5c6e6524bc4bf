// Package homotopy drives the smoothed KKT system through a decreasing
// sequence of relaxation levels until the complementarity residual of the
// primal iterate falls below tolerance.
package homotopy

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/fesdsim/internal/kkt"
	"github.com/san-kum/fesdsim/internal/mpcc"
	"github.com/san-kum/fesdsim/internal/newton"
)

// Oracle is the primal-dual system the driver solves.
type Oracle interface {
	newton.Oracle
	InitialIterate(w0 []float64, p *mpcc.Params, mode kkt.SlackInit, lam0, mu0 float64) []float64
	CompResidual(wpd []float64, p *mpcc.Params) float64
}

// Status records why the homotopy loop stopped.
type Status int

const (
	Converged Status = iota
	SigmaFloor
	MaxIterations
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case SigmaFloor:
		return "sigma_floor"
	case MaxIterations:
		return "max_iterations"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Result struct {
	W      []float64
	Sigma  float64
	Status Status
	Log    *Log
}

func (r *Result) Converged() bool { return r.Status == Converged }

// Driver runs the homotopy on one primal-dual system. Lambda00, when set,
// derives the lambda00 parameter from x0 and the global parameters once per
// solve.
type Driver struct {
	oracle   Oracle
	stepper  *newton.Stepper
	cfg      Config
	Lambda00 func(x0, global []float64) []float64
}

func NewDriver(oracle Oracle, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		oracle:  oracle,
		stepper: newton.New(oracle, cfg.Newton),
		cfg:     cfg,
	}, nil
}

func (d *Driver) Config() Config { return d.cfg }

// Solve starts from the primal guess w0 and the parameters p (sigma and tau
// are overwritten per level). The returned result is non-nil even on error
// and carries the levels completed so far.
func (d *Driver) Solve(w0 []float64, p mpcc.Params) (*Result, error) {
	cfg := d.cfg
	if !mpcc.Vector(w0).IsValid() {
		return &Result{Sigma: cfg.Sigma0, Status: MaxIterations, Log: &Log{}}, &mpcc.ConfigurationError{
			Message: "initial guess contains non-finite entries",
			Wrapped: mpcc.ErrInvalidConfig,
		}
	}
	p = p.Clone()
	if d.Lambda00 != nil {
		p.Lambda00 = d.Lambda00(p.X0, p.Global)
	}

	sigma := cfg.Sigma0
	p.Sigma, p.Tau = sigma, sigma
	w := d.oracle.InitialIterate(w0, &p, cfg.SlackInit, cfg.LamInit, cfg.MuInit)

	log := &Log{Initial: mpcc.Vector(w).Clone()}
	res := &Result{W: w, Sigma: sigma, Status: MaxIterations, Log: log}

	for level := 0; level < cfg.MaxIter; level++ {
		p.Sigma, p.Tau = sigma, sigma
		res.Sigma = sigma

		start := time.Now()
		stats, err := d.stepper.Solve(w, &p)
		elapsed := time.Since(start)
		if err != nil {
			var se *mpcc.SingularError
			if errors.As(err, &se) {
				se.Level = level
			}
			return res, err
		}

		compRes := d.oracle.CompResidual(w, &p)
		log.Append(Level{
			Sigma:   sigma,
			CPUTime: elapsed,
			NLPIter: stats.Iterations,
			CompRes: compRes,
			W:       mpcc.Vector(w).Clone(),
		})

		logrus.WithFields(logrus.Fields{
			"level":    level,
			"sigma":    fmt.Sprintf("%.2e", sigma),
			"nlp_iter": stats.Iterations,
			"comp_res": fmt.Sprintf("%.2e", compRes),
			"cpu":      elapsed,
		}).Debug("homotopy level")

		if compRes < cfg.CompTol {
			res.Status = Converged
			break
		}
		if sigma <= cfg.SigmaN {
			res.Status = SigmaFloor
			break
		}
		sigma = cfg.Rule.Update(sigma, cfg)
	}

	if res.Status != Converged {
		logrus.WithFields(logrus.Fields{
			"status":   res.Status,
			"levels":   log.Levels(),
			"comp_res": log.CompRes[len(log.CompRes)-1],
		}).Warn("homotopy did not reach comp_tol")
	}
	return res, nil
}
