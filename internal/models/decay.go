package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/fesd"
)

// Decay is dx/dt = -rate·x with a single mode. Its discretization is plain
// implicit Euler, which makes it a reference for the solver chain.
type Decay struct {
	Rate float64
}

func NewDecay() *Decay {
	return &Decay{Rate: 1}
}

func (d *Decay) Model() *fesd.Model {
	return &fesd.Model{
		Name: "decay",
		NX:   1,
		X0:   []float64{1},
		F:    []fesd.Field{func(x, pg, dx []float64) { dx[0] = -d.Rate * x[0] }},
		FJac: []fesd.FieldJac{func(x, pg []float64, j *mat.Dense) { j.Set(0, 0, -d.Rate) }},
		G:    func(x, pg, g []float64) { g[0] = 0 },
		GJac: func(x, pg []float64, j *mat.Dense) { j.Zero() },
	}
}
