package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/fesd"
)

// Relay is dx/dt = -gain·sign(x) + p with the offset p as a global
// parameter. For |p| < gain the state slides on x = 0.
type Relay struct {
	Gain   float64
	Offset float64
}

func NewRelay() *Relay {
	return &Relay{Gain: 1}
}

func (r *Relay) Model() *fesd.Model {
	constant := func(sign float64) fesd.Field {
		return func(x, pg, dx []float64) { dx[0] = -sign*r.Gain + pg[0] }
	}
	zero := func(x, pg []float64, j *mat.Dense) { j.Zero() }
	return &fesd.Model{
		Name: "relay",
		NX:   1,
		X0:   []float64{0.35},
		F:    []fesd.Field{constant(1), constant(-1)},
		FJac: []fesd.FieldJac{zero, zero},
		G: func(x, pg, g []float64) {
			g[0] = -x[0]
			g[1] = x[0]
		},
		GJac: func(x, pg []float64, j *mat.Dense) {
			j.Set(0, 0, -1)
			j.Set(1, 0, 1)
		},
		NPGlobal: 1,
		PGlobal:  []float64{r.Offset},
	}
}
