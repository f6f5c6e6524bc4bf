package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/fesd"
)

// Oscillator switches between two linear spirals across a circle: outside
// the circle x' = A1 x, inside x' = A2 x, so trajectories slide along it.
type Oscillator struct {
	Omega  float64
	Radius float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{Omega: 2 * math.Pi, Radius: 1}
}

func (o *Oscillator) matrices() (a1, a2 *mat.Dense) {
	w := o.Omega
	a1 = mat.NewDense(2, 2, []float64{1, w, -w, 1})
	a2 = mat.NewDense(2, 2, []float64{1, -w, w, 1})
	return a1, a2
}

func linear(a *mat.Dense) (fesd.Field, fesd.FieldJac) {
	f := func(x, pg, dx []float64) {
		dx[0] = a.At(0, 0)*x[0] + a.At(0, 1)*x[1]
		dx[1] = a.At(1, 0)*x[0] + a.At(1, 1)*x[1]
	}
	jac := func(x, pg []float64, j *mat.Dense) { j.Copy(a) }
	return f, jac
}

// Level returns |x|² - R², positive outside the circle.
func (o *Oscillator) Level(x []float64) float64 {
	return x[0]*x[0] + x[1]*x[1] - o.Radius*o.Radius
}

func (o *Oscillator) Model() *fesd.Model {
	a1, a2 := o.matrices()
	f1, j1 := linear(a1)
	f2, j2 := linear(a2)
	return &fesd.Model{
		Name: "oscillator",
		NX:   2,
		X0:   []float64{math.Exp(-1), 0},
		F:    []fesd.Field{f1, f2},
		FJac: []fesd.FieldJac{j1, j2},
		G: func(x, pg, g []float64) {
			c := o.Level(x)
			g[0] = -c
			g[1] = c
		},
		GJac: func(x, pg []float64, j *mat.Dense) {
			j.Set(0, 0, -2*x[0])
			j.Set(0, 1, -2*x[1])
			j.Set(1, 0, 2*x[0])
			j.Set(1, 1, 2*x[1])
		},
	}
}
