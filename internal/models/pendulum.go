package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/fesd"
)

// Pendulum is a damped pendulum with Coulomb friction at the pivot. The
// friction torque flips sign with the angular velocity, which gives two modes
// separated by omega = 0.
type Pendulum struct {
	Mass     float64
	Length   float64
	Damping  float64
	Gravity  float64
	Friction float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:     1.0,
		Length:   1.0,
		Damping:  0.1,
		Gravity:  9.81,
		Friction: 0.5,
	}
}

func (p *Pendulum) accel(theta, omega, sign float64) float64 {
	inertia := p.Mass * p.Length * p.Length
	return (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) - sign*p.Friction) / inertia
}

func (p *Pendulum) mode(sign float64) (fesd.Field, fesd.FieldJac) {
	inertia := p.Mass * p.Length * p.Length
	f := func(x, pg, dx []float64) {
		dx[0] = x[1]
		dx[1] = p.accel(x[0], x[1], sign)
	}
	jac := func(x, pg []float64, j *mat.Dense) {
		j.Set(0, 0, 0)
		j.Set(0, 1, 1)
		j.Set(1, 0, -p.Gravity*math.Cos(x[0])/p.Length)
		j.Set(1, 1, -p.Damping/inertia)
	}
	return f, jac
}

func (p *Pendulum) Model() *fesd.Model {
	fwd, fwdJac := p.mode(1)
	bwd, bwdJac := p.mode(-1)
	return &fesd.Model{
		Name: "pendulum",
		NX:   2,
		X0:   []float64{0.5, 0},
		F:    []fesd.Field{fwd, bwd},
		FJac: []fesd.FieldJac{fwdJac, bwdJac},
		G: func(x, pg, g []float64) {
			g[0] = -x[1]
			g[1] = x[1]
		},
		GJac: func(x, pg []float64, j *mat.Dense) {
			j.Set(0, 0, 0)
			j.Set(0, 1, -1)
			j.Set(1, 0, 0)
			j.Set(1, 1, 1)
		},
	}
}

func (p *Pendulum) Energy(x []float64) float64 {
	kinetic := 0.5 * p.Mass * p.Length * p.Length * x[1] * x[1]
	potential := p.Mass * p.Gravity * p.Length * (1 - math.Cos(x[0]))
	return kinetic + potential
}
