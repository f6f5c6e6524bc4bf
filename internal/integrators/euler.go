package integrators

type Euler struct {
	dx []float64
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f Field, x []float64, dt float64) []float64 {
	if len(e.dx) != len(x) {
		e.dx = make([]float64, len(x))
	}
	f(x, e.dx)
	result := make([]float64, len(x))
	for i := range x {
		result[i] = x[i] + dt*e.dx[i]
	}
	return result
}
