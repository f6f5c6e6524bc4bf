// Package metrics accumulates trajectory diagnostics while a run progresses.
// Every metric is a sim.Observer and sees the finite elements of each step.
package metrics

import "github.com/san-kum/fesdsim/internal/sim"

type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
