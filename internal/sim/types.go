package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/fesdsim/internal/fesd"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Solver integrates one interval per Solve call starting from the state set
// under "x".
type Solver interface {
	IsSimulation() bool
	StateDim() int
	GlobalParamDim() int
	Set(field string, value []float64) error
	Solve() (*fesd.Result, error)
}

// Observer is notified after every completed step.
type Observer interface {
	OnStep(step int, t float64, res *fesd.Result)
}

type ObserverFunc func(step int, t float64, res *fesd.Result)

func (f ObserverFunc) OnStep(step int, t float64, res *fesd.Result) { f(step, t, res) }

// StepError wraps a numerical failure with the step it occurred in.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
