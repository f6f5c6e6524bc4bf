package integrators

import (
	"math"
	"testing"
)

func energy(x []float64) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	x := []float64{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(rotation, x, dt)
	}

	drift := math.Abs(energy(x)-0.5) / 0.5
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45LargeStepSubdivides(t *testing.T) {
	integrator := NewRK45()
	x := integrator.Step(rotation, []float64{1.0, 0.0}, 2.0)

	if math.Abs(x[0]-math.Cos(2)) > 1e-6 || math.Abs(x[1]+math.Sin(2)) > 1e-6 {
		t.Errorf("unexpected state %v", x)
	}
}

func TestRK45AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	x, ratio, newDt := integrator.StepAdaptive(rotation, []float64{1.0, 0.0}, 0.1, 1e-8)

	if math.IsNaN(x[0]) || math.IsNaN(x[1]) {
		t.Error("StepAdaptive produced invalid state")
	}
	if ratio < 0 {
		t.Errorf("negative error ratio %v", ratio)
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}
