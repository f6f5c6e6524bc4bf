package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/fesdsim/internal/fesd"
)

func TestSwitches(t *testing.T) {
	m := NewSwitches()
	m.OnStep(0, 0.1, &fesd.Result{ThetaList: [][]float64{{1, 0}, {0.9, 0.1}}})
	m.OnStep(1, 0.2, &fesd.Result{ThetaList: [][]float64{{0, 1}, {0.2, 0.8}}})
	m.OnStep(2, 0.3, &fesd.Result{ThetaList: [][]float64{{1, 0}}})

	if m.Value() != 2 {
		t.Errorf("expected 2 switches, got %v", m.Value())
	}

	m.Reset()
	m.OnStep(0, 0, &fesd.Result{ThetaList: [][]float64{{0, 1}}})
	if m.Value() != 0 {
		t.Errorf("expected no switch after reset, got %v", m.Value())
	}
}

func TestSliding(t *testing.T) {
	m := NewSliding(1e-3)
	if m.Value() != 0 {
		t.Error("expected zero before any sample")
	}
	m.OnStep(0, 0.1, &fesd.Result{ThetaList: [][]float64{{1, 0}, {0.5, 0.5}, {0.9999, 1e-4}, {0.3, 0.7}}})
	if math.Abs(m.Value()-0.5) > 1e-15 {
		t.Errorf("expected half of the elements sliding, got %v", m.Value())
	}
}

func pendulumEnergy(x []float64) float64 {
	return 0.5*x[1]*x[1] + 9.81*(1-math.Cos(x[0]))
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift("energy_drift", pendulumEnergy)
	m.Start([]float64{math.Pi / 4, 0})
	e0 := pendulumEnergy([]float64{math.Pi / 4, 0})

	m.OnStep(0, 0.1, &fesd.Result{XList: [][]float64{{math.Pi / 4, 0}, {0, 1}}})
	want := math.Abs(0.5-e0) / e0
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("drift = %v, want %v", m.Value(), want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
	// without Start the first element is the reference
	m.OnStep(0, 0.1, &fesd.Result{XList: [][]float64{{0, 2}, {0, 2}}})
	if m.Value() != 0 {
		t.Errorf("expected no drift, got %v", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	if m.Value() != 1 {
		t.Error("expected 1 before any sample")
	}
	m.OnStep(0, 0.1, &fesd.Result{XList: [][]float64{{1, 2}, {11, 0}, {math.NaN(), 0}, {0, -10}}})
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", m.Value())
	}
}
