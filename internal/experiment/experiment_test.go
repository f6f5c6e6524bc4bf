package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/mpcc"
	"github.com/san-kum/fesdsim/internal/sim"
)

func decayConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model = "decay"
	cfg.Steps = 2
	cfg.Horizon = 0.2
	return cfg
}

func TestRunDecay(t *testing.T) {
	exp := New(decayConfig())
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	res := out.Results
	if len(res.XSim) != 5 {
		t.Fatalf("expected x0 plus four element states, got %d", len(res.XSim))
	}
	want := math.Pow(1.05, -4)
	if got := res.XSim[4][0]; math.Abs(got-want) > 1e-5 {
		t.Errorf("final state %v, want %v", got, want)
	}
	if out.Metrics[MetricFailed] != 0 {
		t.Errorf("expected no failed steps, got %v", out.Metrics[MetricFailed])
	}
	if out.Metrics[MetricNLPIter] <= 0 {
		t.Errorf("expected Newton iterations, got %v", out.Metrics[MetricNLPIter])
	}
	if out.Metrics[MetricCompRes] > exp.Config().Solver.Homotopy.CompTol {
		t.Errorf("final comp residual %v above tolerance", out.Metrics[MetricCompRes])
	}
}

func TestRunWithoutSetup(t *testing.T) {
	if _, err := New(decayConfig()).Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
	if _, err := New(decayConfig()).Job("x"); err == nil {
		t.Error("expected error before setup")
	}
}

func TestSetupErrors(t *testing.T) {
	cfg := decayConfig()
	cfg.Model = "nope"
	if err := New(cfg).Setup(); err == nil {
		t.Error("expected unknown model error")
	}

	cfg = decayConfig()
	cfg.X0 = []float64{1, 2}
	var de *mpcc.DimensionError
	if err := New(cfg).Setup(); !errors.As(err, &de) {
		t.Errorf("expected dimension error, got %v", err)
	}

	cfg = decayConfig()
	cfg.Steps = 0
	if err := New(cfg).Setup(); !errors.Is(err, mpcc.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}

	cfg = decayConfig()
	cfg.PValues = [][]float64{{1}}
	if err := New(cfg).Setup(); !errors.Is(err, mpcc.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}

func TestJobRunsInEnsemble(t *testing.T) {
	exp := New(decayConfig())
	if err := exp.Setup(); err != nil {
		t.Fatal(err)
	}
	job, err := exp.Job("decay")
	if err != nil {
		t.Fatal(err)
	}

	out := sim.RunEnsemble(context.Background(), []sim.Job{job}, 1)
	if out[0].Err != nil {
		t.Fatal(out[0].Err)
	}
	if len(out[0].Results.Statuses) != 2 {
		t.Errorf("expected two steps, got %d", len(out[0].Results.Statuses))
	}
}

func TestMetadata(t *testing.T) {
	meta := New(decayConfig()).Metadata()
	if meta.Model != "decay" || meta.Steps != 2 || meta.UpdateRule != "linear" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestSetParam(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, name := range ParamNames() {
		if err := SetParam(cfg, name, 3); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if cfg.Solver.Homotopy.Sigma0 != 3 || cfg.Solver.NFiniteElements != 3 || cfg.Solver.Homotopy.Newton.Regularization != 3 {
		t.Errorf("settings not written: %+v", cfg.Solver)
	}
	if err := SetParam(cfg, "bogus", 1); err == nil {
		t.Error("expected unknown parameter error")
	}
}

func TestDefaultMetricsOnRelay(t *testing.T) {
	cfg := config.GetPreset("relay", "sliding")
	cfg.Steps = 6
	cfg.Horizon = 0.6
	cfg.X0 = []float64{0.33}
	exp := New(cfg)
	if err := exp.Setup(); err != nil {
		t.Fatal(err)
	}
	for _, m := range DefaultMetrics(cfg.Model) {
		if err := exp.AddMetric(m); err != nil {
			t.Fatal(err)
		}
	}

	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Metrics["stability"] != 1 {
		t.Errorf("expected bounded trajectory, got %v", out.Metrics["stability"])
	}
	// x0 = 0.33 reaches the surface inside the fourth step and slides after
	if out.Metrics["sliding_fraction"] <= 0 {
		t.Errorf("expected sliding elements, got %v", out.Metrics["sliding_fraction"])
	}
	if _, ok := out.Metrics["switches"]; !ok {
		t.Error("switches metric missing")
	}
}

func TestDefaultMetricsPendulum(t *testing.T) {
	names := map[string]bool{}
	for _, m := range DefaultMetrics("pendulum") {
		names[m.Name()] = true
	}
	if !names["energy_change"] || len(names) != 4 {
		t.Errorf("unexpected pendulum metrics %v", names)
	}
	if err := New(decayConfig()).AddMetric(DefaultMetrics("decay")[0]); err == nil {
		t.Error("expected error before setup")
	}
}
