package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fesdsim/internal/fesd"
)

const scenarioYAML = `
name: decay-study
description: element count comparison
runs:
  - name: coarse
    model: decay
    config:
      steps: 2
      horizon: 0.2
  - name: fine
    model: decay
    config:
      steps: 2
      horizon: 0.2
      solver:
        n_finite_elements: 4
  - name: broken
    model: relay
    preset: nope
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "decay-study", sc.Name)
	assert.Len(t, sc.Runs, 3)

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.Error(t, err, "scenario without runs")

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildOverlaysConfig(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	cfg, err := sc.Runs[1].Build()
	require.NoError(t, err)
	assert.Equal(t, "decay", cfg.Model)
	assert.Equal(t, 2, cfg.Steps)
	assert.Equal(t, 4, cfg.Solver.NFiniteElements)

	// untouched fields keep their defaults
	assert.Equal(t, fesd.AllXCurrent, cfg.Solver.Initialization)
	assert.Equal(t, 1e-6, cfg.Solver.Homotopy.CompTol)

	_, err = sc.Runs[2].Build()
	assert.ErrorContains(t, err, "unknown preset")

	preset := ScenarioRun{Model: "relay", Preset: "drift"}
	cfg, err = preset.Build()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, cfg.PGlobal)
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	out := RunScenario(context.Background(), sc, 2)
	require.Len(t, out, 3)
	for _, o := range out[:2] {
		require.NoError(t, o.Err, o.Name)
	}
	assert.Error(t, out[2].Err)
	assert.Nil(t, out[2].Experiment, "broken run must fail before running")

	coarse := out[0].Results.XSim[len(out[0].Results.XSim)-1][0]
	fine := out[1].Results.XSim[len(out[1].Results.XSim)-1][0]
	exact := math.Exp(-0.2)
	assert.Less(t, math.Abs(fine-exact), math.Abs(coarse-exact), "finer elements should be closer to exp(-0.2)")
	assert.Zero(t, out[0].Metrics["failed_steps"])
}
