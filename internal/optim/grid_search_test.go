package optim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/experiment"
)

func build(params map[string]float64) (*experiment.Experiment, error) {
	cfg := config.DefaultConfig()
	cfg.Model = "decay"
	cfg.Steps = 1
	cfg.Horizon = 0.1
	for name, v := range params {
		if err := experiment.SetParam(cfg, name, v); err != nil {
			return nil, err
		}
	}
	return experiment.New(cfg), nil
}

func TestNewGridSearchValidation(t *testing.T) {
	_, err := NewGridSearch([]string{"sigma_0"}, nil, 1)
	assert.Error(t, err, "length mismatch")

	_, err = NewGridSearch([]string{"sigma_0"}, [][]float64{{}}, 1)
	assert.Error(t, err, "empty range")
}

func TestGridEnumeration(t *testing.T) {
	g, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2, 3}, {10, 20}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, g.Size())

	var points []map[string]float64
	g.searchRecursive(0, map[string]float64{}, &points)
	require.Len(t, points, 6)
	assert.Equal(t, map[string]float64{"a": 1, "b": 10}, points[0])
	assert.Equal(t, map[string]float64{"a": 1, "b": 20}, points[1])
	assert.Equal(t, map[string]float64{"a": 3, "b": 20}, points[5])
}

func TestSearchSkipsInvalidPoints(t *testing.T) {
	// a slope of 1 is rejected by validation
	g, err := NewGridSearch([]string{"update_slope"}, [][]float64{{1, 0.1, 0.5}}, 2)
	require.NoError(t, err)

	best, trials, err := g.Search(context.Background(), build, experiment.MetricFailed)
	require.NoError(t, err)
	require.Len(t, trials, 3)

	assert.Error(t, trials[0].Err)
	assert.True(t, math.IsInf(trials[0].Value, 1))
	// both valid points tie at zero failures, the earlier one wins
	assert.Equal(t, 0.1, best.Params["update_slope"])
	assert.Zero(t, best.Value)
	assert.Len(t, Ranked(trials), 2)
}

func TestSearchUnknownMetric(t *testing.T) {
	g, err := NewGridSearch([]string{"sigma_0"}, [][]float64{{1}}, 1)
	require.NoError(t, err)
	_, _, err = g.Search(context.Background(), build, "bogus")
	assert.ErrorContains(t, err, "unknown metric")
}

func TestSearchAllFail(t *testing.T) {
	g, err := NewGridSearch([]string{"bogus"}, [][]float64{{1, 2}}, 1)
	require.NoError(t, err)
	_, _, err = g.Search(context.Background(), build, experiment.MetricNLPIter)
	assert.ErrorContains(t, err, "no grid point succeeded")
}
