package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/fesdsim/internal/experiment"
	"github.com/san-kum/fesdsim/internal/sim"
)

// Trial is one evaluated point of the grid. Value is +Inf when the run
// could not be set up or aborted.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64, workers int) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("got %d parameter names for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: workers}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point and returns the trial with the smallest
// metric together with all trials in grid order. Ties keep the earlier point.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (Trial, []Trial, error) {

	var points []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &points)

	trials := make([]Trial, len(points))
	jobs := make([]sim.Job, 0, len(points))
	index := make([]int, 0, len(points))
	for i, params := range points {
		trials[i] = Trial{Params: params, Value: math.Inf(1)}

		exp, err := buildExperiment(params)
		if err == nil {
			err = exp.Setup()
		}
		var job sim.Job
		if err == nil {
			job, err = exp.Job(fmt.Sprint(i))
		}
		if err != nil {
			trials[i].Err = err
			continue
		}
		jobs = append(jobs, job)
		index = append(index, i)
	}

	for j, out := range sim.RunEnsemble(ctx, jobs, g.workers) {
		i := index[j]
		if out.Err != nil {
			trials[i].Err = out.Err
			continue
		}
		val, ok := experiment.Metrics(out.Results)[metricName]
		if !ok {
			return Trial{}, trials, fmt.Errorf("unknown metric: %s", metricName)
		}
		trials[i].Value = val
		logrus.WithFields(logrus.Fields{"params": trials[i].Params, metricName: val}).Debug("grid point")
	}

	best := -1
	for i, tr := range trials {
		if tr.Err == nil && (best < 0 || tr.Value < trials[best].Value) {
			best = i
		}
	}
	if best < 0 {
		errs := make([]error, len(trials))
		for i, tr := range trials {
			errs[i] = tr.Err
		}
		return Trial{}, trials, fmt.Errorf("no grid point succeeded: %w", errors.Join(errs...))
	}
	return trials[best], trials, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(depth+1, newParams, out)
	}
}

// Ranked returns the successful trials sorted by value.
func Ranked(trials []Trial) []Trial {
	out := make([]Trial, 0, len(trials))
	for _, tr := range trials {
		if tr.Err == nil {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
