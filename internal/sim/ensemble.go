package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent simulation. Each job owns its solver.
type Job struct {
	Name    string
	Solver  Solver
	X0      []float64
	NSim    int
	PValues [][]float64
}

type JobResult struct {
	Name    string
	Results *Results
	Err     error
}

// RunEnsemble runs the jobs on at most workers goroutines. A failing job does
// not cancel the others; its error is reported in its JobResult.
func RunEnsemble(ctx context.Context, jobs []Job, workers int) []JobResult {
	results := make([]JobResult, len(jobs))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, job := range jobs {
		g.Go(func() error {
			results[i].Name = job.Name
			looper, err := NewLooper(job.Solver, job.X0, job.NSim, job.PValues)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Err = looper.Run(ctx)
			results[i].Results = looper.Results()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
