// Package automation runs scripted batches of simulations described in YAML.
package automation

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/experiment"
	"github.com/san-kum/fesdsim/internal/sim"
)

// Scenario is a named list of independent runs.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun starts from a preset or the defaults and overlays the fields
// given under config.
type ScenarioRun struct {
	Name   string    `yaml:"name"`
	Model  string    `yaml:"model"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
}

// Outcome is the result of one scenario run. Experiment is nil when the run
// could not be built.
type Outcome struct {
	Name       string
	Experiment *experiment.Experiment
	Results    *sim.Results
	Metrics    map[string]float64
	Err        error
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", scenario.Name)
	}
	return &scenario, nil
}

func (r *ScenarioRun) Build() (*config.Config, error) {
	var cfg *config.Config
	if r.Preset != "" {
		model := r.Model
		if model == "" {
			model = config.DefaultModel
		}
		cfg = config.GetPreset(model, r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", r.Preset, config.ListPresets(model))
		}
	} else {
		cfg = config.DefaultConfig()
		if r.Model != "" {
			cfg.Model = r.Model
		}
	}

	if !r.Config.IsZero() {
		if err := r.Config.Decode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes the runs on at most workers goroutines. Runs that fail
// to build or abort are reported in their Outcome and do not stop the others.
func RunScenario(ctx context.Context, scenario *Scenario, workers int) []Outcome {
	outcomes := make([]Outcome, len(scenario.Runs))
	jobs := make([]sim.Job, 0, len(scenario.Runs))
	index := make([]int, 0, len(scenario.Runs))

	for i := range scenario.Runs {
		run := &scenario.Runs[i]
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("run%d", i+1)
		}
		outcomes[i].Name = name

		cfg, err := run.Build()
		if err != nil {
			outcomes[i].Err = fmt.Errorf("%s: %w", name, err)
			continue
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(); err != nil {
			outcomes[i].Err = fmt.Errorf("%s setup: %w", name, err)
			continue
		}
		job, err := exp.Job(name)
		if err != nil {
			outcomes[i].Err = err
			continue
		}
		outcomes[i].Experiment = exp
		jobs = append(jobs, job)
		index = append(index, i)
	}

	for j, res := range sim.RunEnsemble(ctx, jobs, workers) {
		o := &outcomes[index[j]]
		o.Results = res.Results
		if res.Results != nil {
			o.Metrics = experiment.Metrics(res.Results)
		}
		if res.Err != nil {
			o.Err = fmt.Errorf("%s run: %w", o.Name, res.Err)
		}
	}
	return outcomes
}
