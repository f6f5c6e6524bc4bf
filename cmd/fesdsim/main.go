package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/fesdsim/internal/automation"
	"github.com/san-kum/fesdsim/internal/config"
	"github.com/san-kum/fesdsim/internal/experiment"
	"github.com/san-kum/fesdsim/internal/export"
	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/models"
	"github.com/san-kum/fesdsim/internal/optim"
	"github.com/san-kum/fesdsim/internal/sim"
	"github.com/san-kum/fesdsim/internal/storage"
	"github.com/san-kum/fesdsim/internal/viz"
)

var (
	dataDir  string
	logLevel string

	configFile string
	preset     string
	steps      int
	horizon    float64
	elements   int
	rule       string
	initMode   string
	compTol    float64
	sigma0     float64
	slope      float64
	cross      bool
	x0         []float64
	showPlot   bool
	exportPath string
	noSave     bool

	xAxis   int
	yAxis   int
	svgPath string

	tuneParams []string
	metric     string
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fesdsim",
		Short: "Filippov system simulation with FESD and MPCC homotopy",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fesdsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	simulateCmd := &cobra.Command{
		Use:   "simulate [model]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSolverFlags(simulateCmd)
	simulateCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the trajectory after the run")
	simulateCmd.Flags().StringVar(&exportPath, "export", "", "write the full result including w_sim as JSON")
	simulateCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two state components",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x", 0, "state component on the horizontal axis")
	phaseCmd.Flags().IntVar(&yAxis, "y", 1, "state component on the vertical axis")
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait as SVG")

	historyCmd := &cobra.Command{
		Use:   "history [run_id]",
		Short: "homotopy history per step",
		Args:  cobra.ExactArgs(1),
		RunE:  historyRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportRun(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tNX\tMODES\tDESCRIPTION")
			for _, name := range models.Names() {
				m, err := models.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", name, m.NX, m.NF(), models.Describe(name))
			}
			return w.Flush()
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid search over solver settings",
		Long: "grid search over solver settings, e.g.\n" +
			"  fesdsim tune relay --param sigma_0=1,0.1 --param update_slope=0.1,0.3\n" +
			"settings: " + strings.Join(experiment.ParamNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: tuneRun,
	}
	addSolverFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "setting=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", experiment.MetricNLPIter, "metric to minimize ("+strings.Join(experiment.MetricNames(), ", ")+")")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "concurrent runs")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scenario of independent simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  batchRun,
	}
	batchCmd.Flags().IntVar(&workers, "workers", 4, "concurrent runs")
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	rootCmd.AddCommand(simulateCmd, listCmd, plotCmd, phaseCmd, historyCmd, exportJSONCmd, presetsCmd, modelsCmd, tuneCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", def.Steps, "number of simulation steps")
	cmd.Flags().Float64Var(&horizon, "horizon", def.Horizon, "total simulated time")
	cmd.Flags().IntVar(&elements, "elements", def.Solver.NFiniteElements, "finite elements per step")
	cmd.Flags().StringVar(&rule, "rule", def.Solver.Homotopy.Rule.String(), "sigma update rule (linear, superlinear)")
	cmd.Flags().StringVar(&initMode, "init", def.Solver.Initialization.String(), "initial guess (all_xcurrent, rk4_smoothed, warm_start)")
	cmd.Flags().Float64Var(&compTol, "comp-tol", def.Solver.Homotopy.CompTol, "complementarity tolerance")
	cmd.Flags().Float64Var(&sigma0, "sigma0", def.Solver.Homotopy.Sigma0, "initial smoothing parameter")
	cmd.Flags().Float64Var(&slope, "slope", def.Solver.Homotopy.Slope, "sigma update slope")
	cmd.Flags().BoolVar(&cross, "cross", def.Solver.CrossComplementarity, "cross complementarity")
	cmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state")
}

// loadConfig layers the configuration: defaults, then preset, then config
// file, then explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model := cfg.Model
	if len(args) > 0 {
		model = args[0]
	}
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("elements") {
		cfg.Solver.NFiniteElements = elements
	}
	if flags.Changed("rule") {
		r, err := homotopy.ParseUpdateRule(rule)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Homotopy.Rule = r
	}
	if flags.Changed("init") {
		i, err := fesd.ParseInitialization(initMode)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Initialization = i
	}
	if flags.Changed("comp-tol") {
		cfg.Solver.Homotopy.CompTol = compTol
	}
	if flags.Changed("sigma0") {
		cfg.Solver.Homotopy.Sigma0 = sigma0
	}
	if flags.Changed("slope") {
		cfg.Solver.Homotopy.Slope = slope
	}
	if flags.Changed("cross") {
		cfg.Solver.CrossComplementarity = cross
	}
	if flags.Changed("x0") {
		cfg.X0 = x0
	}
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logrus.SetLevel(lvl)
		}
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(); err != nil {
		return err
	}
	exp.GetLooper().AddObserver(sim.ObserverFunc(func(step int, t float64, res *fesd.Result) {
		logrus.WithFields(logrus.Fields{
			"step":   step,
			"t":      fmt.Sprintf("%.4f", t),
			"levels": res.Log.Levels(),
			"iter":   res.Log.TotalIter(),
			"status": res.Status,
		}).Debug("step done")
	}))

	trajectoryMetrics := experiment.DefaultMetrics(cfg.Model)
	for _, m := range trajectoryMetrics {
		if err := exp.AddMetric(m); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s: %d steps over %.4g", cfg.Model, cfg.Steps, cfg.Horizon)))
	start := time.Now()

	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if runErr != nil {
		logrus.WithError(runErr).Error("simulation aborted")
	}
	res := result.Results

	if !noSave && len(res.Statuses) > 0 {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.Metadata(), res)
		if err != nil {
			return err
		}
		fmt.Println(viz.Metric("run id", "%s", runID))
	}

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		if err := storage.ExportJSON(f, cfg.Model, res); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	done := len(res.Statuses)
	fmt.Println(viz.Metric("completed", "%d/%d %s", done, cfg.Steps, viz.ProgressBar(float64(done)/float64(max(cfg.Steps, 1)), 20)))
	fmt.Println(viz.Metric("wall time", "%v", elapsed.Round(time.Millisecond)))
	fmt.Println(viz.Metric("newton iter", "%.0f", result.Metrics[experiment.MetricNLPIter]))
	fmt.Println(viz.Metric("solver cpu", "%.4fs", result.Metrics[experiment.MetricCPU]))
	fmt.Println(viz.Metric("max comp res", "%.3e", result.Metrics[experiment.MetricCompRes]))
	fmt.Println(viz.Metric("failed steps", "%d", res.Failed))
	for _, m := range trajectoryMetrics {
		fmt.Println(viz.Metric(m.Name(), "%.4g", result.Metrics[m.Name()]))
	}
	if len(res.XSim) > 0 {
		fmt.Println(viz.Metric("final state", "%v", formatState(res.XSim[len(res.XSim)-1])))
	}

	if showPlot {
		fmt.Println()
		fmt.Println(viz.Trajectory(res.XSim, 80, 12, "state vs element"))
	}
	return runErr
}

func formatState(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = strconv.FormatFloat(v, 'g', 8, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tHORIZON\tRULE\tITER\tFAILED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Horizon,
			run.UpdateRule,
			run.TotalNLPIter,
			run.Failed,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.HeaderStyle.Render(meta.ID))
	fmt.Println(viz.Metric("model", "%s", meta.Model))
	fmt.Println(viz.Metric("samples", "%d", len(states)))
	fmt.Println(viz.Metric("time", "%.4g .. %.4g", times[0], times[len(times)-1]))
	fmt.Println()
	fmt.Println(viz.Trajectory(states, 80, 12, "state vs element"))
	return nil
}

func phaseRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	if n := len(states[0]); xAxis < 0 || yAxis < 0 || xAxis >= n || yAxis >= n {
		return fmt.Errorf("axes (%d, %d) out of range for a %d dimensional state", xAxis, yAxis, n)
	}

	xs, ys := viz.Column(states, xAxis), viz.Column(states, yAxis)
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("x%d vs x%d", yAxis, xAxis)))
	fmt.Print(viz.GraphBox.Render(viz.Phase(xs, ys, 60, 20).String()))
	fmt.Println()

	if svgPath == "" {
		return nil
	}
	f, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	if err := export.TrajectoryToSVG(f, xs, ys, export.DefaultSVGOptions()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func historyRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	diags, err := st.LoadDiagnostics(args[0])
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		fmt.Println("no homotopy history")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tLEVEL\tSIGMA\tCOMP_RES\tCPU\tITER")
	perStep := make(map[int]float64)
	last := 0
	for _, d := range diags {
		fmt.Fprintf(w, "%d\t%d\t%.3e\t%.3e\t%.4f\t%d\n", d.Step, d.Level, d.Sigma, d.CompRes, d.CPU, d.NLPIter)
		perStep[d.Step] += float64(d.NLPIter)
		last = max(last, d.Step)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	iters := make([]float64, last+1)
	for s, n := range perStep {
		iters[s] = n
	}
	fmt.Println()
	fmt.Println(viz.Series(iters, 60, 8, "newton iterations per step"))
	return nil
}

// parseParam parses "name=v1,v2,..." into a grid axis.
func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("expected setting=v1,v2,..., got %q", s)
	}
	var vals []float64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func tuneRun(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	var names []string
	var ranges [][]float64
	for _, p := range tuneParams {
		name, vals, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	grid, err := optim.NewGridSearch(names, ranges, workers)
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s: %d grid points, minimizing %s", base.Model, grid.Size(), metric)))

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := *base
		for name, v := range params {
			if err := experiment.SetParam(&cfg, name, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(&cfg), nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, trials, err := grid.Search(ctx, build, metric)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metric))
	for _, tr := range trials {
		row := make([]string, 0, len(names)+1)
		for _, n := range names {
			row = append(row, strconv.FormatFloat(tr.Params[n], 'g', 6, 64))
		}
		if tr.Err != nil {
			row = append(row, "error: "+tr.Err.Error())
		} else {
			row = append(row, strconv.FormatFloat(tr.Value, 'g', 6, 64))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.Metric("best", "%v", best.Params))
	fmt.Println(viz.Metric(metric, "%g", best.Value))
	return nil
}

func batchRun(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s: %d runs", scenario.Name, len(scenario.Runs))))
	if scenario.Description != "" {
		fmt.Println(viz.Subtle.Render(scenario.Description))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tMODEL\tITER\tFAILED\tMAX_COMP_RES\tRUN_ID")
	for _, o := range automation.RunScenario(ctx, scenario, workers) {
		if o.Err != nil {
			failed++
			logrus.WithError(o.Err).Error("run failed")
		}
		if o.Experiment == nil || o.Results == nil || len(o.Results.Statuses) == 0 {
			continue
		}
		runID := "-"
		if !noSave {
			if runID, err = st.Save(o.Experiment.Metadata(), o.Results); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%d\t%.3e\t%s\n",
			o.Name,
			o.Experiment.Config().Model,
			o.Metrics[experiment.MetricNLPIter],
			o.Results.Failed,
			o.Metrics[experiment.MetricCompRes],
			runID,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(scenario.Runs))
	}
	return nil
}
