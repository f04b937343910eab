package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/femdyn/internal/config"
	"github.com/san-kum/femdyn/internal/experiment"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/metrics"
	"github.com/san-kum/femdyn/internal/sim"
	"github.com/san-kum/femdyn/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	dataDir    string
	configFile string
	preset     string
	logFormat  string
	logLevel   string

	integrator string
	force      string
	damping    string
	dt         float64
	debug      bool
	filtering  bool
	seed       int64
	workers    int

	level      string
	save       bool
	elements   int
	iterations int
)

var presetNotes = map[string]string{
	"rest":     "unit tetrahedron at rest, backward euler, neo-hookean",
	"drop":     "rest element under gravity, backward euler, stvk",
	"stretch":  "10% stretch along x, quasi-static, stvk with spd filtering",
	"scenario": "1e-3 volume element with a 1e-4 nodal perturbation",
	"fiber":    "fiber-reinforced neo-hookean with the self-check enabled",
	"plastic":  "von mises plasticity under increasing stretch, quasi-static",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "femdyn",
		Short:         "per-element elastodynamics evaluator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".femdyn", "data directory")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "evaluate the element objective, gradient and hessian",
		RunE:  runEval,
	}
	addScenarioFlags(evalCmd)
	evalCmd.Flags().StringVar(&level, "level", "hessian", "objective|gradient|hessian")
	evalCmd.Flags().BoolVar(&save, "save", false, "store the result")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "finite-difference check of the force model",
		RunE:  runCheck,
	}
	addScenarioFlags(checkCmd)
	checkCmd.Flags().BoolVar(&save, "save", false, "store the result")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate along a nodal perturbation and plot",
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&level, "level", "gradient", "objective|gradient|hessian")
	sweepCmd.Flags().BoolVar(&save, "save", false, "store the result")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time batch evaluation at every level",
		RunE:  runBench,
	}
	addScenarioFlags(benchCmd)
	benchCmd.Flags().IntVar(&elements, "elements", 1000, "elements per batch")
	benchCmd.Flags().IntVar(&iterations, "iterations", 5, "batches per level")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tINTEGRATOR\tFORCE\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, cfg.Integrator, cfg.Force, presetNotes[name])
			}
			return w.Flush()
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and integrators",
		Run: func(cmd *cobra.Command, args []string) {
			r := experiment.NewRegistry()
			fmt.Println(titleStyle.Render("integrators"))
			for _, name := range r.ListIntegrators() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println(titleStyle.Render("models"))
			for _, name := range r.ListModels() {
				kind, _ := material.ParseKind(name)
				role := "force"
				if kind.IsDamping() {
					role = "damping"
				}
				fmt.Printf("  %-12s %s\n", name, subtleStyle.Render(role))
			}
		},
	}

	rootCmd.AddCommand(evalCmd, checkCmd, sweepCmd, benchCmd, listCmd, showCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&integrator, "integrator", "", "backward_euler|quasi_static")
	f.StringVar(&force, "force", "", "force model")
	f.StringVar(&damping, "damping", "", "damping model")
	f.Float64Var(&dt, "dt", config.DefaultDt, "time step")
	f.BoolVar(&debug, "debug", false, "finite-difference check before every hessian")
	f.BoolVar(&filtering, "filtering", false, "project model hessians onto the spd cone")
	f.Int64Var(&seed, "seed", 1, "verifier seed")
	f.IntVar(&workers, "workers", 0, "parallel workers (0 = GOMAXPROCS)")
}

func newLogger(format, lvl string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", lvl, err)
	}
	opts := &slog.HandlerOptions{Level: l}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

func parseLevel(s string) (fem.Level, error) {
	for _, l := range []fem.Level{fem.LevelObjective, fem.LevelGradient, fem.LevelHessian} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown level %q", fem.ErrParameterBounds, s)
}

// loadConfig applies the preset, then the config file, then any flags
// set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("force") {
		cfg.Force = force
	}
	if flags.Changed("damping") {
		cfg.Damping = damping
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if flags.Changed("filtering") {
		cfg.Filtering = filtering
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, nil
}

func buildScenario(cmd *cobra.Command) (*experiment.Scenario, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.Build(cfg, experiment.WithLogger(slog.Default()))
}

func metadata(s *experiment.Scenario) storage.RunMetadata {
	return storage.RunMetadata{
		Integrator: s.Integrator.Name(),
		Force:      s.Force.Kind().String(),
		Damping:    s.Damping.Kind().String(),
		Dt:         s.Config.Dt,
		Seed:       s.Config.Seed,
		Debug:      s.Config.Debug,
		Metrics:    map[string]float64{"volume": s.Attrs.Volume},
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	s, err := buildScenario(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	c, err := s.Evaluate(lvl)
	if err != nil {
		var verr *fem.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(panel("self-check failed",
				metric{"model", verr.Model},
				metric{"gradient error", num(verr.GradErr)},
				metric{"hessian error", num(verr.HessErr)},
			))
		}
		return err
	}
	elapsed := time.Since(start)

	rows := []metric{
		{"integrator", s.Integrator.Name()},
		{"force / damping", s.Force.Kind().String() + " / " + s.Damping.Kind().String()},
		{"volume", num(s.Attrs.Volume)},
		{"objective", num(c.Objective)},
	}
	if c.Gradient != nil {
		rows = append(rows, metric{"gradient norm", num(mat.Norm(c.Gradient, 2))})
	}
	var minEig float64
	if c.Hessian != nil {
		if minEig, err = material.MinEigenvalue(c.Hessian); err != nil {
			return err
		}
		rows = append(rows, metric{"hessian min eigenvalue", num(minEig)})
	}
	rows = append(rows, metric{"elapsed", elapsed.String()})
	fmt.Println(panel("element "+lvl.String(), rows...))

	if c.Gradient != nil {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "NODE\tX\tY\tZ\t")
		for n := 0; n < fem.NodesPerElement; n++ {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", n,
				num(c.Gradient.AtVec(3*n)), num(c.Gradient.AtVec(3*n+1)), num(c.Gradient.AtVec(3*n+2)))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if save {
		meta := metadata(s)
		meta.Level = lvl.String()
		if c.Hessian != nil {
			meta.Metrics["min_eig"] = minEig
		}
		id, err := storage.New(dataDir).SaveEval(meta, c)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := buildScenario(cmd)
	if err != nil {
		return err
	}
	rep, checkErr := s.Check()
	if rep == nil {
		return checkErr
	}

	v := s.Verifier
	if v == nil {
		if v, err = s.NewVerifier(); err != nil {
			return err
		}
	}
	tol := v.Tolerance()
	fmt.Println(panel("finite-difference check",
		metric{"model", rep.Kind.String()},
		metric{"sampler", tol.Sampler.String()},
		metric{"step ratio", num(tol.Ratio)},
		metric{"gradient error", num(rep.GradErr) + " / " + num(tol.GradTol)},
		metric{"hessian error", num(rep.HessErr) + " / " + num(tol.HessTol)},
		metric{"result", status(checkErr == nil)},
	))

	if save {
		id, err := storage.New(dataDir).SaveCheck(metadata(s), rep.GradErr, rep.HessErr, checkErr == nil)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return checkErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	s, err := buildScenario(cmd)
	if err != nil {
		return err
	}

	sw := s.Config.Sweep
	fmt.Printf("sweeping node %d axis %d to %s in %d steps...\n", sw.Node, sw.Axis, num(sw.Max), sw.Steps)
	ms := metrics.Defaults()
	trace, err := s.Sweep(context.Background(), lvl, metrics.Observers(ms...)...)
	if err != nil {
		return err
	}

	plot(trace.Objectives, "objective vs perturbation")
	if lvl > fem.LevelObjective {
		plot(trace.GradNorms, "gradient norm vs perturbation")
	}
	yields := 0
	for _, y := range trace.Yields {
		yields += y
	}
	if s.Force.Kind().IsPlastic() {
		fmt.Printf("plastic yields: %d of %d steps\n", yields, trace.StepsTaken)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%s\n", m.Name(), num(m.Value()))
	}
	w.Flush()

	if save {
		meta := metadata(s)
		meta.Level = lvl.String()
		meta.Metrics["yields"] = float64(yields)
		for _, m := range ms {
			meta.Metrics[m.Name()] = m.Value()
		}
		id, err := storage.New(dataDir).SaveSweep(meta, s.SweepAmounts(), trace)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func plot(data []float64, caption string) {
	if len(data) == 0 {
		return
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()
}

func runBench(cmd *cobra.Command, args []string) error {
	if elements <= 0 || iterations <= 0 {
		return fmt.Errorf("%w: elements and iterations must be positive", fem.ErrParameterBounds)
	}
	s, err := buildScenario(cmd)
	if err != nil {
		return err
	}

	elems := make([]sim.Element, elements)
	for i := range elems {
		elems[i] = s.Element()
	}
	ev := s.Evaluator()

	fmt.Printf("benchmarking %s with %s, %d elements\n\n", s.Integrator.Name(), s.Force.Kind(), elements)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tBATCHES\tTIME\tELEMENTS/SEC")

	for _, lvl := range []fem.Level{fem.LevelObjective, fem.LevelGradient, fem.LevelHessian} {
		start := time.Now()
		for i := 0; i < iterations; i++ {
			if _, err := ev.Evaluate(context.Background(), elems, lvl); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		rate := float64(elements*iterations) / elapsed.Seconds()
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\n", lvl, iterations, elapsed.Round(time.Microsecond), rate)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tINTEG\tFORCE\tDAMPING\tOBJECTIVE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			run.Force,
			run.Damping,
			num(run.Objective),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	rows := []metric{
		{"kind", meta.Kind},
		{"time", meta.Timestamp.Format(time.RFC3339)},
		{"integrator", meta.Integrator},
		{"force / damping", meta.Force + " / " + meta.Damping},
		{"dt", num(meta.Dt)},
		{"debug", fmt.Sprint(meta.Debug)},
		{"objective", num(meta.Objective)},
		{"gradient norm", num(meta.GradNorm)},
	}
	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, metric{strings.ReplaceAll(name, "_", " "), num(meta.Metrics[name])})
	}
	fmt.Println(panel(meta.ID, rows...))

	switch meta.Kind {
	case "eval":
		grad, err := st.LoadGradient(runID)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		plot(grad, "gradient by dof")
	case "sweep":
		rows, err := st.LoadSweep(runID)
		if err != nil {
			return err
		}
		obj := make([]float64, len(rows))
		for i, r := range rows {
			obj[i] = r.Objective
		}
		plot(obj, "objective vs perturbation")
	}
	return nil
}
