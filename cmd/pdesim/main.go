package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pdesim/internal/analysis"
	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/experiment"
	"github.com/san-kum/pdesim/internal/export"
	"github.com/san-kum/pdesim/internal/optim"
	"github.com/san-kum/pdesim/internal/storage"
	"github.com/san-kum/pdesim/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	dataDir    string
	configFile string
	preset     string
	scheme     string
	theta      float64
	spot       float64
	strike     float64
	expiry     float64
	rate       float64
	dividend   float64
	vol        float64
	put        bool
	timeSteps  int
	spaceSteps int
	spaceMax   float64
	meshKind   string
	strength   float64
	full       bool
	allowExp   bool
	noSave     bool
	jobs       int
	// convergence and validation
	levels    int
	tolerance float64
	// sweeps
	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int
	// calibration
	target float64
	fits   []string
	// output
	modelFilter string
	saveConfig  string
	svgWidth    int
	svgHeight   int
)

var (
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	flag.Set("logtostderr", "true")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	defer glog.Flush()

	rootCmd := &cobra.Command{
		Use:           "pdesim",
		Short:         "finite-difference PDE pricing lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pdesim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "solve a problem and save the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runModel,
	}
	addProblemFlags(runCmd)
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved config to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&modelFilter, "model", "", "only runs of this model")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the curves of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the curves of a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets, for one model or all",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and their schemes",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [scheme1] [scheme2] ...",
		Short: "compare schemes on the same problem",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareSchemes,
	}
	addProblemFlags(compareCmd)
	compareCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	compareCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent solves (0 = unlimited)")

	validateCmd := &cobra.Command{
		Use:   "validate [model]",
		Short: "check every preset of a model against its closed form",
		Args:  cobra.ExactArgs(1),
		RunE:  validateModel,
	}
	validateCmd.Flags().Float64Var(&tolerance, "tol", 5e-3, "relative tolerance")

	convergeCmd := &cobra.Command{
		Use:   "converge [model]",
		Short: "refine the grid and report empirical orders",
		Args:  cobra.ExactArgs(1),
		RunE:  convergeModel,
	}
	addProblemFlags(convergeCmd)
	convergeCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	convergeCmd.Flags().IntVar(&levels, "levels", 4, "refinement levels")
	convergeCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent solves (0 = unlimited)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "solve across a range of one market parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepModel,
	}
	addProblemFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "vol", "parameter to sweep, see config params")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 0.5, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 9, "number of values")
	sweepCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent solves (0 = unlimited)")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [model]",
		Short: "grid-search parameters to match a target price",
		Args:  cobra.ExactArgs(1),
		RunE:  calibrateModel,
	}
	addProblemFlags(calibrateCmd)
	calibrateCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	calibrateCmd.Flags().Float64Var(&target, "target", 0, "price to match")
	calibrateCmd.Flags().StringArrayVar(&fits, "fit", nil, "parameter range name=lo:hi:n (repeatable)")
	calibrateCmd.Flags().IntVar(&jobs, "jobs", 0, "concurrent solves (0 = unlimited)")
	calibrateCmd.MarkFlagRequired("target")
	calibrateCmd.MarkFlagRequired("fit")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the curves of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "width in pixels")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "height in pixels")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse the surface and curves of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportSVGCmd, presetsCmd, modelsCmd,
		compareCmd, validateCmd, convergeCmd, sweepCmd, calibrateCmd, viewCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("error: ")+err.Error())
		glog.Flush()
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&scheme, "scheme", "crank_nicolson", "time stepping scheme")
	f.Float64Var(&theta, "theta", config.DefaultTheta, "theta for the theta scheme")
	f.Float64Var(&spot, "spot", config.DefaultSpot, "spot")
	f.Float64Var(&strike, "strike", config.DefaultStrike, "strike")
	f.Float64Var(&expiry, "expiry", config.DefaultExpiry, "time to expiry")
	f.Float64Var(&rate, "rate", config.DefaultRate, "interest rate")
	f.Float64Var(&dividend, "dividend", 0, "dividend yield")
	f.Float64Var(&vol, "vol", config.DefaultVol, "volatility")
	f.BoolVar(&put, "put", false, "price a put")
	f.IntVar(&timeSteps, "time-steps", config.DefaultTimeSteps, "time steps")
	f.IntVar(&spaceSteps, "space-steps", config.DefaultSpaceSteps, "space steps")
	f.Float64Var(&spaceMax, "space-max", config.DefaultSpaceMax, "upper space edge as a multiple of the strike")
	f.StringVar(&meshKind, "mesh", "uniform", "mesh: uniform, exponential or hyperbolic")
	f.Float64Var(&strength, "strength", 0, "mesh concentration")
	f.BoolVar(&full, "full", false, "keep every time slice")
	f.BoolVar(&allowExp, "experimental", false, "allow experimental schemes")
}

// buildConfig resolves the problem for model: a preset or config file if
// given, otherwise the defaults, then any flag set on the command line.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		cfg = config.DefaultConfig()
		if model == experiment.Heston {
			cfg.Scheme = "douglas"
		}
	}
	cfg.Model = model

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("scheme", func() { cfg.Scheme = scheme })
	set("theta", func() { cfg.Theta = theta })
	set("spot", func() { cfg.Market.Spot = spot })
	set("strike", func() { cfg.Option.Strike = strike })
	set("expiry", func() { cfg.Option.Expiry = expiry })
	set("rate", func() { cfg.Market.Rate = rate })
	set("dividend", func() { cfg.Market.Dividend = dividend })
	set("vol", func() { cfg.Market.Vol = vol })
	set("put", func() { cfg.Option.Call = !put })
	set("time-steps", func() { cfg.Grid.TimeSteps = timeSteps })
	set("space-steps", func() { cfg.Grid.SpaceSteps = spaceSteps })
	set("space-max", func() { cfg.Grid.SpaceMax = spaceMax })
	set("mesh", func() { cfg.Grid.Mesh = meshKind })
	set("strength", func() { cfg.Grid.Strength = strength })
	set("full", func() { cfg.FullResults = full })
	set("experimental", func() { cfg.Experimental = allowExp })

	return cfg, cfg.Validate()
}

func fmtFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}

func printOutcome(out *experiment.Outcome) {
	fmt.Println(headStyle.Render(out.Model + "/" + out.Scheme))
	row := func(label, value string) {
		fmt.Printf("  %s %s\n", dimStyle.Render(fmt.Sprintf("%-12s", label)), value)
	}
	row("value", fmtFloat(out.Value))
	if out.HasReference() {
		row("reference", fmtFloat(out.Reference))
		row("error", errorStyle(out.Error(), out.Reference).Render(fmt.Sprintf("%.3e", out.Error())))
	}
	if out.Delta != 0 || out.Gamma != 0 {
		row("delta", fmtFloat(out.Delta))
		row("gamma", fmtFloat(out.Gamma))
	}
	if out.ImpliedVol > 0 {
		row("implied vol", fmtFloat(out.ImpliedVol))
	}
	row("elapsed", out.Elapsed.String())

	names := make([]string, 0, len(out.Metrics))
	for name := range out.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmtFloat(out.Metrics[name]))
	}
}

func errorStyle(err, ref float64) lipgloss.Style {
	rel := err / math.Max(1, math.Abs(ref))
	switch {
	case rel < 1e-3:
		return okStyle
	case rel < 1e-2:
		return warnStyle
	}
	return failStyle
}

func runModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	out, err := experiment.Run(cfg)
	if err != nil {
		return err
	}
	printOutcome(out)

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()
	id, err := st.Save(cfg, out)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s %s\n", dimStyle.Render("saved run"), id)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(modelFilter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSCHEME\tTIME\tVALUE\tERROR\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.1fms\n",
			run.ID,
			run.Model,
			run.Scheme,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmtFloat(run.Value),
			fmtFloat(run.Error()),
			run.ElapsedMS,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	curves, err := st.LoadCurves(runID)
	if err != nil {
		return err
	}
	if len(curves) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s/%s\n", meta.Model, meta.Scheme)
	fmt.Printf("value: %s\n\n", fmtFloat(meta.Value))

	const maxPlots = 6
	for i, c := range curves {
		if i == maxPlots {
			break
		}
		if len(c.Y) == 0 {
			continue
		}
		caption := fmt.Sprintf("%s over [%.4g, %.4g]", c.Name, c.X[0], c.X[len(c.X)-1])
		graph := asciigraph.Plot(c.Y,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	if meta.Surface != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("surface over %s × %s saved; browse it with: pdesim view %s",
			meta.Surface.XLabel, meta.Surface.YLabel, meta.ID)))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := experiment.NewRegistry().ListModels()
	if len(args) == 1 {
		models = args[:1]
	}
	for _, model := range models {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			if len(args) == 1 {
				fmt.Printf("no presets for model: %s\n", model)
			}
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			cfg := config.GetPreset(model, p)
			fmt.Printf("  %-20s %s\n", p, dimStyle.Render(fmt.Sprintf("%s, %d×%d", cfg.Scheme, cfg.Grid.TimeSteps, cfg.Grid.SpaceSteps)))
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	for _, name := range reg.ListModels() {
		m, err := reg.GetModel(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", headStyle.Render(fmt.Sprintf("%-18s", m.Name)), m.Description)
		fmt.Printf("  %s\n", dimStyle.Render(strings.Join(m.Schemes, " ")))
	}
	return nil
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	model, schemes := args[0], args[1:]
	cfg, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}

	outs, err := experiment.Compare(cfg, schemes, jobs)
	if err != nil {
		return err
	}

	fmt.Printf("comparing schemes for %s (%d×%d grid)\n\n", model, cfg.Grid.TimeSteps, cfg.Grid.SpaceSteps)
	fmt.Printf("%-20s  %-12s  %-12s  %-12s  %-12s  %-10s\n", "scheme", "value", "error", "oscillation", "max_abs", "time_ms")
	fmt.Println(strings.Repeat("-", 86))
	for _, out := range outs {
		osc, ok := out.Metrics["oscillation"]
		if !ok {
			osc = math.NaN()
		}
		fmt.Printf("%-20s  %12s  %12s  %12s  %12s  %10.2f\n",
			out.Scheme,
			fmtFloat(out.Value),
			fmtFloat(out.Error()),
			fmtFloat(osc),
			fmtFloat(out.Metrics["max_abs"]),
			float64(out.Elapsed.Microseconds())/1000,
		)
	}
	return nil
}

func validateModel(cmd *cobra.Command, args []string) error {
	model := args[0]
	if _, err := experiment.NewRegistry().GetModel(model); err != nil {
		return err
	}

	names := config.ListPresets(model)
	cfgs := make([]*config.Config, 0, len(names)+1)
	if len(names) == 0 {
		cfg := config.DefaultConfig()
		cfg.Model = model
		cfgs = append(cfgs, cfg)
		names = []string{"default"}
	}
	for _, n := range config.ListPresets(model) {
		cfgs = append(cfgs, config.GetPreset(model, n))
	}

	failed, checked := 0, 0
	for i, cfg := range cfgs {
		out, err := experiment.Run(cfg)
		if err != nil {
			fmt.Printf("%-20s %s %v\n", names[i], failStyle.Render("error"), err)
			failed++
			checked++
			continue
		}
		if !out.HasReference() {
			fmt.Printf("%-20s %s value=%s\n", names[i], dimStyle.Render("no closed form"), fmtFloat(out.Value))
			continue
		}
		checked++
		rel := out.Error() / math.Max(1, math.Abs(out.Reference))
		status := okStyle.Render("ok")
		if rel > tolerance {
			status = failStyle.Render("FAIL")
			failed++
		}
		fmt.Printf("%-20s %-4s value=%s reference=%s error=%.3e\n",
			names[i], status, fmtFloat(out.Value), fmtFloat(out.Reference), out.Error())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, checked)
	}
	return nil
}

func convergeModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	conv, err := experiment.Converge(cfg, levels, jobs)
	if err != nil {
		return err
	}

	fmt.Printf("refining %s/%s\n\n", cfg.Model, cfg.Scheme)
	fmt.Printf("%-6s  %-8s  %-8s  %-14s  %-12s  %-8s\n", "level", "time", "space", "value", "error", "order")
	fmt.Println(strings.Repeat("-", 64))
	for l, out := range conv.Outcomes {
		errStr, order := "-", "-"
		if l < len(conv.Errors) {
			errStr = fmt.Sprintf("%.3e", conv.Errors[l])
		}
		if l > 0 && l-1 < len(conv.Orders) {
			order = fmt.Sprintf("%.2f", conv.Orders[l-1])
		}
		fmt.Printf("%-6d  %-8d  %-8d  %-14s  %-12s  %-8s\n",
			l, conv.TimeSteps[l], conv.SpaceSteps[l], fmtFloat(out.Value), errStr, order)
	}
	return nil
}

func sweepModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if err := cfg.Clone().SetParam(sweepParam, sweepFrom); err != nil {
		return err
	}

	points, err := analysis.Sweep(sweepFrom, sweepTo, sweepSteps, jobs, func(p float64) ([]float64, error) {
		c := cfg.Clone()
		if err := c.SetParam(sweepParam, p); err != nil {
			return nil, err
		}
		out, err := experiment.Run(c)
		if err != nil {
			return nil, err
		}
		if out.HasReference() {
			return []float64{out.Value, out.Reference}, nil
		}
		return []float64{out.Value}, nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s for %s/%s\n\n", sweepParam, cfg.Model, cfg.Scheme)
	fmt.Printf("%-10s  %-14s  %-14s\n", sweepParam, "value", "reference")
	fmt.Println(strings.Repeat("-", 42))
	for _, p := range points {
		ref := "-"
		if len(p.Values) > 1 {
			ref = fmtFloat(p.Values[1])
		}
		fmt.Printf("%-10.4g  %-14s  %-14s\n", p.Param, fmtFloat(p.Values[0]), ref)
	}
	fmt.Println()
	fmt.Print(analysis.SweepToASCII(points, 60, 12))
	return nil
}

// parseFit reads name=lo:hi:n.
func parseFit(fit string) (string, []float64, error) {
	name, rng, ok := strings.Cut(fit, "=")
	parts := strings.Split(rng, ":")
	if !ok || len(parts) != 3 {
		return "", nil, fmt.Errorf("bad --fit %q, want name=lo:hi:n", fit)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad --fit %q: %w", fit, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad --fit %q: %w", fit, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("bad --fit %q: need a positive count", fit)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func calibrateModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, f := range fits {
		name, values, err := parseFit(f)
		if err != nil {
			return err
		}
		if err := cfg.Clone().SetParam(name, values[0]); err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs, err := optim.NewGridSearch(names, ranges, jobs)
	if err != nil {
		return err
	}

	best, score, err := gs.Search(context.Background(), func(ctx context.Context, params map[string]float64) (float64, error) {
		c := cfg.Clone()
		for name, v := range params {
			if err := c.SetParam(name, v); err != nil {
				return 0, err
			}
		}
		out, err := experiment.Run(c)
		if err != nil {
			return 0, err
		}
		return math.Abs(out.Value - target), nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("calibrating %s/%s to %s over %d points\n\n", cfg.Model, cfg.Scheme, fmtFloat(target), len(gs.Points()))
	for _, name := range names {
		fmt.Printf("  %s %s\n", dimStyle.Render(fmt.Sprintf("%-12s", name)), headStyle.Render(fmtFloat(best[name])))
	}
	fmt.Printf("  %s %s\n", dimStyle.Render(fmt.Sprintf("%-12s", "|error|")), errorStyle(score, target).Render(fmt.Sprintf("%.3e", score)))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	curves, err := st.LoadCurves(runID)
	if err != nil {
		return err
	}
	svg := export.CurvesToSVG(curves, svgWidth, svgHeight, meta.Model+"/"+meta.Scheme)
	if svg == "" {
		return fmt.Errorf("no data to export")
	}
	_, err = fmt.Fprintln(os.Stdout, svg)
	return err
}

func viewRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	curves, err := st.LoadCurves(runID)
	if err != nil {
		return err
	}
	surface, err := st.LoadSurface(runID)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		surface = nil
	}
	return tui.Run(meta.Model+"/"+meta.Scheme, surface, curves)
}
