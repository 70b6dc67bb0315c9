package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"

	"github.com/san-kum/ibmcouple/internal/boundary"
	"github.com/san-kum/ibmcouple/internal/config"
	"github.com/san-kum/ibmcouple/internal/experiment"
	"github.com/san-kum/ibmcouple/internal/export"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/storage"
	"github.com/san-kum/ibmcouple/internal/tui"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	steps      int
	integrator string
	repulsive  bool
	noSave     bool
	jsonOut    bool
	particleID int
	axis       string
	outFile    string
	kind       string
	format     string
	grid       int
	band       float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ibmcouple",
		Short: "rigid particles coupled to a fluid through an implicit boundary",
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

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ibmcouple", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a coupling simulation",
		RunE:  runSimulation,
	}
	addCaseFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 0, "fluid steps to run (default: duration / fluid_dt)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the trajectory as JSON to stdout")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation in the terminal",
		RunE:  runLive,
	}
	addCaseFlags(liveCmd)
	liveCmd.Flags().IntVar(&steps, "steps", 0, "stop after this many fluid steps (0: until quit)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot particle coordinates against time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&particleID, "particle", -1, "particle to plot (-1: first few)")
	plotCmd.Flags().StringVar(&axis, "axis", "y", "coordinate to plot (x, y, z)")

	pngCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render a stored run with gonum/plot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportImage,
	}
	pngCmd.Flags().StringVar(&outFile, "out", "", "output file; the extension picks the format (default <run_id>.png)")
	pngCmd.Flags().StringVar(&kind, "kind", "trajectories", "trajectories or heights")
	pngCmd.Flags().StringVar(&axis, "axis", "y", "coordinate for heights")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "write a stored run to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json or csv")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets and selectable components",
		RunE:  showPresets,
	}

	probeCmd := &cobra.Command{
		Use:   "probe x y z",
		Short: "query the implicit boundary of a case at a point",
		Args:  cobra.ExactArgs(3),
		RunE:  probeField,
	}
	addCaseFlags(probeCmd)
	probeCmd.Flags().IntVar(&grid, "grid", 0, "also sample this many points towards the particle centre")
	probeCmd.Flags().Float64Var(&band, "band", 0, "report points farther than this from every surface as outside (0: no band)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, pngCmd, exportCmd, presetsCmd, probeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset as case/variant")
	cmd.Flags().StringVar(&integrator, "integrator", "", "override the translational integrator")
	cmd.Flags().BoolVar(&repulsive, "repulsion", false, "force the repulsive model on")
}

// loadCase resolves the configuration: preset, then config file, then flags.
func loadCase(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := ""

	if preset != "" {
		p, resolved, ok := experiment.Resolve(preset)
		if !ok {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, experiment.Catalog()["preset"])
		}
		cfg, name = p, resolved
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("repulsion") {
		cfg.Repulsion.Enabled = repulsive
	}
	return cfg, name, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadCase(cmd)
	if err != nil {
		return err
	}

	log := logrus.WithField("case", cfg.Case)
	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(logrus.Fields{
		"particles":  exp.Registry.Len(),
		"integrator": cfg.Integrator,
		"repulsion":  cfg.Repulsion.Enabled,
	}).Info("starting run")

	result, runErr := exp.Run(ctx, steps)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		log.WithError(runErr).Warn("run stopped early")
	}

	meta := exp.Metadata(name, result)
	if jsonOut {
		if err := storage.ExportJSON(os.Stdout, meta, exp.Recorder.Frames); err != nil {
			return err
		}
	} else {
		fmt.Printf("steps: %d\n", result.StepsTaken)
		fmt.Printf("model time: %.6fs\n", result.Time)
		names := make([]string, 0, len(result.Metrics))
		for k := range result.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Printf("%s: %g\n", k, result.Metrics[k])
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, exp.Recorder.Frames)
		if err != nil {
			return err
		}
		log.WithField("run", runID).Info("saved")
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadCase(cmd)
	if err != nil {
		return err
	}

	// Logging would tear the alternate screen.
	quiet := logrus.New()
	quiet.SetLevel(logrus.ErrorLevel)
	quiet.SetOutput(os.Stderr)

	exp, err := experiment.New(cfg, quiet)
	if err != nil {
		return err
	}

	m := tui.NewModel(exp.Driver, exp.Box, cfg.Case, steps)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
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
	fmt.Fprintln(w, "ID\tCASE\tTIME\tSTEPS\tDT\tN\tINTEG\tREPULSION")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%gs\t%d\t%s\t%s\n",
			run.ID,
			run.Case,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.FluidDt,
			run.Particles,
			run.Integrator,
			run.Repulsion,
		)
	}

	return w.Flush()
}

func parseAxis(s string) (int, error) {
	switch strings.ToLower(s) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

func loadRun(runID string) (*storage.RunMetadata, []storage.Frame, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(frames) == 0 {
		return nil, nil, fmt.Errorf("run %s has no frames", runID)
	}
	return meta, frames, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	a, err := parseAxis(axis)
	if err != nil {
		return err
	}
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("case: %s\n", meta.Case)
	fmt.Printf("frames: %d\n\n", len(frames))

	ids := []int{particleID}
	if particleID < 0 {
		ids = nil
		for _, p := range frames[0].Particles {
			if len(ids) == 4 {
				break
			}
			ids = append(ids, p.ID)
		}
	}

	for _, id := range ids {
		_, centers := storage.Track(frames, id)
		if len(centers) == 0 {
			return fmt.Errorf("particle %d not in run", id)
		}
		data := make([]float64, len(centers))
		for i, c := range centers {
			data[i] = geom.Component(c, a)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("particle %d %s vs time", id, axis)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportImage(cmd *cobra.Command, args []string) error {
	_, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = args[0] + ".png"
	}

	var p *plot.Plot
	switch kind {
	case "trajectories":
		p, err = export.Trajectories(frames, 0, 1, 8)
	case "heights":
		a, aerr := parseAxis(axis)
		if aerr != nil {
			return aerr
		}
		p, err = export.Heights(frames, a)
	default:
		return fmt.Errorf("unknown plot kind %q", kind)
	}
	if err != nil {
		return err
	}

	if path == "-" {
		return export.Write(p, os.Stdout, "png")
	}
	if err := export.Save(p, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", path, export.FormatOf(path))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return storage.ExportJSON(os.Stdout, *meta, frames)
	case "csv":
		return storage.WriteTrajectory(os.Stdout, frames)
	}
	return fmt.Errorf("unknown format %q", format)
}

func showPresets(cmd *cobra.Command, args []string) error {
	for _, c := range config.ListCases() {
		fmt.Printf("%s:\n", c)
		for _, p := range config.ListPresets(c) {
			cfg := config.GetPreset(c, p)
			centers, _, err := cfg.Layout()
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %4d particles, dt=%g, repulsion=%v\n", p, len(centers), cfg.FluidDt, cfg.Repulsion.Enabled)
		}
	}

	catalog := experiment.Catalog()
	fmt.Printf("\nintegrators: %s\n", strings.Join(catalog["integrator"], ", "))
	fmt.Printf("repulsion:   %s\n", strings.Join(catalog["repulsion"], ", "))
	return nil
}

func probeField(cmd *cobra.Command, args []string) error {
	var x [3]float64
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %d: %w", i, err)
		}
		x[i] = v
	}

	cfg, _, err := loadCase(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("band") {
		cfg.Boundary.Band = band
	}
	exp, err := experiment.New(cfg, logrus.StandardLogger())
	if err != nil {
		return err
	}

	p := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
	s, err := exp.Field.Query(p, 0)
	var degenerate *boundary.DegenerateError
	if err != nil && !errors.As(err, &degenerate) {
		return err
	}
	if s.Particle < 0 {
		fmt.Println("outside all particles")
		return nil
	}
	if degenerate != nil {
		fmt.Println("warning: point is at a particle centre")
	}

	v, err := exp.Field.SurfaceVelocity(p, s.Particle)
	if err != nil {
		return err
	}
	fmt.Printf("nearest particle: %d\n", s.Particle)
	fmt.Printf("signed distance:  %g\n", s.Distance)
	fmt.Printf("normal:           (%g, %g, %g)\n", s.Normal.X, s.Normal.Y, s.Normal.Z)
	fmt.Printf("inside:           %v\n", s.Inside())
	fmt.Printf("surface velocity: (%g, %g, %g)\n", v.X, v.Y, v.Z)

	if grid > 1 && degenerate == nil {
		return probeLine(exp, p, s.Particle)
	}
	return nil
}

// probeLine samples the field along the segment from p to the centre of
// particle id and prints the distance profile.
func probeLine(exp *experiment.Experiment, p r3.Vec, id int) error {
	part, err := exp.Registry.Get(id)
	if err != nil {
		return err
	}
	end := r3.Add(part.Center, r3.Scale(part.Radius*0.5, r3.Unit(r3.Sub(p, part.Center))))
	points := make([]r3.Vec, grid)
	for i := range points {
		t := float64(i) / float64(grid-1)
		points[i] = r3.Add(p, r3.Scale(t, r3.Sub(end, p)))
	}

	samples, err := exp.Field.QueryBatch(points, 0)
	if err != nil {
		return err
	}
	data := make([]float64, len(samples))
	for i, s := range samples {
		data[i] = s.Distance
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(fmt.Sprintf("signed distance towards particle %d", id)),
	))
	return nil
}
