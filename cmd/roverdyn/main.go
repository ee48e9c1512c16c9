package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/roverdyn/internal/config"
	"github.com/san-kum/roverdyn/internal/logging"
	"github.com/san-kum/roverdyn/internal/observability"
	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/solver"
)

var (
	// Persistent
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	logFormat  string

	// Operating point
	slope float64
	crr   float64

	// Sweeps
	points     int
	workers    int
	pngOut     string
	svgOut     string
	metricsOut string

	// Characteristic curves
	curvePoints int

	// Export
	outFile string
	matrix  bool

	force bool
)

// app is the state shared by every command once the root pre-run has loaded
// configuration and started logging and tracing.
var app struct {
	cfg      *config.Config
	log      logging.Logger
	shutdown func(context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "roverdyn",
		Short:             "rover drivetrain and terminal speed analysis",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.ShutdownWithTimeout(context.Background(), app.shutdown, app.log)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "terminal speed at one slope and Crr",
		Args:  cobra.NoArgs,
		RunE:  solveOne,
	}
	solveCmd.Flags().Float64Var(&slope, "slope", config.DefaultSlope, "terrain slope [deg]")
	solveCmd.Flags().Float64Var(&crr, "crr", config.DefaultCrr, "rolling resistance coefficient")

	massCmd := &cobra.Command{
		Use:   "mass",
		Short: "rover mass breakdown",
		Args:  cobra.NoArgs,
		RunE:  showMass,
	}

	motorCmd := &cobra.Command{
		Use:   "motor",
		Short: "motor torque and power curve",
		Args:  cobra.NoArgs,
		RunE:  showMotor,
	}
	motorCmd.Flags().IntVar(&curvePoints, "points", 20, "samples over [0, no-load speed]")

	reducerCmd := &cobra.Command{
		Use:   "reducer",
		Short: "speed reducer output curve",
		Args:  cobra.NoArgs,
		RunE:  showReducer,
	}
	reducerCmd.Flags().IntVar(&curvePoints, "points", 20, "samples over [0, no-load speed]")

	sweepCmd := &cobra.Command{
		Use:       "sweep [slope|crr|grid]",
		Short:     "sweep terminal speed over slope, Crr or both",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"slope", "crr", "grid"},
		RunE:      runSweep,
	}
	sweepCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "points per swept axis")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel solves (0 = GOMAXPROCS)")
	sweepCmd.Flags().Float64Var(&slope, "slope", config.DefaultSlope, "fixed slope for a crr sweep [deg]")
	sweepCmd.Flags().Float64Var(&crr, "crr", config.DefaultCrr, "fixed Crr for a slope sweep")
	sweepCmd.Flags().StringVar(&pngOut, "png", "", "write a PNG plot to this path")
	sweepCmd.Flags().StringVar(&svgOut, "svg", "", "write an SVG curve to this path (slope and crr only)")
	sweepCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and summary (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngOut, "png", "", "also write a PNG plot to this path")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportCSVCmd.Flags().BoolVar(&matrix, "matrix", false, "write a grid run as a slope x Crr speed matrix")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "adjust slope and Crr interactively",
		Args:  cobra.NoArgs,
		RunE:  explore,
	}
	exploreCmd.Flags().Float64Var(&slope, "slope", config.DefaultSlope, "starting slope [deg]")
	exploreCmd.Flags().Float64Var(&crr, "crr", config.DefaultCrr, "starting Crr")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the active configuration to a yaml file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(solveCmd, massCmd, motorCmd, reducerCmd, sweepCmd, listCmd, showCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, exploreCmd, presetsCmd, configCmd)
	return rootCmd
}

// setup resolves configuration (preset, then file, then flags) and starts
// logging and tracing.
func setup(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	cfg.Log = logging.FromEnv(cfg.Log)
	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") || cfg.Log.Format == "" {
		cfg.Log.Format = logFormat
	}
	cfg.Tracing = observability.TracingConfigFromEnv(cfg.Tracing)

	app.cfg = cfg
	app.log = logging.New(cfg.Log)

	shutdown, err := observability.InitTracing(cmd.Context(), cfg.Tracing, app.log)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	app.shutdown = shutdown
	return nil
}

func buildSolver() (solver.Solver, error) {
	r, p, err := app.cfg.Build()
	if err != nil {
		return solver.Solver{}, err
	}
	model, err := physics.NewModel(r, p)
	if err != nil {
		return solver.Solver{}, err
	}
	return solver.New(model, app.cfg.SolverOptions())
}

// operatingPoint returns slope and Crr, preferring explicit flags over the
// configured fixed values.
func operatingPoint(cmd *cobra.Command) (float64, float64) {
	s, c := app.cfg.Sweep.FixedSlope, app.cfg.Sweep.FixedCrr
	if cmd.Flags().Changed("slope") {
		s = slope
	}
	if cmd.Flags().Changed("crr") {
		c = crr
	}
	return s, c
}
