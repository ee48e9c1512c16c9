package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/roverdyn/internal/config"
	"github.com/san-kum/roverdyn/internal/export"
	"github.com/san-kum/roverdyn/internal/logging"
	"github.com/san-kum/roverdyn/internal/observability"
	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/storage"
	"github.com/san-kum/roverdyn/internal/sweep"
	"github.com/san-kum/roverdyn/internal/viz"
)

const (
	plotWidth  = 60
	plotHeight = 15
)

func solveOne(cmd *cobra.Command, args []string) error {
	s, err := buildSolver()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}
	slopeDeg, c := operatingPoint(cmd)

	res, err := s.Solve(slopeDeg, c)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	app.log.Debug(cmd.Context(), "solved",
		logging.Float("slope", slopeDeg),
		logging.Float("crr", c),
		logging.Bool("feasible", res.Feasible),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.Metric("planet", fmt.Sprintf("%s (g = %g m/s²)", app.cfg.Planet.Name, app.cfg.Planet.G)))
	fmt.Fprintln(out, viz.Metric("slope", fmt.Sprintf("%g deg", slopeDeg)))
	fmt.Fprintln(out, viz.Metric("Crr", fmt.Sprintf("%g", c)))
	if !res.Feasible {
		fmt.Fprintln(out, viz.StatusInfeasible.Render("no terminal speed in [omega_low, no-load speed]"))
		return nil
	}
	fmt.Fprintln(out, viz.Metric("speed", fmt.Sprintf("%.6f m/s", res.Speed)))
	fmt.Fprintln(out, viz.Metric("motor omega", fmt.Sprintf("%.6f rad/s", res.Omega)))
	fmt.Fprintln(out, viz.Metric("residual", fmt.Sprintf("%.3e N", res.Residual)))
	fmt.Fprintln(out, viz.Metric("free rolling", fmt.Sprintf("%.6f m/s", s.Model().FreeRollingSpeed())))
	return nil
}

func showMass(cmd *cobra.Command, args []string) error {
	r, _, err := app.cfg.Build()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}
	b, err := rover.Breakdown(r)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), viz.MassTable(b))
	return nil
}

func showMotor(cmd *cobra.Command, args []string) error {
	r, _, err := app.cfg.Build()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}
	pts, err := physics.MotorCurve(r.WheelAssembly.Motor, curvePoints)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OMEGA [rad/s]\tTORQUE [N·m]\tPOWER [W]")
	for _, p := range pts {
		fmt.Fprintf(w, "%.4f\t%.3f\t%.3f\n", p.Omega, p.Torque, p.Power)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, viz.MotorPlot(pts, plotWidth, plotHeight))
	return nil
}

func showReducer(cmd *cobra.Command, args []string) error {
	r, _, err := app.cfg.Build()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}
	pts, err := physics.ReducerCurve(r.WheelAssembly, curvePoints)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MOTOR [rad/s]\tOUTPUT [rad/s]\tTORQUE [N·m]\tPOWER [W]")
	for _, p := range pts {
		fmt.Fprintf(w, "%.4f\t%.4f\t%.3f\t%.3f\n", p.MotorSpeed, p.OutputSpeed, p.OutputTorque, p.Power)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, viz.ReducerPlot(pts, plotWidth, plotHeight))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	kind, err := sweep.ParseKind(args[0])
	if err != nil {
		return err
	}
	s, err := buildSolver()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}

	sc := app.cfg.Sweep
	flags := cmd.Flags()
	if flags.Changed("points") {
		sc.Slope.Points, sc.Crr.Points = points, points
	}
	if flags.Changed("workers") {
		sc.Workers = workers
	}
	fixedSlope, fixedCrr := operatingPoint(cmd)

	collector, err := observability.NewSweepCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	ctx, log := logging.WithRunLogger(cmd.Context(), app.log)
	sw := sweep.New(s,
		sweep.WithWorkers(sc.Workers),
		sweep.WithLogger(log),
		sweep.WithRecorder(collector),
		sweep.WithTracer(observability.Tracer()),
	)

	st := storage.New(app.cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Preset:     preset,
		Planet:     app.cfg.Planet.Name,
		Gravity:    app.cfg.Planet.G,
		Mass:       s.Model().Mass(),
		Iterations: s.Options().Iterations,
		OmegaLow:   s.Options().OmegaLow,
	}

	out := cmd.OutOrStdout()
	start := time.Now()
	var runID string
	var stats sweep.Stats

	switch kind {
	case sweep.KindGrid:
		slopes, err := sc.Slope.Values()
		if err != nil {
			return err
		}
		crrs, err := sc.Crr.Values()
		if err != nil {
			return err
		}
		surf, err := sw.Grid(ctx, slopes, crrs)
		if err != nil {
			return fmt.Errorf("grid sweep: %w", err)
		}
		if runID, err = st.SaveSurface(meta, surf); err != nil {
			return err
		}
		stats = surf.Stats()
		fmt.Fprintln(out, viz.SurfaceTable(surf))
		if pngOut != "" {
			if err := writeFile(pngOut, func(w io.Writer) error {
				return export.HeatmapPNG(w, surf, export.DefaultPlotOptions())
			}); err != nil {
				return err
			}
		}
		if svgOut != "" {
			log.Warn(ctx, "svg output is only available for 1-D sweeps")
		}

	default:
		var curve *sweep.Curve
		if kind == sweep.KindCrr {
			crrs, err := sc.Crr.Values()
			if err != nil {
				return err
			}
			curve, err = sw.Crr(ctx, crrs, fixedSlope)
			if err != nil {
				return fmt.Errorf("crr sweep: %w", err)
			}
		} else {
			slopes, err := sc.Slope.Values()
			if err != nil {
				return err
			}
			curve, err = sw.Slope(ctx, slopes, fixedCrr)
			if err != nil {
				return fmt.Errorf("slope sweep: %w", err)
			}
		}
		if runID, err = st.SaveCurve(meta, curve); err != nil {
			return err
		}
		stats = curve.Stats()
		fmt.Fprintln(out, viz.CurvePlot(curve, plotWidth, plotHeight))
		if pngOut != "" {
			if err := writeFile(pngOut, func(w io.Writer) error {
				return export.CurvePNG(w, curve, export.DefaultPlotOptions())
			}); err != nil {
				return err
			}
		}
		if svgOut != "" {
			svg := export.CurveToSVG(curve.X(), curve.Speeds(), 800, 400, "#00ccff")
			if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
				return err
			}
		}
	}

	if metricsOut != "" {
		if err := collector.WriteTextfile(metricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Fprintln(out)
	printStats(out, stats)
	fmt.Fprintf(out, "completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s\n", runID)
	return nil
}

func printStats(out io.Writer, st sweep.Stats) {
	fmt.Fprintln(out, viz.Metric("cells", fmt.Sprintf("%d", st.Cells)))
	fmt.Fprintln(out, viz.Metric("feasible", fmt.Sprintf("%d", st.Feasible)))
	fmt.Fprintln(out, viz.Metric("infeasible", fmt.Sprintf("%d", st.Infeasible)))
	if st.Feasible > 0 {
		fmt.Fprintln(out, viz.Metric("speed range", fmt.Sprintf("%.4f .. %.4f m/s", st.MinSpeed, st.MaxSpeed)))
		fmt.Fprintln(out, viz.Metric("mean speed", fmt.Sprintf("%.4f m/s", st.MeanSpeed)))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(app.cfg.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tPLANET\tCELLS\tFEASIBLE\tPRESET")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Planet,
			run.Summary.Cells,
			run.Summary.Feasible,
			run.Preset,
		)
	}
	return w.Flush()
}

// loadRun resolves an optional run id argument, defaulting to the newest run.
func loadRun(args []string) (*storage.Run, error) {
	st := storage.New(app.cfg.DataDir)
	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		id, err := st.Latest()
		if err != nil {
			return nil, err
		}
		runID = id
	}
	return st.LoadRun(runID)
}

func showRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args)
	if err != nil {
		return err
	}
	m := run.Meta
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.HeaderStyle.Render("run "+m.ID))
	fmt.Fprintln(out, viz.Metric("kind", string(m.Kind)))
	fmt.Fprintln(out, viz.Metric("time", m.Timestamp.Format(time.RFC3339)))
	if m.Preset != "" {
		fmt.Fprintln(out, viz.Metric("preset", m.Preset))
	}
	fmt.Fprintln(out, viz.Metric("planet", fmt.Sprintf("%s (g = %g m/s²)", m.Planet, m.Gravity)))
	fmt.Fprintln(out, viz.Metric("mass", fmt.Sprintf("%g kg", m.Mass)))
	fmt.Fprintln(out, viz.Metric("bisection", fmt.Sprintf("%d iterations from %g rad/s", m.Iterations, m.OmegaLow)))
	fmt.Fprintln(out, viz.Metric("slopes", axisSummary(m.Slopes, "deg")))
	fmt.Fprintln(out, viz.Metric("Crr", axisSummary(m.Crrs, "")))

	var stats sweep.Stats
	if m.Kind == sweep.KindGrid {
		surf, err := run.Surface()
		if err != nil {
			return err
		}
		stats = surf.Stats()
	} else {
		c, err := run.Curve()
		if err != nil {
			return err
		}
		stats = c.Stats()
	}
	fmt.Fprintln(out)
	printStats(out, stats)
	return nil
}

func axisSummary(v []float64, unit string) string {
	if len(v) == 0 {
		return "-"
	}
	if len(v) == 1 {
		return fmt.Sprintf("%g %s", v[0], unit)
	}
	return fmt.Sprintf("%g .. %g %s (%d points)", v[0], v[len(v)-1], unit, len(v))
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", run.Meta.ID)
	fmt.Fprintf(out, "kind: %s\n\n", run.Meta.Kind)

	if run.Meta.Kind == sweep.KindGrid {
		surf, err := run.Surface()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, viz.SurfaceTable(surf))
		if pngOut != "" {
			return writeFile(pngOut, func(w io.Writer) error {
				return export.HeatmapPNG(w, surf, export.DefaultPlotOptions())
			})
		}
		return nil
	}

	c, err := run.Curve()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, viz.CurvePlot(c, plotWidth, plotHeight))
	if pngOut != "" {
		return writeFile(pngOut, func(w io.Writer) error {
			return export.CurvePNG(w, c, export.DefaultPlotOptions())
		})
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args)
	if err != nil {
		return err
	}
	return writeOutput(cmd, func(w io.Writer) error {
		if matrix {
			if run.Meta.Kind != sweep.KindGrid {
				return fmt.Errorf("--matrix needs a grid run, %s is a %s sweep", run.Meta.ID, run.Meta.Kind)
			}
			surf, err := run.Surface()
			if err != nil {
				return err
			}
			return export.WriteSurfaceCSV(w, surf)
		}
		return export.WriteCSV(w, run)
	})
}

func exportJSON(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args)
	if err != nil {
		return err
	}
	return writeOutput(cmd, func(w io.Writer) error {
		return export.WriteJSON(w, run)
	})
}

func explore(cmd *cobra.Command, args []string) error {
	s, err := buildSolver()
	if err != nil {
		return fmt.Errorf("build rover: %w", err)
	}
	slopeDeg, c := operatingPoint(cmd)
	if err := rover.ValidateAngle("explore", slopeDeg); err != nil {
		return err
	}
	if err := rover.ValidateCrr("explore", c); err != nil {
		return err
	}
	return viz.RunExplorer(s, slopeDeg, c)
}

func listPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPLANET\tG\tMASS [kg]\tFIXED CRR")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		r, _, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		mass, err := rover.TotalMass(r)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\n", name, cfg.Planet.Name, cfg.Planet.G, mass, cfg.Sweep.FixedCrr)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "roverdyn.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := config.Save(path, app.cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

// writeOutput sends export output to --output or the command's stdout.
func writeOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	if outFile == "" {
		return write(cmd.OutOrStdout())
	}
	return writeFile(outFile, write)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
