package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/sweep"
)

// CurvePlot draws the feasible part of a 1-D sweep. asciigraph has no x axis,
// so the swept range and the number of dropped cells go in the caption.
func CurvePlot(c *sweep.Curve, width, height int) string {
	x, v := c.X(), c.Speeds()
	ys := make([]float64, 0, len(v))
	for _, s := range v {
		if !math.IsNaN(s) {
			ys = append(ys, s)
		}
	}

	axis, unit := "slope", "deg"
	if c.Kind == sweep.KindCrr {
		axis, unit = "Crr", "-"
	}
	if len(ys) == 0 {
		return StatusInfeasible.Render(fmt.Sprintf("no feasible %s in sweep", axis))
	}

	caption := fmt.Sprintf("speed [m/s] vs %s %g..%g [%s]", axis, x[0], x[len(x)-1], unit)
	if dropped := len(v) - len(ys); dropped > 0 {
		caption += fmt.Sprintf(", %d infeasible not shown", dropped)
	}
	return SeriesPlot(ys, caption, width, height)
}

// SeriesPlot wraps asciigraph.Plot with the options used across the CLI.
func SeriesPlot(ys []float64, caption string, width, height int) string {
	if len(ys) == 0 {
		return ""
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(caption),
		asciigraph.Precision(3),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(ys, opts...)
}

// MotorPlot draws torque and power against shaft speed on one chart.
func MotorPlot(points []physics.CurvePoint, width, height int) string {
	torque := make([]float64, len(points))
	power := make([]float64, len(points))
	for i, p := range points {
		torque[i] = p.Torque
		power[i] = p.Power
	}
	return asciigraph.PlotMany([][]float64{torque, power},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.Caption("motor torque [N·m] (cyan) and power [W] (yellow) vs shaft speed"),
	)
}

// ReducerPlot draws reducer output torque against output speed.
func ReducerPlot(points []physics.ReducerPoint, width, height int) string {
	torque := make([]float64, len(points))
	for i, p := range points {
		torque[i] = p.OutputTorque
	}
	caption := "reducer output torque [N·m] vs output speed"
	if n := len(points); n > 0 {
		caption = fmt.Sprintf("%s 0..%.3g rad/s", caption, points[n-1].OutputSpeed)
	}
	return SeriesPlot(torque, caption, width, height)
}
