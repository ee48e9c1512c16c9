package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/roverdyn/internal/sweep"
)

var ErrNoData = errors.New("export: nothing to plot")

type PlotOptions struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
	DPI    int
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 8 * vg.Inch, Height: 6 * vg.Inch, DPI: 96}
}

func newPlot(opts PlotOptions) *plot.Plot {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.Add(plotter.NewGrid())
	return p
}

func writePNG(w io.Writer, p *plot.Plot, opts PlotOptions) error {
	c := vgimg.NewWith(
		vgimg.UseWH(opts.Width, opts.Height),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// segments splits a curve at non-finite points.
func segments(xs, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := 0; i < min(len(xs), len(ys)); i++ {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// LinePNG renders y against x. Gaps appear where y is NaN.
func LinePNG(w io.Writer, xs, ys []float64, opts PlotOptions) error {
	segs := segments(xs, ys)
	if len(segs) == 0 {
		return ErrNoData
	}

	p := newPlot(opts)
	for _, seg := range segs {
		if len(seg) == 1 {
			sc, err := plotter.NewScatter(seg)
			if err != nil {
				return err
			}
			p.Add(sc)
			continue
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
		p.Add(line)
	}
	return writePNG(w, p, opts)
}

// CurvePNG renders a 1-D sweep with axis labels for its kind.
func CurvePNG(w io.Writer, c *sweep.Curve, opts PlotOptions) error {
	if opts.XLabel == "" {
		opts.XLabel = "Terrain slope [deg]"
		if c.Kind == sweep.KindCrr {
			opts.XLabel = "Rolling resistance coefficient Crr [-]"
		}
	}
	if opts.YLabel == "" {
		opts.YLabel = "Maximum rover speed [m/s]"
	}
	if opts.Title == "" {
		if c.Kind == sweep.KindCrr {
			opts.Title = fmt.Sprintf("Terminal speed vs Crr (slope %g deg)", c.Fixed)
		} else {
			opts.Title = fmt.Sprintf("Terminal speed vs slope (Crr %g)", c.Fixed)
		}
	}
	return LinePNG(w, c.X(), c.Speeds(), opts)
}

// speedGrid adapts a Surface to plotter.GridXYZ with Crr along X and slope
// along Y.
type speedGrid struct {
	s *sweep.Surface
}

func (g speedGrid) Dims() (c, r int)   { return len(g.s.Crrs), len(g.s.Slopes) }
func (g speedGrid) Z(c, r int) float64 { return g.s.Cells[r][c].Speed }
func (g speedGrid) X(c int) float64    { return g.s.Crrs[c] }
func (g speedGrid) Y(r int) float64    { return g.s.Slopes[r] }

func (g speedGrid) Min() float64 { return g.s.Stats().MinSpeed }
func (g speedGrid) Max() float64 { return g.s.Stats().MaxSpeed }

// HeatmapPNG renders a grid sweep as a heat map of terminal speed. Infeasible
// cells are drawn grey.
func HeatmapPNG(w io.Writer, s *sweep.Surface, opts PlotOptions) error {
	if len(s.Slopes) < 2 || len(s.Crrs) < 2 {
		return fmt.Errorf("%w: heat map needs at least 2x2 cells", ErrNoData)
	}
	st := s.Stats()
	if st.Feasible == 0 {
		return fmt.Errorf("%w: no feasible cells", ErrNoData)
	}

	if opts.Title == "" {
		opts.Title = "Maximum rover speed [m/s]"
	}
	if opts.XLabel == "" {
		opts.XLabel = "Crr [-]"
	}
	if opts.YLabel == "" {
		opts.YLabel = "Terrain slope [deg]"
	}

	hm := plotter.NewHeatMap(speedGrid{s: s}, palette.Heat(16, 1))
	hm.NaN = color.Gray{Y: 0x50}
	if st.MinSpeed == st.MaxSpeed {
		hm.Min, hm.Max = st.MinSpeed-0.5, st.MaxSpeed+0.5
	}

	p := newPlot(opts)
	p.Add(hm)
	p.X.Min, p.X.Max = axisBounds(s.Crrs)
	p.Y.Min, p.Y.Max = axisBounds(s.Slopes)
	return writePNG(w, p, opts)
}

// axisBounds pads the first and last values by half a cell.
func axisBounds(v []float64) (float64, float64) {
	lo, hi := v[0], v[len(v)-1]
	half := math.Abs(v[1]-v[0]) / 2
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo - half, hi + half
}
