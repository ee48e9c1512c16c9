package sweep

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/roverdyn/internal/solver"
)

// Curve is a 1-D sweep. Fixed holds the parameter that was held constant:
// Crr for a slope sweep, slope for a Crr sweep.
type Curve struct {
	Kind   Kind
	Fixed  float64
	Points []solver.Result
}

// X returns the swept parameter for each point.
func (c *Curve) X() []float64 {
	return lo.Map(c.Points, func(r solver.Result, _ int) float64 {
		if c.Kind == KindCrr {
			return r.Crr
		}
		return r.Slope
	})
}

func (c *Curve) Speeds() []float64 {
	return lo.Map(c.Points, func(r solver.Result, _ int) float64 { return r.Speed })
}

func (c *Curve) Stats() Stats { return summarize(c.Points) }

// Surface is a 2-D sweep indexed [slope][crr].
type Surface struct {
	Slopes []float64
	Crrs   []float64
	Cells  [][]solver.Result
}

func (s *Surface) At(i, j int) solver.Result { return s.Cells[i][j] }

// Speeds returns the speed matrix, NaN where no equilibrium exists.
func (s *Surface) Speeds() [][]float64 {
	return lo.Map(s.Cells, func(row []solver.Result, _ int) []float64 {
		return lo.Map(row, func(r solver.Result, _ int) float64 { return r.Speed })
	})
}

// Results flattens the surface in row-major order.
func (s *Surface) Results() []solver.Result {
	return lo.Flatten(s.Cells)
}

func (s *Surface) Stats() Stats { return summarize(s.Results()) }

type Stats struct {
	Cells      int
	Feasible   int
	Infeasible int
	MinSpeed   float64 // NaN when no cell is feasible
	MaxSpeed   float64
	MeanSpeed  float64
}

func summarize(results []solver.Result) Stats {
	speeds := lo.FilterMap(results, func(r solver.Result, _ int) (float64, bool) {
		return r.Speed, r.Feasible
	})
	st := Stats{
		Cells:      len(results),
		Feasible:   len(speeds),
		Infeasible: len(results) - len(speeds),
		MinSpeed:   math.NaN(),
		MaxSpeed:   math.NaN(),
		MeanSpeed:  math.NaN(),
	}
	if len(speeds) > 0 {
		st.MinSpeed = floats.Min(speeds)
		st.MaxSpeed = floats.Max(speeds)
		st.MeanSpeed = floats.Sum(speeds) / float64(len(speeds))
	}
	return st
}

// Linspace returns n evenly spaced values over [start, end], both included.
func Linspace(start, end float64, n int) ([]float64, error) {
	switch {
	case n < 1:
		return nil, fmt.Errorf("linspace: need at least one point, got %d", n)
	case n == 1:
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, n), start, end), nil
}
