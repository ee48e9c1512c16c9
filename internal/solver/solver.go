// Package solver finds the terminal speed of a rover: the motor speed at
// which net longitudinal force vanishes.
//
// The search is a plain bisection over [OmegaLow, NoLoadSpeed] with a fixed
// iteration count rather than a tolerance, so results are reproducible bit for
// bit. A bracket without a sign change is not an error: the rover has no
// equilibrium in range (for example it keeps accelerating downhill) and the
// result carries NaN speeds with Feasible set to false.
package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/rover"
)

const (
	DefaultIterations = 60
	DefaultOmegaLow   = 1e-4
	MaxIterations     = 200
)

type Options struct {
	Iterations int
	OmegaLow   float64 // rad/s, lower end of the search bracket
}

func DefaultOptions() Options {
	return Options{
		Iterations: DefaultIterations,
		OmegaLow:   DefaultOmegaLow,
	}
}

func (o Options) Validate() error {
	if o.Iterations < 1 || o.Iterations > MaxIterations {
		return fmt.Errorf("solver: iterations must be in [1, %d], got %d", MaxIterations, o.Iterations)
	}
	if math.IsNaN(o.OmegaLow) || o.OmegaLow < 0 {
		return fmt.Errorf("solver: omega_low must be >= 0, got %g", o.OmegaLow)
	}
	return nil
}

// Result is the outcome of one terminal speed search.
type Result struct {
	Slope    float64 // deg
	Crr      float64
	Omega    float64 // rad/s, NaN when infeasible
	Speed    float64 // m/s, NaN when infeasible
	Residual float64 // N, net force at Omega
	Feasible bool
}

func infeasible(slope, crr float64) Result {
	nan := math.NaN()
	return Result{Slope: slope, Crr: crr, Omega: nan, Speed: nan, Residual: nan}
}

// Bisect runs exactly iterations halvings of [lo, hi] and returns the midpoint
// of the final bracket. ok is false when f has no sign change across the
// initial bracket or is not finite at either end. When f(lo)·f(mid) is zero
// the lower bound moves.
func Bisect(f func(float64) (float64, error), lo, hi float64, iterations int) (root float64, ok bool, err error) {
	fLo, err := f(lo)
	if err != nil {
		return math.NaN(), false, err
	}
	fHi, err := f(hi)
	if err != nil {
		return math.NaN(), false, err
	}
	if !isFinite(fLo) || !isFinite(fHi) || fLo*fHi > 0 {
		return math.NaN(), false, nil
	}

	for i := 0; i < iterations; i++ {
		mid := 0.5 * (lo + hi)
		fMid, err := f(mid)
		if err != nil {
			return math.NaN(), false, err
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}

	return 0.5 * (lo + hi), true, nil
}

// Solver is a stateless terminal speed search over a compiled model. It is a
// plain value; copies may be used concurrently.
type Solver struct {
	model physics.Model
	opts  Options
}

func New(model physics.Model, opts Options) (Solver, error) {
	if err := opts.Validate(); err != nil {
		return Solver{}, err
	}
	if opts.OmegaLow >= model.NoLoadSpeed() {
		return Solver{}, fmt.Errorf("solver: omega_low %g must be below no-load speed %g", opts.OmegaLow, model.NoLoadSpeed())
	}
	return Solver{model: model, opts: opts}, nil
}

func (s Solver) Model() physics.Model { return s.model }
func (s Solver) Options() Options     { return s.opts }

// Solve finds the terminal speed for one terrain slope (deg) and rolling
// resistance coefficient.
func (s Solver) Solve(slope, crr float64) (Result, error) {
	if err := rover.ValidateCrr("terminal_speed", crr); err != nil {
		return Result{}, err
	}
	if err := rover.ValidateAngle("terminal_speed", slope); err != nil {
		return Result{}, err
	}

	f := func(omega float64) (float64, error) {
		return s.model.NetForce(omega, slope, crr)
	}
	omega, ok, err := Bisect(f, s.opts.OmegaLow, s.model.NoLoadSpeed(), s.opts.Iterations)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return infeasible(slope, crr), nil
	}

	residual, err := f(omega)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Slope:    slope,
		Crr:      crr,
		Omega:    omega,
		Speed:    s.model.GroundSpeed(omega),
		Residual: residual,
		Feasible: true,
	}, nil
}

// TerminalSpeed builds a one-off Solver and runs a single search.
func TerminalSpeed(r rover.Rover, p rover.Planet, slope, crr float64, opts Options) (Result, error) {
	model, err := physics.NewModel(r, p)
	if err != nil {
		return Result{}, err
	}
	s, err := New(model, opts)
	if err != nil {
		return Result{}, err
	}
	return s.Solve(slope, crr)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
