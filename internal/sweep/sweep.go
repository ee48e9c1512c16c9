// Package sweep evaluates terminal speed over slope and rolling resistance
// ranges, one cell per goroutine under a bounded worker limit.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/roverdyn/internal/logging"
	"github.com/san-kum/roverdyn/internal/observability"
	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/solver"
)

type Kind string

const (
	KindSlope Kind = "slope"
	KindCrr   Kind = "crr"
	KindGrid  Kind = "grid"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSlope, KindCrr, KindGrid:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown sweep kind: %s", s)
}

// Recorder receives sweep metrics. *observability.SweepCollector satisfies it.
type Recorder interface {
	ObserveSolve(outcome string)
	ObserveSweep(kind string, cells int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSolve(string)                     {}
func (nopRecorder) ObserveSweep(string, int, time.Duration) {}

type Option func(*Sweeper)

// WithWorkers bounds the number of concurrent solves. Values below one mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Sweeper) {
		if r != nil {
			s.rec = r
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Sweeper) {
		if t != nil {
			s.tracer = t
		}
	}
}

type Sweeper struct {
	solver  solver.Solver
	workers int
	log     logging.Logger
	rec     Recorder
	tracer  trace.Tracer
}

func New(s solver.Solver, opts ...Option) *Sweeper {
	sw := &Sweeper{
		solver:  s,
		workers: runtime.GOMAXPROCS(0),
		log:     logging.Noop(),
		rec:     nopRecorder{},
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

func (sw *Sweeper) Solver() solver.Solver { return sw.solver }
func (sw *Sweeper) Workers() int          { return sw.workers }

// Slope sweeps terrain angle at a fixed Crr.
func (sw *Sweeper) Slope(ctx context.Context, slopes []float64, crr float64) (*Curve, error) {
	if err := validate("sweep_slope", slopes, []float64{crr}); err != nil {
		return nil, err
	}
	out := make([]solver.Result, len(slopes))
	err := sw.run(ctx, KindSlope, len(slopes), func(i int) (float64, float64) {
		return slopes[i], crr
	}, out)
	if err != nil {
		return nil, err
	}
	return &Curve{Kind: KindSlope, Fixed: crr, Points: out}, nil
}

// Crr sweeps rolling resistance at a fixed terrain angle.
func (sw *Sweeper) Crr(ctx context.Context, crrs []float64, slope float64) (*Curve, error) {
	if err := validate("sweep_crr", []float64{slope}, crrs); err != nil {
		return nil, err
	}
	out := make([]solver.Result, len(crrs))
	err := sw.run(ctx, KindCrr, len(crrs), func(i int) (float64, float64) {
		return slope, crrs[i]
	}, out)
	if err != nil {
		return nil, err
	}
	return &Curve{Kind: KindCrr, Fixed: slope, Points: out}, nil
}

// Grid evaluates every (slope, crr) pair. Rows of the surface follow slopes.
func (sw *Sweeper) Grid(ctx context.Context, slopes, crrs []float64) (*Surface, error) {
	if err := validate("sweep_grid", slopes, crrs); err != nil {
		return nil, err
	}
	nc := len(crrs)
	out := make([]solver.Result, len(slopes)*nc)
	err := sw.run(ctx, KindGrid, len(out), func(i int) (float64, float64) {
		return slopes[i/nc], crrs[i%nc]
	}, out)
	if err != nil {
		return nil, err
	}

	cells := make([][]solver.Result, len(slopes))
	for i := range cells {
		cells[i] = out[i*nc : (i+1)*nc : (i+1)*nc]
	}
	return &Surface{
		Slopes: append([]float64(nil), slopes...),
		Crrs:   append([]float64(nil), crrs...),
		Cells:  cells,
	}, nil
}

func (sw *Sweeper) run(ctx context.Context, kind Kind, n int, cell func(int) (float64, float64), out []solver.Result) error {
	start := time.Now()
	ctx, span := sw.tracer.Start(ctx, "sweep."+string(kind), trace.WithAttributes(
		attribute.String("sweep.kind", string(kind)),
		attribute.Int("sweep.cells", n),
		attribute.Int("sweep.workers", sw.workers),
	))
	defer span.End()

	sw.log.Debug(ctx, "sweep started",
		logging.String("kind", string(kind)),
		logging.Int("cells", n),
		logging.Int("workers", sw.workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sw.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := sw.solver
			slope, crr := cell(i)
			res, err := s.Solve(slope, crr)
			if err != nil {
				sw.rec.ObserveSolve(observability.OutcomeError)
				return fmt.Errorf("cell %d (slope=%g, crr=%g): %w", i, slope, crr, err)
			}
			if res.Feasible {
				sw.rec.ObserveSolve(observability.OutcomeFeasible)
			} else {
				sw.rec.ObserveSolve(observability.OutcomeInfeasible)
			}
			out[i] = res
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sw.log.Error(ctx, "sweep failed", logging.String("kind", string(kind)), logging.Err(err))
		return err
	}

	infeasible := 0
	for _, r := range out {
		if !r.Feasible {
			infeasible++
		}
	}
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("sweep.infeasible", infeasible))
	sw.rec.ObserveSweep(string(kind), n, elapsed)
	sw.log.Info(ctx, "sweep finished",
		logging.String("kind", string(kind)),
		logging.Int("cells", n),
		logging.Int("infeasible", infeasible),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func validate(op string, slopes, crrs []float64) error {
	for _, s := range slopes {
		if err := rover.ValidateAngle(op, s); err != nil {
			return err
		}
	}
	for _, c := range crrs {
		if err := rover.ValidateCrr(op, c); err != nil {
			return err
		}
	}
	return nil
}
