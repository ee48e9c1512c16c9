package sweep

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/san-kum/roverdyn/internal/physics"
	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/solver"
)

func testSolver(t testing.TB) solver.Solver {
	t.Helper()
	r := rover.Rover{
		WheelAssembly: rover.WheelAssembly{
			Motor:   rover.Motor{StallTorque: 170, NoLoadSpeed: 3.80, Mass: 5.0},
			Reducer: rover.SpeedReducer{Type: "reverted", PinionDiameter: 0.04, GearDiameter: 0.07, Mass: 1.5},
			Wheel:   rover.Wheel{Radius: 0.30, Mass: 1.0},
		},
		ChassisMass:        659,
		SciencePayloadMass: 75,
		PowerSubsystemMass: 90,
	}
	model, err := physics.NewModel(r, rover.Planet{Name: "mars", Gravity: 3.72})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	s, err := solver.New(model, solver.DefaultOptions())
	if err != nil {
		t.Fatalf("solver.New: %v", err)
	}
	return s
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	sweeps   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, sweeps: map[string]int{}}
}

func (c *countingRecorder) ObserveSolve(outcome string) {
	c.mu.Lock()
	c.outcomes[outcome]++
	c.mu.Unlock()
}

func (c *countingRecorder) ObserveSweep(kind string, cells int, _ time.Duration) {
	c.mu.Lock()
	c.sweeps[kind] = cells
	c.mu.Unlock()
}

func sameResult(a, b solver.Result) bool {
	eq := func(x, y float64) bool { return x == y || (math.IsNaN(x) && math.IsNaN(y)) }
	return a.Feasible == b.Feasible && eq(a.Slope, b.Slope) && eq(a.Crr, b.Crr) &&
		eq(a.Omega, b.Omega) && eq(a.Speed, b.Speed)
}

func TestGridMatchesSequentialSolve(t *testing.T) {
	s := testSolver(t)
	slopes := []float64{-15, -5, 0, 10, 30}
	crrs := []float64{0.01, 0.1, 0.3}

	surf, err := New(s, WithWorkers(4)).Grid(context.Background(), slopes, crrs)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if len(surf.Cells) != len(slopes) {
		t.Fatalf("rows = %d, want %d", len(surf.Cells), len(slopes))
	}
	for i, slope := range slopes {
		if len(surf.Cells[i]) != len(crrs) {
			t.Fatalf("row %d has %d cells, want %d", i, len(surf.Cells[i]), len(crrs))
		}
		for j, crr := range crrs {
			want, err := s.Solve(slope, crr)
			if err != nil {
				t.Fatal(err)
			}
			if got := surf.At(i, j); !sameResult(got, want) {
				t.Errorf("cell [%d][%d] = %+v, want %+v", i, j, got, want)
			}
		}
	}
}

func TestGridIndependentOfWorkerCount(t *testing.T) {
	s := testSolver(t)
	slopes, _ := Linspace(-20, 40, 13)
	crrs, _ := Linspace(0.01, 0.4, 9)

	one, err := New(s, WithWorkers(1)).Grid(context.Background(), slopes, crrs)
	if err != nil {
		t.Fatal(err)
	}
	many, err := New(s, WithWorkers(16)).Grid(context.Background(), slopes, crrs)
	if err != nil {
		t.Fatal(err)
	}
	a, b := one.Results(), many.Results()
	for i := range a {
		if !sameResult(a[i], b[i]) {
			t.Fatalf("cell %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSlopeCurve(t *testing.T) {
	slopes := []float64{0, 5, 10, 20}
	c, err := New(testSolver(t)).Slope(context.Background(), slopes, 0.1)
	if err != nil {
		t.Fatalf("Slope: %v", err)
	}
	if c.Kind != KindSlope || c.Fixed != 0.1 {
		t.Errorf("curve header = %v/%v", c.Kind, c.Fixed)
	}
	x := c.X()
	for i := range slopes {
		if x[i] != slopes[i] {
			t.Errorf("X[%d] = %v, want %v", i, x[i], slopes[i])
		}
	}
	v := c.Speeds()
	for i := 1; i < len(v); i++ {
		if !(v[i] < v[i-1]) {
			t.Errorf("speed should fall as slope rises: %v", v)
		}
	}
}

func TestCrrCurve(t *testing.T) {
	crrs := []float64{0.05, 0.1, 0.2, 0.4}
	c, err := New(testSolver(t)).Crr(context.Background(), crrs, 5)
	if err != nil {
		t.Fatalf("Crr: %v", err)
	}
	if c.Kind != KindCrr || c.Fixed != 5 {
		t.Errorf("curve header = %v/%v", c.Kind, c.Fixed)
	}
	x := c.X()
	for i := range crrs {
		if x[i] != crrs[i] {
			t.Errorf("X[%d] = %v, want %v", i, x[i], crrs[i])
		}
	}
}

func TestInfeasibleCellsAreData(t *testing.T) {
	rec := newCountingRecorder()
	c, err := New(testSolver(t), WithRecorder(rec)).Slope(context.Background(), []float64{-15, 0}, 0.01)
	if err != nil {
		t.Fatalf("Slope: %v", err)
	}
	if c.Points[0].Feasible || !math.IsNaN(c.Points[0].Speed) {
		t.Errorf("downhill cell = %+v, want NaN sentinel", c.Points[0])
	}
	if !c.Points[1].Feasible {
		t.Errorf("flat cell should be feasible: %+v", c.Points[1])
	}

	st := c.Stats()
	if st.Cells != 2 || st.Feasible != 1 || st.Infeasible != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.MinSpeed != c.Points[1].Speed || st.MaxSpeed != c.Points[1].Speed {
		t.Errorf("stats should ignore NaN cells: %+v", st)
	}
	if rec.outcomes["feasible"] != 1 || rec.outcomes["infeasible"] != 1 {
		t.Errorf("recorded outcomes = %v", rec.outcomes)
	}
	if rec.sweeps["slope"] != 2 {
		t.Errorf("recorded sweeps = %v", rec.sweeps)
	}
}

func TestDomainErrorAbortsSweep(t *testing.T) {
	sw := New(testSolver(t))
	tests := []struct {
		name   string
		slopes []float64
		crrs   []float64
		want   error
	}{
		{"angle out of range", []float64{0, 80}, []float64{0.1}, rover.ErrAngleRange},
		{"zero crr", []float64{0}, []float64{0.1, 0}, rover.ErrNonPositiveCrr},
		{"nan angle", []float64{math.NaN()}, []float64{0.1}, rover.ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surf, err := sw.Grid(context.Background(), tt.slopes, tt.crrs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if surf != nil {
				t.Error("expected nil surface on error")
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slopes, _ := Linspace(0, 30, 50)
	_, err := New(testSolver(t), WithWorkers(2)).Slope(ctx, slopes, 0.1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSweepSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	_, err := New(testSolver(t), WithTracer(tp.Tracer("test"))).
		Grid(context.Background(), []float64{-15, 0}, []float64{0.01, 0.3})
	if err != nil {
		t.Fatal(err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "sweep.grid" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	attrs := map[string]int64{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	if attrs["sweep.cells"] != 4 || attrs["sweep.infeasible"] != 1 {
		t.Errorf("span attributes = %v", attrs)
	}
}

func TestLinspace(t *testing.T) {
	got, err := Linspace(-5, 5, 11)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 11 || got[0] != -5 || got[10] != 5 || math.Abs(got[5]) > 1e-12 {
		t.Errorf("Linspace(-5, 5, 11) = %v", got)
	}

	one, _ := Linspace(3, 9, 1)
	if len(one) != 1 || one[0] != 3 {
		t.Errorf("single point = %v", one)
	}

	if _, err := Linspace(0, 1, 0); err == nil {
		t.Error("expected error for n = 0")
	}
}

func TestSurfaceStatsAllInfeasible(t *testing.T) {
	surf, err := New(testSolver(t)).Grid(context.Background(), []float64{-20, -15}, []float64{0.01})
	if err != nil {
		t.Fatal(err)
	}
	st := surf.Stats()
	if st.Feasible != 0 || !math.IsNaN(st.MinSpeed) || !math.IsNaN(st.MeanSpeed) {
		t.Errorf("stats = %+v", st)
	}
	for _, row := range surf.Speeds() {
		for _, v := range row {
			if !math.IsNaN(v) {
				t.Errorf("expected NaN speeds, got %v", v)
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []string{"slope", "crr", "grid"} {
		if _, err := ParseKind(k); err != nil {
			t.Errorf("ParseKind(%q): %v", k, err)
		}
	}
	if _, err := ParseKind("diagonal"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func BenchmarkGrid(b *testing.B) {
	sw := New(testSolver(b))
	slopes, _ := Linspace(-10, 40, 50)
	crrs, _ := Linspace(0.02, 0.4, 40)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sw.Grid(context.Background(), slopes, crrs)
	}
}
