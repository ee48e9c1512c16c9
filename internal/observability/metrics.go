// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for sweeps.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeFeasible   = "feasible"
	OutcomeInfeasible = "infeasible"
	OutcomeError      = "error"
)

// SweepCollector bundles the sweep metrics. A nil collector is valid and
// records nothing.
type SweepCollector struct {
	gatherer prometheus.Gatherer

	Solves        *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	SweepCells    *prometheus.GaugeVec
}

// NewSweepCollector registers sweep metrics against reg, defaulting to the
// global registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func NewSweepCollector(reg prometheus.Registerer) (*SweepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roverdyn_solves_total",
		Help: "Terminal speed solves, labeled by outcome (feasible, infeasible, error).",
	}, []string{"outcome"}), "roverdyn_solves_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roverdyn_sweep_duration_seconds",
		Help:    "Wall time of a complete sweep in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"}), "roverdyn_sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	cells, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roverdyn_sweep_cells",
		Help: "Number of cells evaluated by the most recent sweep of each kind.",
	}, []string{"kind"}), "roverdyn_sweep_cells")
	if err != nil {
		return nil, err
	}

	return &SweepCollector{
		gatherer:      gatherer,
		Solves:        solves,
		SweepDuration: durations,
		SweepCells:    cells,
	}, nil
}

func (c *SweepCollector) ObserveSolve(outcome string) {
	if c == nil || c.Solves == nil {
		return
	}
	c.Solves.WithLabelValues(outcome).Inc()
}

func (c *SweepCollector) ObserveSweep(kind string, cells int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.SweepDuration != nil {
		c.SweepDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
	if c.SweepCells != nil {
		c.SweepCells.WithLabelValues(kind).Set(float64(cells))
	}
}

// WriteTextfile dumps the current metric values in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (c *SweepCollector) WriteTextfile(path string) error {
	if c == nil {
		return fmt.Errorf("observability: no collector")
	}
	return prometheus.WriteToTextfile(path, c.gatherer)
}

func (c *SweepCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
