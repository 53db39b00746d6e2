package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes breaker metrics in Prometheus exposition format,
// alongside the JSON snapshot endpoint.
type Exporter struct {
	registry *prometheus.Registry

	breakerState *prometheus.GaugeVec
	callsTotal   *prometheus.CounterVec
	stateChanges *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

func NewExporter() (*Exporter, error) {
	e := &Exporter{
		registry: prometheus.NewRegistry(),

		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuitguard_breaker_state",
				Help: "Current breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"breaker"},
		),
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuitguard_calls_total",
				Help: "Total number of guarded calls by outcome",
			},
			[]string{"breaker", "outcome"},
		),
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuitguard_state_changes_total",
				Help: "Total number of breaker state transitions",
			},
			[]string{"breaker", "state"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circuitguard_call_duration_seconds",
				Help:    "Guarded call duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"breaker"},
		),
	}

	collectors := []prometheus.Collector{
		e.breakerState,
		e.callsTotal,
		e.stateChanges,
		e.callDuration,
	}
	for _, c := range collectors {
		if err := e.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Observe folds a breaker event into the Prometheus metrics.
func (e *Exporter) Observe(event Event) {
	switch event.Type {
	case EventCallAllowed:
		e.callsTotal.WithLabelValues(event.Breaker, "allowed").Inc()

	case EventCallRejected:
		e.callsTotal.WithLabelValues(event.Breaker, "rejected").Inc()

	case EventCallSucceeded:
		e.callsTotal.WithLabelValues(event.Breaker, "succeeded").Inc()
		e.callDuration.WithLabelValues(event.Breaker).Observe(event.Duration.Seconds())

	case EventCallFailed:
		e.callsTotal.WithLabelValues(event.Breaker, "failed").Inc()
		e.callDuration.WithLabelValues(event.Breaker).Observe(event.Duration.Seconds())

	case EventStateChanged:
		e.breakerState.WithLabelValues(event.Breaker).Set(float64(event.State))
		e.stateChanges.WithLabelValues(event.Breaker, event.State.String()).Inc()
	}
}

// Handler serves the exporter's registry in exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (e *Exporter) Gather() prometheus.Gatherer {
	return e.registry
}
