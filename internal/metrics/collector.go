package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
)

type EventType string

const (
	EventCallAllowed   EventType = "call_allowed"
	EventCallRejected  EventType = "call_rejected"
	EventCallSucceeded EventType = "call_succeeded"
	EventCallFailed    EventType = "call_failed"
	EventStateChanged  EventType = "state_changed"
)

type Event struct {
	Type       EventType
	Timestamp  time.Time
	Breaker    string
	State      circuitbreaker.State
	Duration   time.Duration
	StatusCode int
}

// Collector consumes breaker events off a buffered channel and folds them
// into the JSON snapshot metrics and, when configured, the Prometheus
// exporter. Producers send non-blocking; a full buffer drops events
// rather than slowing the call path.
type Collector struct {
	eventCh  chan Event
	metrics  *Metrics
	exporter *Exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger, exporter *Exporter) *Collector {
	return &Collector{
		eventCh:  make(chan Event, bufferSize),
		metrics:  NewMetrics(),
		exporter: exporter,
		logger:   logger,
	}
}

// EventChannel returns the channel producers send events to.
func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit sends an event without blocking. Events are dropped when the
// buffer is full.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventCallAllowed:
		c.metrics.IncrementAllowed(event.Breaker)

	case EventCallRejected:
		c.metrics.IncrementRejected(event.Breaker)

	case EventCallSucceeded:
		c.metrics.RecordOutcome(event.Breaker, true, event.Duration)

	case EventCallFailed:
		c.metrics.RecordOutcome(event.Breaker, false, event.Duration)

	case EventStateChanged:
		c.metrics.UpdateState(event.Breaker, event.State)
	}

	if c.exporter != nil {
		c.exporter.Observe(event)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
