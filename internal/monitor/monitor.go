package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
	"github.com/kavishme/circuitguard/internal/metrics"
)

type healthResponse struct {
	Status string        `json:"status"`
	Open   []openBreaker `json:"open,omitempty"`
}

type openBreaker struct {
	Name              string `json:"name"`
	Failures          int    `json:"failures"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// HealthHandler reports the registry's health: 200 while every breaker
// is closed or half-open, 503 with the list of open breakers otherwise.
func HealthHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := healthResponse{Status: "ok"}

		if !registry.AllClosed() {
			status = http.StatusServiceUnavailable
			resp.Status = "degraded"
			for _, cb := range registry.ListOpen() {
				resp.Open = append(resp.Open, openBreaker{
					Name:              cb.Name(),
					Failures:          cb.FailureCount(),
					RetryAfterSeconds: clampSeconds(cb.OpenRemaining()),
				})
			}
		}

		body, err := json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	}
}

// Watch periodically inspects the registry, logs breaker state
// transitions, and forwards them to the collector channel so the state
// metrics stay fresh. It returns when ctx is cancelled.
func Watch(
	ctx context.Context,
	registry *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
	events chan<- metrics.Event,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := make(map[string]circuitbreaker.State)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Breaker watch stopped")
			return

		case <-ticker.C:
			for name, state := range registry.Stats() {
				last, known := seen[name]
				if known && last == state {
					continue
				}
				seen[name] = state

				if known {
					logBreakerTransition(logger, name, last, state)
				}

				emit(events, metrics.Event{
					Type:      metrics.EventStateChanged,
					Timestamp: time.Now(),
					Breaker:   name,
					State:     state,
				})
			}
		}
	}
}

func logBreakerTransition(logger *slog.Logger, name string, from, to circuitbreaker.State) {
	if to == circuitbreaker.StateOpen {
		logger.Warn("Breaker opened",
			slog.String("breaker", name),
			slog.String("from", from.String()))
		return
	}

	logger.Info("Breaker state changed",
		slog.String("breaker", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

func emit(events chan<- metrics.Event, event metrics.Event) {
	if events == nil {
		return
	}

	select {
	case events <- event:
	default:
	}
}

func clampSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
