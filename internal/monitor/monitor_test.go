package monitor_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
	"github.com/kavishme/circuitguard/internal/metrics"
	"github.com/kavishme/circuitguard/internal/monitor"
)

var _ = Describe("Monitor", func() {
	var registry *circuitbreaker.Registry

	newBreaker := func(name string) *circuitbreaker.CircuitBreaker {
		cb, err := circuitbreaker.New(name,
			circuitbreaker.WithFailureThreshold(1),
			circuitbreaker.WithRecoveryTimeout(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		registry.Register(cb)
		return cb
	}

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry()
	})

	Describe("HealthHandler", func() {
		It("should report ok while all breakers are closed", func() {
			newBreaker("payments")

			rec := httptest.NewRecorder()
			monitor.HealthHandler(registry)(rec, httptest.NewRequest("GET", "/health", nil))

			Expect(rec.Code).To(Equal(200))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"ok"`))
		})

		It("should report ok for an empty registry", func() {
			rec := httptest.NewRecorder()
			monitor.HealthHandler(registry)(rec, httptest.NewRequest("GET", "/health", nil))

			Expect(rec.Code).To(Equal(200))
		})

		It("should report 503 with the open breakers once one trips", func() {
			newBreaker("payments")
			search := newBreaker("search")
			search.ForceOpen()

			rec := httptest.NewRecorder()
			monitor.HealthHandler(registry)(rec, httptest.NewRequest("GET", "/health", nil))

			Expect(rec.Code).To(Equal(503))

			var body struct {
				Status string `json:"status"`
				Open   []struct {
					Name              string `json:"name"`
					Failures          int    `json:"failures"`
					RetryAfterSeconds int    `json:"retry_after_seconds"`
				} `json:"open"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal("degraded"))
			Expect(body.Open).To(HaveLen(1))
			Expect(body.Open[0].Name).To(Equal("search"))
			Expect(body.Open[0].RetryAfterSeconds).To(BeNumerically(">", 0))
		})
	})

	Describe("Watch", func() {
		var (
			ctx    context.Context
			cancel context.CancelFunc
			events chan metrics.Event
			done   chan struct{}
		)

		BeforeEach(func() {
			ctx, cancel = context.WithCancel(context.Background())
			events = make(chan metrics.Event, 16)
			done = make(chan struct{})
		})

		AfterEach(func() {
			cancel()
			Eventually(done).Should(BeClosed())
		})

		It("should emit a state event for every transition it observes", func() {
			cb := newBreaker("payments")

			go func() {
				defer close(done)
				monitor.Watch(ctx, registry, 10*time.Millisecond,
					slog.New(slog.NewTextHandler(io.Discard, nil)), events)
			}()

			// First tick reports the initial CLOSED state
			Eventually(events).Should(Receive(And(
				HaveField("Type", metrics.EventStateChanged),
				HaveField("Breaker", "payments"),
				HaveField("State", circuitbreaker.StateClosed),
			)))

			cb.ForceOpen()

			Eventually(events).Should(Receive(And(
				HaveField("Breaker", "payments"),
				HaveField("State", circuitbreaker.StateOpen),
			)))
		})

		It("should not emit while states are unchanged", func() {
			newBreaker("payments")

			go func() {
				defer close(done)
				monitor.Watch(ctx, registry, 10*time.Millisecond,
					slog.New(slog.NewTextHandler(io.Discard, nil)), events)
			}()

			Eventually(events).Should(Receive())
			Consistently(events, 100*time.Millisecond).ShouldNot(Receive())
		})

		It("should tolerate a nil event channel", func() {
			newBreaker("payments")

			go func() {
				defer close(done)
				monitor.Watch(ctx, registry, 10*time.Millisecond,
					slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
			}()

			time.Sleep(50 * time.Millisecond)
		})
	})
})
