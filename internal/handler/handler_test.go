package handler_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
	"github.com/kavishme/circuitguard/internal/handler"
	"github.com/kavishme/circuitguard/internal/upstream"
)

var _ = Describe("ProxyHandler", func() {
	var (
		backend     *httptest.Server
		backendHits atomic.Int64
		failing     atomic.Bool
		proxy       *handler.ProxyHandler
		breaker     *circuitbreaker.CircuitBreaker
	)

	newRoute := func(name, prefix string, target *httptest.Server) handler.Route {
		u, err := url.Parse(target.URL)
		Expect(err).NotTo(HaveOccurred())

		cb, err := circuitbreaker.New(name,
			circuitbreaker.WithFailureThreshold(2),
			circuitbreaker.WithRecoveryTimeout(100*time.Millisecond))
		Expect(err).NotTo(HaveOccurred())

		return handler.Route{
			Upstream: upstream.New(name, prefix, u),
			Breaker:  cb,
		}
	}

	BeforeEach(func() {
		backendHits.Store(0)
		failing.Store(false)

		backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			backendHits.Add(1)
			if failing.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte("pong"))
		}))
		DeferCleanup(backend.Close)

		route := newRoute("payments", "/payments", backend)
		breaker = route.Breaker

		proxy = handler.NewProxyHandler(
			slog.New(slog.NewTextHandler(io.Discard, nil)),
			[]handler.Route{route},
			nil)
	})

	doRequest := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		proxy.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		return rec
	}

	It("should proxy matching requests to the upstream", func() {
		rec := doRequest("/payments/charge")

		Expect(rec.Code).To(Equal(200))
		Expect(rec.Body.String()).To(Equal("pong"))
		Expect(backendHits.Load()).To(Equal(int64(1)))
	})

	It("should return 404 for paths without an upstream", func() {
		Expect(doRequest("/unknown").Code).To(Equal(404))
		Expect(backendHits.Load()).To(BeZero())
	})

	It("should count upstream 5xx responses as breaker failures", func() {
		failing.Store(true)

		doRequest("/payments/charge")
		Expect(breaker.State()).To(Equal(circuitbreaker.StateClosed))

		doRequest("/payments/charge")
		Expect(breaker.State()).To(Equal(circuitbreaker.StateOpen))
	})

	Context("with an open breaker", func() {
		BeforeEach(func() {
			failing.Store(true)
			doRequest("/payments/charge")
			doRequest("/payments/charge")
			Expect(breaker.State()).To(Equal(circuitbreaker.StateOpen))
			backendHits.Store(0)
		})

		It("should reject without contacting the upstream", func() {
			rec := doRequest("/payments/charge")

			Expect(rec.Code).To(Equal(503))
			Expect(backendHits.Load()).To(BeZero())
		})

		It("should advertise the breaker and a retry hint", func() {
			rec := doRequest("/payments/charge")

			Expect(rec.Header().Get("X-Circuit-Breaker")).To(Equal("payments"))

			retryAfter := rec.Header().Get("Retry-After")
			Expect(retryAfter).NotTo(BeEmpty())
			Expect(retryAfter).NotTo(Equal("0"))
			Expect(rec.Body.String()).To(ContainSubstring(`circuit "payments" open`))
		})

		It("should recover through a successful trial call", func() {
			failing.Store(false)
			time.Sleep(120 * time.Millisecond)

			rec := doRequest("/payments/charge")

			Expect(rec.Code).To(Equal(200))
			Expect(backendHits.Load()).To(Equal(int64(1)))
			Expect(breaker.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("route resolution", func() {
		It("should prefer the longest matching prefix", func() {
			second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("refunds"))
			}))
			DeferCleanup(second.Close)

			proxy = handler.NewProxyHandler(
				slog.New(slog.NewTextHandler(io.Discard, nil)),
				[]handler.Route{
					newRoute("payments", "/payments", backend),
					newRoute("refunds", "/payments/refunds", second),
				},
				nil)

			rec := doRequest("/payments/refunds/123")
			Expect(rec.Body.String()).To(Equal("refunds"))
		})
	})
})
