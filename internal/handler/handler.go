package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
	"github.com/kavishme/circuitguard/internal/metrics"
	"github.com/kavishme/circuitguard/internal/upstream"
)

// Route pairs an upstream with the breaker guarding it.
type Route struct {
	Upstream *upstream.Upstream
	Breaker  *circuitbreaker.CircuitBreaker
}

type ProxyHandler struct {
	logger    *slog.Logger
	routes    []Route
	collector *metrics.Collector
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func NewProxyHandler(logger *slog.Logger, routes []Route, collector *metrics.Collector) *ProxyHandler {
	return &ProxyHandler{
		logger:    logger,
		routes:    routes,
		collector: collector,
	}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	route, ok := h.resolve(r.URL.Path)
	if !ok {
		h.logger.Warn("No upstream for path",
			slog.String("from", clientIP),
			slog.String("path", r.URL.Path))
		http.Error(w, "no upstream configured for path", http.StatusNotFound)
		return
	}

	h.logger.Info("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("upstream", route.Upstream.Name()))

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	err := route.Breaker.Execute(func() error {
		route.Upstream.ReverseProxy().ServeHTTP(wrapped, r)

		if wrapped.statusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream %s returned %d", route.Upstream.Name(), wrapped.statusCode)
		}
		return nil
	})

	duration := time.Since(start)

	var openErr *circuitbreaker.OpenError
	if errors.As(err, &openErr) {
		h.rejectRequest(w, route, openErr, clientIP)
		return
	}

	h.emitEvent(metrics.Event{
		Type:      metrics.EventCallAllowed,
		Timestamp: time.Now(),
		Breaker:   route.Breaker.Name(),
	})

	route.Upstream.RecordResponse(duration)

	outcome := metrics.EventCallSucceeded
	if err != nil {
		outcome = metrics.EventCallFailed
		h.logger.Warn("Upstream call failed",
			slog.String("upstream", route.Upstream.Name()),
			slog.Int("failures", route.Breaker.FailureCount()),
			slog.Any("err", err))
	}

	h.emitEvent(metrics.Event{
		Type:       outcome,
		Timestamp:  time.Now(),
		Breaker:    route.Breaker.Name(),
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})
}

// rejectRequest answers for the upstream while its breaker is open. The
// proxied call never ran, so the response is entirely ours to write.
func (h *ProxyHandler) rejectRequest(w http.ResponseWriter, route Route, openErr *circuitbreaker.OpenError, clientIP string) {
	h.logger.Warn("Request rejected by open breaker",
		slog.String("from", clientIP),
		slog.String("breaker", openErr.Name),
		slog.Int("failures", openErr.FailureCount),
		slog.Duration("remaining", openErr.Remaining))

	retryAfter := 0
	if openErr.Remaining > 0 {
		retryAfter = int(math.Ceil(openErr.Remaining.Seconds()))
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-Circuit-Breaker", openErr.Name)
	http.Error(w, openErr.Error(), http.StatusServiceUnavailable)

	h.emitEvent(metrics.Event{
		Type:       metrics.EventCallRejected,
		Timestamp:  time.Now(),
		Breaker:    openErr.Name,
		StatusCode: http.StatusServiceUnavailable,
	})
}

// resolve picks the route with the longest prefix matching the path.
func (h *ProxyHandler) resolve(path string) (Route, bool) {
	var best Route
	bestLen := -1

	for _, route := range h.routes {
		prefix := route.Upstream.Route()
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			best = route
			bestLen = len(prefix)
		}
	}

	return best, bestLen >= 0
}

func (h *ProxyHandler) emitEvent(event metrics.Event) {
	if h.collector == nil {
		return
	}

	h.collector.Emit(event)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
