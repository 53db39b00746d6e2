package main

import (
	"net/http"

	"github.com/kavishme/circuitguard/internal/handler"
	"github.com/kavishme/circuitguard/internal/metrics"
)

func setupRouter(
	proxyHandler *handler.ProxyHandler,
	collector *metrics.Collector,
	exporter *metrics.Exporter,
	healthHandler http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.Handle("/metrics/prometheus", exporter.Handler())
	mux.Handle("/", proxyHandler)

	return mux
}
