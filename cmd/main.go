package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kavishme/circuitguard/config"
	"github.com/kavishme/circuitguard/internal/circuitbreaker"
	"github.com/kavishme/circuitguard/internal/handler"
	"github.com/kavishme/circuitguard/internal/httpserver"
	"github.com/kavishme/circuitguard/internal/metrics"
	"github.com/kavishme/circuitguard/internal/monitor"
	"github.com/kavishme/circuitguard/internal/upstream"
	"github.com/kavishme/circuitguard/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "circuitguard",
		Short:        "Circuit-breaking reverse proxy with breaker health and metrics endpoints",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		return err
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := circuitbreaker.NewRegistry()

	routes, err := buildRoutes(cfg, registry, log)
	if err != nil {
		log.Error("Failed to initialize upstreams", slog.Any("err", err))
		return err
	}

	exporter, err := metrics.NewExporter()
	if err != nil {
		log.Error("Failed to create metrics exporter", slog.Any("err", err))
		return err
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log, exporter)
	go collector.Start(ctx)

	// Validated by config.Load
	watchInterval, _ := time.ParseDuration(cfg.Monitor.Interval)
	go monitor.Watch(ctx, registry, watchInterval, log, collector.EventChannel())

	proxyHandler := handler.NewProxyHandler(log, routes, collector)
	mux := setupRouter(proxyHandler, collector, exporter, monitor.HealthHandler(registry))

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	log.Info("Starting circuitguard",
		slog.String("address", cfg.Server.Address),
		slog.Int("upstreams", len(routes)))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running server", slog.Any("err", err))
		}
		return err
	}
}

func buildRoutes(cfg *config.Config, registry *circuitbreaker.Registry, log *slog.Logger) ([]handler.Route, error) {
	defaultTimeout, err := time.ParseDuration(cfg.Breaker.RecoveryTimeout)
	if err != nil {
		return nil, err
	}

	var routes []handler.Route

	for _, upCfg := range cfg.Upstreams {
		target, err := url.Parse(upCfg.URL)
		if err != nil {
			log.Error("Failed to parse upstream URL",
				slog.String("upstream", upCfg.Name),
				slog.String("url", upCfg.URL),
				slog.Any("err", err))
			return nil, err
		}

		threshold := cfg.Breaker.FailureThreshold
		if upCfg.FailureThreshold > 0 {
			threshold = upCfg.FailureThreshold
		}

		timeout := defaultTimeout
		if upCfg.RecoveryTimeout != "" {
			timeout, err = time.ParseDuration(upCfg.RecoveryTimeout)
			if err != nil {
				return nil, err
			}
		}

		cb, err := circuitbreaker.New(upCfg.Name,
			circuitbreaker.WithFailureThreshold(threshold),
			circuitbreaker.WithRecoveryTimeout(timeout))
		if err != nil {
			return nil, err
		}
		registry.Register(cb)

		routes = append(routes, handler.Route{
			Upstream: upstream.New(upCfg.Name, upCfg.Route, target),
			Breaker:  cb,
		})

		log.Info("Registered upstream",
			slog.String("upstream", upCfg.Name),
			slog.String("route", upCfg.Route),
			slog.String("url", upCfg.URL),
			slog.Int("failure_threshold", threshold),
			slog.Duration("recovery_timeout", timeout))
	}

	if len(routes) == 0 {
		return nil, errors.New("no upstreams configured")
	}

	return routes, nil
}
