package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	apihttp "wsaddon/internal/api/http"
	"wsaddon/internal/app"
	"wsaddon/internal/metrics"
	"wsaddon/internal/telemetry"
)

func main() {
	envErr := godotenv.Load()
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn(".env not loaded", slog.String("error", envErr.Error()))
	}
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "wsaddon",
		ServiceVersion: app.Version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "wsaddon"),
		slog.String("version", app.Version),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Duration("resolveTimeout", cfg.ResolveTimeout),
		slog.String("baseURL", cfg.BaseURL),
		slog.String("webshareBaseURL", cfg.WebshareBaseURL),
		slog.Bool("proxyStreams", cfg.ProxyStreams),
		slog.Bool("proxyAllowPrivate", cfg.ProxyAllowPrivate),
		slog.Bool("resolverProbe", cfg.ResolverProbe),
		slog.Int("maxStreams", cfg.MaxStreams),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("tracing", cfg.OTLPEndpoint != ""),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := app.BuildServices(rootCtx, cfg, logger)
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.String("error", err.Error()))
		}
	}()

	handler := apihttp.NewServer(services.Pipeline, services.Finder,
		apihttp.WithLogger(logger),
		apihttp.WithVersion(app.Version),
		apihttp.WithBaseURL(cfg.BaseURL),
		apihttp.WithProxy(services.Proxy),
		apihttp.WithResolveTimeout(cfg.ResolveTimeout),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Proxied media streams run for as long as the player keeps reading.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("addon started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("manifest", manifestHint(cfg)),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("addon stopped")
}

func manifestHint(cfg app.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL + "/manifest.json"
	}
	addr := cfg.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/manifest.json"
}
