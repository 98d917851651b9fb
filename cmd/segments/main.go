package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-segments/internal/client"
	"github.com/kjstillabower/dashboard-segments/internal/config"
	"github.com/kjstillabower/dashboard-segments/internal/display"
	httphandler "github.com/kjstillabower/dashboard-segments/internal/http"
	"github.com/kjstillabower/dashboard-segments/internal/lifecycle"
	"github.com/kjstillabower/dashboard-segments/internal/observability"
	"github.com/kjstillabower/dashboard-segments/internal/runner"
	"github.com/kjstillabower/dashboard-segments/internal/segment"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	segs, err := segment.BuildAll(segmentSpecs(cfg), clientConfig(cfg), logger)
	if err != nil {
		logger.Fatal("segments", zap.Error(err))
	}
	for _, s := range segs {
		p := s.Provider().Policy()
		logger.Info("segment configured",
			zap.String("source", s.Name()),
			zap.Duration("refresh", p.Interval),
			zap.Duration("hard_ceiling", p.HardCeiling))
	}

	var srv *http.Server
	if cfg.StatusEnabled {
		handler := httphandler.NewHandler(httphandler.HealthConfig{
			DegradedWindow:   cfg.DegradedWindow,
			DegradedErrorPct: cfg.DegradedErrorPct,
			Version:          version,
		}, logger)
		srv = &http.Server{
			Addr:         ":" + cfg.StatusPort,
			Handler:      httphandler.NewRouter(handler, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("status server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("status server", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := display.NewTerminal(os.Stdout, cfg.DisplayWidth)
	loop := runner.New(asRunnerSegments(segs), sink, cfg.PassInterval, cfg.ShowIntro, logger)
	lifecycle.MarkStarted(time.Now())
	if err := loop.Start(ctx); err != nil {
		logger.Fatal("render loop", zap.Error(err))
	}

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	loop.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown", zap.Error(err))
		}
	}
	for _, s := range segs {
		if err := s.Close(); err != nil {
			logger.Warn("segment close", zap.String("source", s.Name()), zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(shutdownCtx, logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func clientConfig(cfg *config.Config) client.Config {
	return client.Config{
		Timeout:                 cfg.HTTPTimeout,
		RetryAttempts:           cfg.RetryAttempts,
		RetryBaseDelay:          cfg.RetryBaseDelay,
		RetryMaxDelay:           cfg.RetryMaxDelay,
		RateLimitRPS:            cfg.RateLimitRPS,
		RateLimitBurst:          cfg.RateLimitBurst,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerTimeout:          cfg.BreakerTimeout,
		UserAgent:               cfg.UserAgent,
	}
}

func segmentSpecs(cfg *config.Config) []segment.Spec {
	specs := make([]segment.Spec, 0, len(cfg.Segments))
	for _, sc := range cfg.Segments {
		spec := segment.Spec{
			Type:            sc.Type,
			Refresh:         sc.Refresh,
			HardCeiling:     sc.HardCeiling,
			Lat:             sc.Lat,
			Lon:             sc.Lon,
			Location:        sc.Location,
			ForecastPeriods: sc.ForecastPeriods,
			BaseURL:         sc.BaseURL,
		}
		if sc.Type == "metoffice" {
			spec.APIKey = cfg.MetOfficeAPIKey
		}
		specs = append(specs, spec)
	}
	return specs
}

func asRunnerSegments(segs []*segment.Segment) []runner.Segment {
	out := make([]runner.Segment, len(segs))
	for i, s := range segs {
		out[i] = s
	}
	return out
}
