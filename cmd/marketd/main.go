package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"marketd/config"
	"marketd/core/state"
	"marketd/native/market"
	"marketd/observability/logging"
	telemetry "marketd/observability/otel"
	"marketd/rpc"
	"marketd/storage"
)

const envVar = "MARKETD_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv(envVar))
	if env == "" {
		env = cfg.Env
	}
	logger := logging.Setup("marketd", env, logging.ParseLevel(cfg.LogLevel))

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "marketd",
		Environment: env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Traces:      cfg.TraceExport,
		Metrics:     cfg.MetricExport,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "market"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	engine := market.NewEngine()
	engine.SetState(market.NewStore(state.NewManager(db)))

	if err := engine.Initialize(cfg.MarketplaceName); err != nil {
		if !errors.Is(err, market.ErrAlreadyInitialized) {
			logger.Error("failed to initialize marketplace", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("marketplace already initialized")
	} else {
		logger.Info("marketplace initialized", slog.String("name", cfg.MarketplaceName))
	}

	server := rpc.NewServer(engine, logger, rpc.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.RateLimitBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("rpc server shutdown failed", slog.Any("error", err))
		}
		if err := <-errCh; err != nil {
			logger.Warn("rpc server exited with error", slog.Any("error", err))
		}
	}
}
