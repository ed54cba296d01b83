// Worker deletes expired sessions on SESSION_SWEEP_INTERVAL. Run it when the API servers are
// started without their in-process sweeper, or to sweep from a single replica.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/config"
	"capturehub/backend/internal/db"
	"capturehub/backend/internal/logging"
	membershiprepo "capturehub/backend/internal/membership/repository"
	sessionrepo "capturehub/backend/internal/session/repository"
	sessionservice "capturehub/backend/internal/session/service"
	"capturehub/backend/internal/telemetry"
	telemetryotel "capturehub/backend/internal/telemetry/otel"
)

func main() {
	once := flag.Bool("once", false, "Sweep once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Env,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPool())
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	sessions := sessionservice.NewSessionService(
		sessionrepo.NewPostgresRepository(conn),
		membershiprepo.NewPostgresRepository(conn),
		clock.System{}, cfg.Lifetime(), cfg.IdleThreshold(), nil, nil, logger,
	)
	sweeper := sessionservice.NewSweeper(sessions, cfg.SweepInterval(), metrics, logger.Named("sweeper"))

	if *once {
		n := sweeper.SweepOnce(ctx)
		logger.Info("sweep finished", zap.Int64("deleted", n))
		return
	}
	logger.Info("worker: sweeping expired sessions", zap.Duration("interval", cfg.SweepInterval()))
	sweeper.Run(ctx)
	logger.Info("worker: stopped")
}
