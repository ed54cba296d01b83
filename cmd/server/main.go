package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	tokenrepo "capturehub/backend/internal/apitoken/repository"
	tokenservice "capturehub/backend/internal/apitoken/service"
	"capturehub/backend/internal/audit"
	auditrepo "capturehub/backend/internal/audit/repository"
	"capturehub/backend/internal/auth"
	"capturehub/backend/internal/clock"
	"capturehub/backend/internal/config"
	"capturehub/backend/internal/db"
	"capturehub/backend/internal/db/migrate"
	healthhandler "capturehub/backend/internal/health/handler"
	"capturehub/backend/internal/logging"
	membershiprepo "capturehub/backend/internal/membership/repository"
	membershipservice "capturehub/backend/internal/membership/service"
	orgrepo "capturehub/backend/internal/organization/repository"
	"capturehub/backend/internal/security"
	"capturehub/backend/internal/server"
	sessionrepo "capturehub/backend/internal/session/repository"
	sessionservice "capturehub/backend/internal/session/service"
	"capturehub/backend/internal/telemetry"
	telemetryotel "capturehub/backend/internal/telemetry/otel"
	userrepo "capturehub/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPool())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	clk := clock.System{}
	bg := telemetry.NewBackground(cfg.BackgroundTimeout(), logger, metrics)

	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	tokens := tokenrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), nil,
		audit.WithSink(telemetryotel.NewAuditSink(providers.LoggerProvider)),
		audit.WithBackground(bg),
		audit.WithClock(clk),
		audit.WithZap(logger),
	)

	sessionSvc := sessionservice.NewSessionService(sessions, memberships, clk,
		cfg.Lifetime(), cfg.IdleThreshold(), bg, auditLogger, logger.Named("session"))
	tokenSvc := tokenservice.NewTokenService(tokens, users, orgs, memberships,
		security.NewHasher(cfg.BcryptCost), clk, bg, auditLogger, logger.Named("api_token"))
	membershipSvc := membershipservice.NewMembershipService(memberships, orgs, sessionSvc, clk, auditLogger, logger.Named("membership"))
	resolver := auth.NewResolver(sessionSvc, tokenSvc, auditLogger, metrics, logger.Named("auth"))
	health := healthhandler.NewServer(conn)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHTTPHandler(server.HTTPDeps{
			Authenticator:    resolver,
			Sessions:         sessionSvc,
			Memberships:      membershipSvc,
			MembershipLookup: memberships,
			Tokens:           tokenSvc,
			Health:           health,
			CookieName:       cfg.SessionCookieName,
			CookieSecure:     cfg.SessionCookieSecure,
			ServiceName:      cfg.ServiceName,
			Logger:           logger.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcSrv *grpc.Server
	errCh := make(chan error, 2)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		grpcSrv = server.NewGRPCServer(server.GRPCDeps{
			Authenticator: resolver,
			CookieName:    cfg.SessionCookieName,
			Health:        health,
			Logger:        logger.Named("grpc"),
		})
		go func() {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	sweeper := sessionservice.NewSweeper(sessionSvc, cfg.SweepInterval(), metrics, logger.Named("sweeper"))
	go sweeper.Run(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	// In-flight refreshes, last-used updates and audit writes finish before the pool closes.
	bg.Wait()
	logger.Info("server stopped")
	return serveErr
}
