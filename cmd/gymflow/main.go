package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gymflow-app/gymflow/internal/analytics"
	"github.com/gymflow-app/gymflow/internal/app"
	"github.com/gymflow-app/gymflow/internal/auth"
	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/branches"
	"github.com/gymflow-app/gymflow/internal/members"
	"github.com/gymflow-app/gymflow/internal/observability"
	"github.com/gymflow-app/gymflow/internal/payments"
	"github.com/gymflow-app/gymflow/internal/shared"
	"github.com/gymflow-app/gymflow/internal/staff"
	"github.com/gymflow-app/gymflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	tokens := auth.NewTokenManager(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, tokens)

	authzRepo := authz.NewRepository(pool)
	gateway := authz.NewGateway(tokens, authz.NewResolver(authzRepo, logger), authz.NewEvaluator(logger), logger, metrics)
	guard := authz.Middleware{Gateway: gateway, Logger: logger}

	branchRepo := branches.NewRepository(pool)
	branchService := branches.NewService(branchRepo, auditLogger)
	branchHandler := branches.NewHandler(logger, branchService, guard)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(staffRepo, auditLogger)
	staffHandler := staff.NewHandler(logger, staffService, guard)

	memberRepo := members.NewRepository(pool)
	memberService := members.NewService(memberRepo, auditLogger)
	memberHandler := members.NewHandler(logger, memberService, guard)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, auditLogger, jobClient)
	paymentHandler := payments.NewHandler(logger, paymentService, guard)

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, cfg.KPICacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		BranchHandler:    branchHandler,
		StaffHandler:     staffHandler,
		MemberHandler:    memberHandler,
		PaymentHandler:   paymentHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
