package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dosewatch/dosewatch/internal/clock"
	"github.com/dosewatch/dosewatch/internal/config"
	"github.com/dosewatch/dosewatch/internal/handler"
	"github.com/dosewatch/dosewatch/internal/infra/postgresql"
	"github.com/dosewatch/dosewatch/internal/infra/postgresql/migrations"
	infraredis "github.com/dosewatch/dosewatch/internal/infra/redis"
	"github.com/dosewatch/dosewatch/internal/observability"
	"github.com/dosewatch/dosewatch/internal/provider"
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/dosewatch/dosewatch/internal/service"
	"github.com/dosewatch/dosewatch/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	scheduleRepo := repository.NewGormScheduleRepo(db)
	prescriptionRepo := repository.NewGormPrescriptionRepo(db)
	userRepo := repository.NewGormUserRepo(db)
	dispatchRepo := repository.NewGormDispatchRepo(db)

	deliveryProvider, err := provider.NewWebhookProvider(cfg.DeliveryWebhookURL)
	if err != nil {
		logger.Fatal("delivery provider initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	guard, err := service.NewIdempotencyGuard(dispatchRepo, logger)
	if err != nil {
		logger.Fatal("idempotency guard initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(deliveryProvider, rateLimiter, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	loop, err := service.NewReminderLoop(
		scheduleRepo,
		userRepo,
		dispatchRepo,
		guard,
		dispatcher,
		clock.System(),
		time.Duration(cfg.ScanIntervalSeconds)*time.Second,
		cfg.DispatchConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("reminder loop initialization failed", zap.Error(err))
	}
	loop.SetMetrics(metrics)

	catalog, err := service.NewCatalogService(scheduleRepo, prescriptionRepo, userRepo, dispatchRepo, logger)
	if err != nil {
		logger.Fatal("catalog service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterCatalogRoutes(app, catalog); err != nil {
		logger.Fatal("failed to register catalog routes", zap.Error(err))
	}
	if err := handler.RegisterDispatchRoutes(app, catalog); err != nil {
		logger.Fatal("failed to register dispatch routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Start(ctx)
	}()

	go func() {
		addr := ":" + strconv.Itoa(cfg.APIPort)
		logger.Info("dosewatch api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(addr); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	loop.Stop()
	if err := <-loopDone; err != nil {
		logger.Error("reminder loop stopped with error", zap.Error(err))
	}

	if err := app.Shutdown(); err != nil {
		logger.Error("fiber shutdown failed", zap.Error(err))
	}

	logger.Info("dosewatch stopped")
}
