package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orbitcart/orbitcart-backend/internal/cron"
	"github.com/orbitcart/orbitcart-backend/internal/notifications"
	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/internal/products"
	"github.com/orbitcart/orbitcart-backend/internal/users"
	"github.com/orbitcart/orbitcart-backend/pkg/config"
	"github.com/orbitcart/orbitcart-backend/pkg/db"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	"github.com/orbitcart/orbitcart-backend/pkg/metrics"
	"github.com/orbitcart/orbitcart-backend/pkg/migrate"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox"
	"github.com/orbitcart/orbitcart-backend/pkg/redis"
	"github.com/orbitcart/orbitcart-backend/pkg/steadfast"
)

const lockKeyFormat = "oc:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build job registry", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	registry.Register(cleanupJob)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	registry.Register(retentionJob)

	// The courier sweep needs working Steadfast credentials; without
	// them every refresh would fail, so the job is simply not scheduled.
	if !cfg.Steadfast.Configured() {
		logg.Warn(context.Background(), "steadfast credentials missing, skipping courier refresh job")
		return registry, nil
	}

	courier, err := steadfast.NewClient(cfg.Steadfast, logg)
	if err != nil {
		return nil, fmt.Errorf("steadfast client: %w", err)
	}

	ordersService, err := orders.NewService(orders.Deps{
		Repo:    ordersRepo,
		Tx:      dbClient,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Catalog: products.NewRepository(dbClient.DB()),
		Users:   users.NewRepository(dbClient.DB()),
		Courier: courier,
		Locks:   redisClient,
		Counter: redisClient,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	refreshJob, err := cron.NewCourierRefreshJob(cron.CourierRefreshJobParams{
		Logger:    logg,
		Orders:    ordersRepo,
		Refresher: ordersService,
	})
	if err != nil {
		return nil, fmt.Errorf("courier refresh job: %w", err)
	}
	registry.Register(refreshJob)

	return registry, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
