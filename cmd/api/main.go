package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/orbitcart/orbitcart-backend/api"
	"github.com/orbitcart/orbitcart-backend/api/controllers"
	"github.com/orbitcart/orbitcart-backend/api/routes"
	"github.com/orbitcart/orbitcart-backend/internal/notifications"
	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/internal/products"
	"github.com/orbitcart/orbitcart-backend/internal/users"
	"github.com/orbitcart/orbitcart-backend/pkg/config"
	"github.com/orbitcart/orbitcart-backend/pkg/db"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	"github.com/orbitcart/orbitcart-backend/pkg/migrate"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox"
	"github.com/orbitcart/orbitcart-backend/pkg/redis"
	"github.com/orbitcart/orbitcart-backend/pkg/steadfast"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productService, err := products.NewService(productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	ordersDeps := orders.Deps{
		Repo:    ordersRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Catalog: productsRepo,
		Users:   usersRepo,
		Locks:   redisClient,
		Counter: redisClient,
		Logger:  logg,
	}
	if cfg.Steadfast.Configured() {
		courier, err := steadfast.NewClient(cfg.Steadfast, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create steadfast client", err)
			os.Exit(1)
		}
		ordersDeps.Courier = courier
	} else {
		logg.Warn(context.Background(), "steadfast credentials missing, dispatch endpoints will refuse")
	}

	ordersService, err := orders.NewService(ordersDeps)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	handler := routes.NewRouter(cfg, logg, pingers, redisClient, productService, ordersService, notificationService)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	if err := api.NewServer(addr, handler, logg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
