package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bazarmoz/bazar-backend/api/routes"
	"github.com/bazarmoz/bazar-backend/internal/assistant"
	"github.com/bazarmoz/bazar-backend/internal/cart"
	"github.com/bazarmoz/bazar-backend/internal/catalog"
	"github.com/bazarmoz/bazar-backend/internal/chats"
	"github.com/bazarmoz/bazar-backend/internal/checkout"
	"github.com/bazarmoz/bazar-backend/internal/delivery"
	"github.com/bazarmoz/bazar-backend/internal/history"
	"github.com/bazarmoz/bazar-backend/internal/orders"
	"github.com/bazarmoz/bazar-backend/internal/users"
	"github.com/bazarmoz/bazar-backend/pkg/auth/session"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db"
	"github.com/bazarmoz/bazar-backend/pkg/llm"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
	"github.com/bazarmoz/bazar-backend/pkg/metrics"
	"github.com/bazarmoz/bazar-backend/pkg/migrate"
	"github.com/bazarmoz/bazar-backend/pkg/outbox"
	"github.com/bazarmoz/bazar-backend/pkg/redis"
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

	if cfg.FeatureFlags.SeedCatalog {
		if err := catalog.Seed(context.Background(), dbClient.DB()); err != nil {
			logg.Error(context.Background(), "failed to seed catalog", err)
			os.Exit(1)
		}
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartStore, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	deliveryCalc, err := delivery.NewCalculator(cfg.Seller)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery calculator", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	userService, err := users.NewService(users.ServiceParams{
		TxRunner:       dbClient,
		Repo:           usersRepo,
		Session:        sessionManager,
		Outbox:         outboxService,
		Orders:         ordersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ReferralConfig: cfg.Referral,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TxRunner: dbClient,
		Cart:     cartStore,
		Users:    usersRepo,
		Stock:    catalogRepo,
		Orders:   ordersRepo,
		Fees:     deliveryCalc,
		Outbox:   outboxService,
		Seller:   cfg.Seller,
		Metrics:  commerceMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	historyStore, err := history.NewStore(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create history store", err)
		os.Exit(1)
	}
	historyService, err := history.NewService(historyStore, catalogRepo, cfg.History)
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}

	llmClient, err := llm.NewClient(cfg.LLM, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create llm client", err)
		os.Exit(1)
	}

	assistantService, err := assistant.NewService(assistant.ServiceParams{
		Completer: llmClient,
		Catalog:   catalogService,
		Chats:     chats.NewRepository(dbClient.DB()),
		History:   historyService,
		Metrics:   commerceMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assistant service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Session:     sessionManager,
			HTTPMetrics: httpMetrics,
			Gatherer:    registry,
			Users:       userService,
			Catalog:     catalogService,
			Cart:        cartService,
			Checkout:    checkoutService,
			Delivery:    deliveryCalc,
			Orders:      orderService,
			History:     historyService,
			Assistant:   assistantService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
