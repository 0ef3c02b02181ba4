package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/config"
	"storefront-fulfillment/internal/lock"
	"storefront-fulfillment/internal/logging"
	"storefront-fulfillment/internal/messaging"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"storefront-fulfillment/internal/server"
	"storefront-fulfillment/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func loadConfig() (*config.Config, error) {
	// load .env into os.Environ
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to parse config")
	}

	logger := logging.New(cfg.Log)
	ctx := context.Background()

	db, err := client.InitDatabase(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database init failed")
	}

	rdb, err := client.InitRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis init failed")
	}
	if rdb == nil {
		logger.Warn().Msg("REDIS_ADDR not set, order leases are held in-process")
	}
	locker := lock.New(rdb)

	publisher, err := messaging.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Str("broker", cfg.Events.Broker).Msg("event publisher init failed")
	}

	push := client.InitPush(cfg.Push)
	if !push.Configured {
		logger.Warn().Msg("VAPID keys not set, push delivery disabled (history is still recorded)")
	}
	mailer := client.NewMailer(cfg.SMTP)

	clock := service.SystemClock()

	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)

	inventoryLedger := service.NewInventoryLedger(db, productRepo, repository.NewInventoryLogRepository(db))
	loyaltyLedger := service.NewLoyaltyLedger(db, repository.NewLoyaltyRepository(db), service.NewStaticLoyaltySettings(cfg.Loyalty))
	couponTracker := service.NewCouponTracker(db, couponRepo, clock)
	activityAggregator := service.NewActivityAggregator(db, repository.NewActivityRepository(db), clock)
	subscriptionStore := service.NewSubscriptionStore(repository.NewSubscriptionRepository(db))
	notificationService := service.NewNotificationService(
		subscriptionStore,
		repository.NewNotificationRepository(db),
		push,
		mailer,
		cfg.Push.Concurrency,
		clock,
		logger,
	)
	fulfillmentService := service.NewFulfillmentService(service.FulfillmentDeps{
		DB:            db,
		OrderRepo:     repository.NewOrderRepository(db),
		SaleRepo:      repository.NewSaleRepository(db),
		Inventory:     inventoryLedger,
		Loyalty:       loyaltyLedger,
		Coupons:       couponTracker,
		Activity:      activityAggregator,
		Notifications: notificationService,
		Publisher:     publisher,
		Locker:        locker,
		Clock:         clock,
		Logger:        logger,
		EventsTopic:   cfg.Events.KafkaTopic,
		BaseURL:       cfg.BaseURL,
	})

	if cfg.Environment.IsDevelopment() {
		seedDevelopment(ctx, logger, cfg, productRepo, couponRepo)
	}

	srv := server.NewServer(server.Services{
		Fulfillment:   fulfillmentService,
		Inventory:     inventoryLedger,
		Loyalty:       loyaltyLedger,
		Coupons:       couponTracker,
		Activity:      activityAggregator,
		Subscriptions: subscriptionStore,
		Notifications: notificationService,
	}, server.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
		PushRateLimit:  cfg.HTTP.PushRateLimit,
		PushRateBurst:  cfg.HTTP.PushRateBurst,
	}, logger)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info().Str("addr", serverAddr).Str("environment", cfg.Environment.Name).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info().Msg("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("event publisher close error")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func seedDevelopment(ctx context.Context, logger zerolog.Logger, cfg *config.Config, productRepo repository.ProductRepository, couponRepo repository.CouponRepository) {
	if err := productRepo.Seed(ctx); err != nil {
		logger.Error().Err(err).Msg("seed products")
	}
	if err := couponRepo.Seed(ctx); err != nil {
		logger.Error().Err(err).Msg("seed coupons")
	}

	token, err := middleware.NewToken(cfg.Auth.JWTSecret, "dev-admin", model.RoleAdmin, 24*time.Hour)
	if err != nil {
		logger.Error().Err(err).Msg("sign dev admin token")
		return
	}
	logger.Info().Str("token", token).Msg("development admin token")
}
