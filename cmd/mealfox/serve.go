package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ManuelReschke/MealFox/app/controllers"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/cache"
	"github.com/ManuelReschke/MealFox/internal/pkg/config"
	"github.com/ManuelReschke/MealFox/internal/pkg/database"
	"github.com/ManuelReschke/MealFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/MealFox/internal/pkg/env"
	"github.com/ManuelReschke/MealFox/internal/pkg/logging"
	"github.com/ManuelReschke/MealFox/internal/pkg/oauth"
	"github.com/ManuelReschke/MealFox/internal/pkg/router"
	"github.com/ManuelReschke/MealFox/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// Redis databases. Cache, app sessions and OAuth state are kept apart.
const (
	cacheRedisDB   = 0
	sessionRedisDB = 1
	oauthRedisDB   = 2
)

const shutdownTimeout = 10 * time.Second

func loadConfig() config.Config {
	envLoaded := env.SetupEnvFile()
	cfg := config.Load()
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "mealfox",
	})
	if !envLoaded {
		log.Info().Msg("no .env file found, using process environment")
	}
	return cfg
}

func runServer() error {
	cfg := loadConfig()
	log.Info().Str("version", Version).Str("env", cfg.AppEnv).Msg("starting MealFox")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.MySQLDSN(), cfg.IsDev())
	if err != nil {
		return err
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info().Msg("database schema auto-migrated")
	}

	redisClient := cache.NewClient(ctx, cache.Options{
		Addr:     cfg.CacheAddr(),
		Password: cfg.CachePassword,
		DB:       cacheRedisDB,
	})
	defer redisClient.Close()

	cachePort, err := strconv.Atoi(cfg.CachePort)
	if err != nil {
		return fmt.Errorf("invalid CACHE_PORT %q: %w", cfg.CachePort, err)
	}

	if cfg.StripeSecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is not set, billing calls will fail")
	}
	if cfg.StripeWebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET is not set, webhooks will be refused")
	}

	repos := repository.NewFactory(db).GetRepositories()
	gate := entitlements.NewGate(repos.Account, entitlements.NewCache(redisClient, cfg.EntitlementCacheTTL))
	gateway := billing.NewStripeGateway(billing.NewStripeClient(cfg.StripeSecretKey), billing.StripeGatewayConfig{
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Timeout:    cfg.BillingTimeout,
	})
	svc := billing.NewService(repos, gateway, billing.NewCatalog(cfg.PriceIDs()), gate)

	secure := !cfg.IsDev()
	sessions := session.NewSessionStore(session.Config{
		Host:     cfg.CacheHost,
		Port:     cachePort,
		Password: cfg.CachePassword,
		Database: sessionRedisDB,
		Secure:   secure,
	})
	providers := oauth.Setup(oauth.Config{
		PublicURL:          cfg.PublicURL,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		RedisHost:          cfg.CacheHost,
		RedisPort:          cachePort,
		RedisPassword:      cfg.CachePassword,
		RedisDatabase:      oauthRedisDB,
		Secure:             secure,
	})
	log.Info().Strs("providers", providers).Msg("OAuth providers registered")

	app := fiber.New(fiber.Config{
		AppName:   "MealFox " + Version,
		BodyLimit: 2 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Dependencies{
		Sessions:         sessions,
		Gate:             gate,
		Accounts:         controllers.NewAccountController(svc),
		Billing:          controllers.NewBillingController(svc, gate, cfg.StripeWebhookSecret),
		MealPlans:        controllers.NewMealPlanController(repos.MealPlan),
		Auth:             controllers.NewAuthController(svc, sessions, nil),
		InternalAPIToken: cfg.InternalAPIToken,
		MetricsUser:      cfg.MetricsUser,
		MetricsPassword:  cfg.MetricsPassword,
		DevMode:          cfg.IsDev(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppHost).Msg("listening")
		errCh <- app.Listen(cfg.AppHost)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
