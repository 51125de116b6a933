package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"viptips-platform/internal/client"
	"viptips-platform/internal/config"
	"viptips-platform/internal/repository"
	"viptips-platform/internal/server"
	"viptips-platform/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}

	setupLogger(cfg.Log)

	db := client.InitMysqlClient(cfg.DatabaseURL)

	userRepo := repository.NewUserRepository(db)
	tipRepo := repository.NewTipRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	tokenRepo := repository.NewVIPTokenRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	entitlement := service.NewEntitlementService(userRepo, subscriptionRepo, tokenRepo)
	tipService := service.NewTipService(tipRepo, entitlement, cfg.Guest.PageLimit)
	tokenService := service.NewTokenService(db, tokenRepo, analyticsRepo)
	reconciler := service.NewReconcilerService(
		db, cfg.Stripe.WebhookSecret,
		subscriptionRepo,
		tokenRepo,
		webhookEventRepo,
		analyticsRepo,
	)

	srv := server.NewServer(cfg.Session.JWTSecret, userRepo, tipService, tokenService, reconciler)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info().Msg("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}

func setupLogger(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
