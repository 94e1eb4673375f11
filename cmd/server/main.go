package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gastenlixt/gastenlixt/internal/auth"
	"github.com/gastenlixt/gastenlixt/internal/config"
	"github.com/gastenlixt/gastenlixt/internal/database"
	"github.com/gastenlixt/gastenlixt/internal/handler"
	appmw "github.com/gastenlixt/gastenlixt/internal/middleware"
	"github.com/gastenlixt/gastenlixt/internal/repository"
	"github.com/gastenlixt/gastenlixt/internal/router"
	"github.com/gastenlixt/gastenlixt/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars directly

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zlog.Logger = logger

	cfg := config.Load()
	if cfg.AuthSecret == config.DefaultSecret && cfg.Production() {
		logger.Warn().Msg("AUTH_SECRET not set; using the development fallback in production")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}

	// Schema bootstrap must finish before the listener binds so no request
	// ever sees a half-initialized schema.  A failure is logged and the
	// server starts anyway; the next restart retries.
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Bootstrap(bootCtx, db, logger, cfg.BcryptCost); err != nil {
		logger.Error().Err(err).Msg("schema bootstrap incomplete")
	}
	cancel()

	codec := auth.NewCodec(cfg.AuthSecret)
	rdb := config.NewRedisClient() // nil disables rate limiting
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; login rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	clients := repository.NewClientRepo(db)

	authHandler := handler.NewAuthHandler(cfg, codec, users)
	clientHandler := handler.NewClientHandler(clients, service.NewAMQPPublisher())
	dashHandler := handler.NewDashboardHandler(clients)

	e := echo.New()
	e.HideBanner = true
	e.Use(appmw.Logger)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, config.LoadRateLimitConfig(), rdb)
	router.RegisterClients(e, clientHandler, codec)
	router.RegisterPages(e, dashHandler, clientHandler, codec)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
