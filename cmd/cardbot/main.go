// Command cardbot runs the card-lookup bot backend: the HTTP surface for the
// chat-platform collaborator, the rate-gated upstream card client, the
// inbound duplicate guard with its background sweep, and the SQLite-backed
// lookup audit trail.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-card-bot/internal/bot"
	"github.com/tbourn/go-card-bot/internal/config"
	"github.com/tbourn/go-card-bot/internal/guard"
	httpapi "github.com/tbourn/go-card-bot/internal/http"
	"github.com/tbourn/go-card-bot/internal/observability"
	"github.com/tbourn/go-card-bot/internal/repo"
	"github.com/tbourn/go-card-bot/internal/scryfall"
	"github.com/tbourn/go-card-bot/internal/services"
	"github.com/tbourn/go-card-bot/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	client := scryfall.New(scryfall.Options{
		BaseURL:      cfg.Scryfall.BaseURL,
		UserAgent:    cfg.Scryfall.UserAgent,
		Timeout:      cfg.Scryfall.Timeout,
		GateInterval: cfg.Scryfall.GateInterval,
	})
	cardSvc := services.NewCardService(client)
	batchSvc := services.NewBatchService(cardSvc)

	g := guard.New(guard.Config{
		UserCooldown:    cfg.Guard.UserCooldown,
		DuplicateWindow: cfg.Guard.DuplicateWindow,
		SweepInterval:   cfg.Guard.SweepInterval,
		Retention:       cfg.Guard.Retention,
		ProcessedIDCap:  cfg.Guard.ProcessedIDCap,
		ProcessedIDKeep: cfg.Guard.ProcessedIDKeep,
	})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		_ = g.Run(ctx)
	}()

	disp := bot.New(cfg.CommandPrefix, g, cardSvc, batchSvc, &repo.LookupStore{DB: db})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, disp, cardSvc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
		}
	}

	// Stop accepting traffic, then wait for the sweep to exit.
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	stop()
	<-sweepDone

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
