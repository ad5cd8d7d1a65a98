package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/channel"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	setupLogging()

	cfg, err := loadConfig(getEnv("LIVELOT_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	services, err := setupServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.closeFeed()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, concern := range []channel.Concern{channel.ConcernLotStatus, channel.ConcernBids, channel.ConcernVotes} {
		services.Supervisor.Subscribe(concern, cfg.Feed.AuctionFilter)
	}

	go services.Clock.Run(ctx)
	services.Coordinator.Request("startup")

	// SIGHUP zeroes the reconnect attempt counters, same as the HTTP
	// reset endpoint.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			log.Info().Msg("resetting channel retry budgets")
			services.Supervisor.ResetAttempts()
		}
	}()

	go func() {
		log.Info().Str("addr", services.Server.Addr).Msg("serving auction state")
		if err := services.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	services.Supervisor.Close()
	services.Coordinator.Close()
}

func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if getEnv("LOG_LEVEL", "") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if getEnv("LOG_FORMAT", "console") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
