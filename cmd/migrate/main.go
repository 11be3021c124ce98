package main

import (
	"context"
	"os"

	"issuetracker/config"
	"issuetracker/database"
	"issuetracker/logger"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeoutDuration())
	defer cancel()

	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Database.Backend).Msg("failed to connect")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		log.Fatal().Err(err).Msg("migration failed")
	}

	log.Info().Str("backend", cfg.Database.Backend).Msg("all migrations completed")
}
