package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/merch-store/internal/config"
	"github.com/safar/merch-store/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger(cfg.Log)

	if len(os.Args) < 2 {
		logger.Fatal().Msg("usage: go run scripts/run_migrations.go [up|down]")
	}

	direction, err := migrations.ParseDirection(os.Args[1])
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid direction")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	applied, err := migrations.Run(ctx, db, direction)
	for _, name := range applied {
		logger.Info().Str("file", name).Msg("ran migration")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	logger.Info().Int("count", len(applied)).Str("direction", string(direction)).Msg("migrations complete")
}
