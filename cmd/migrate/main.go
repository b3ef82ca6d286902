package main

import (
	"context"
	"os"

	"uniform-tracker/internal/config"
	"uniform-tracker/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger := config.NewLogger(os.Getenv("LOG_LEVEL"))

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		logger.Fatal("DATABASE_URL environment variable not set")
	}
	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		logger.WithError(err).Fatal("connect")
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, dir, logger)
	if err != nil {
		pool.Close()
		logger.WithError(err).Fatal("migrate")
	}
	logger.WithField("applied", applied).Info("all migrations processed")
}
