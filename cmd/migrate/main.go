// Package main applies the PostgreSQL ledger schema
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/common/logger"
	"github.com/baely/txnsync/internal/config"
	"github.com/baely/txnsync/internal/ledger/postgres"
)

func main() {
	log := logger.New(
		logger.WithLevel(logger.LevelInfo),
	)
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("Schema applied")
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := postgres.NewClient(cfg.Database)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Info("Applying schema", "host", cfg.Database.Host, "database", cfg.Database.Name)
	return client.Migrate(ctx)
}
