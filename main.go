// Package main is the entry point for the txnsync webhook server
package main

import (
	"log/slog"
	"os"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/common/logger"
	"github.com/baely/txnsync/internal/config"
	"github.com/baely/txnsync/internal/ledger/memory"
	"github.com/baely/txnsync/internal/ledger/postgres"
	"github.com/baely/txnsync/internal/provider"
	"github.com/baely/txnsync/internal/server"
	"github.com/baely/txnsync/internal/submission"
	"github.com/baely/txnsync/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
	)
	slog.SetDefault(log)

	// Initialize ledger
	var ledger submission.Ledger
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		log.Warn("Using in-memory ledger, data is lost on restart", "accounts", cfg.MemoryAccounts)
		ledger = memory.NewStore(memory.WithAccountNames(cfg.MemoryAccounts...))
	default:
		client, err := postgres.NewClient(cfg.Database)
		if err != nil {
			return errors.Wrap(err, "failed to open database")
		}
		defer client.Close()
		ledger = client
	}

	settings := cfg.Provider()
	if cfg.UpAccessToken != "" {
		settings.Up = provider.NewUpClient(cfg.UpAccessToken)
	}

	// Initialize services
	coordinator := submission.NewWithConfig(ledger, provider.NewNormalizer(settings), &submission.Config{
		ChunkSize: cfg.ChunkSize,
		Logger:    log,
	})
	webhookService := webhook.NewWithConfig(coordinator, &webhook.Config{
		Logger: log,
	})
	defer webhookService.Close()

	// Initialize server
	s := server.NewWithConfig(&server.Config{
		Addr:        cfg.Addr,
		ReadTimeout: server.DefaultConfig().ReadTimeout,
	})
	s.RegisterDomain(cfg.Host, webhookService.Chi())

	// Start server
	log.Info("Starting server", "addr", cfg.Addr, "host", cfg.Host, "ledger", cfg.LedgerBackend)
	return s.ListenAndServe()
}
