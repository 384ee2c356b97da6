package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	repo "github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// ConnectDB opens the run ledger described by cfg and makes sure its table exists.
func ConnectDB(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*repo.DB, error) {
	logger.Info("connecting to run ledger")
	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to run ledger", "error", err)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("run ledger migration failed", "error", err)
		db.Close()
		return nil, err
	}

	logger.Info("successfully connected to run ledger", "dialect", db.Dialect())
	return db, nil
}

// PingDB pings the ledger to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging run ledger")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("run ledger ping failed", "error", err)
		return err
	}
	logger.Debug("run ledger ping successful")
	return nil
}

// CloseDB closes the ledger connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing run ledger")
	db.Close()
}
