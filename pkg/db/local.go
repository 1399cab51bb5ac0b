package db

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

// OpenLocal boots a GORM client against the terminal's on-disk SQLite
// database. Unlike the ledger connection, this one must always succeed when
// the disk is healthy; it is the durability guarantee for offline sales.
func OpenLocal(ctx context.Context, cfg config.TerminalDBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("terminal database path is required")
	}

	conn, err := gorm.Open(sqlite.Open(localDSN(cfg)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("opening terminal db %s: %w", cfg.Path, err)
	}

	// Single writer; SQLite serializes writes anyway and a second connection
	// only buys "database is locked" errors.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.WithContext(ctx).Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("enabling wal mode: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "path", cfg.Path), "terminal database opened")
	}

	return &Client{conn: conn}, nil
}

func localDSN(cfg config.TerminalDBConfig) string {
	params := url.Values{}
	if cfg.BusyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprintf("%d", cfg.BusyTimeout.Milliseconds()))
	}
	params.Set("_fk", "1")
	return fmt.Sprintf("file:%s?%s", cfg.Path, params.Encode())
}
