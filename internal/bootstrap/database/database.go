package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"journalflow/internal/bootstrap/config"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
)

func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		if err := ensureSQLiteDirectory(logCtx, cfg.DSN); err != nil {
			return nil, errs.Wrap(err, "ensure sqlite directory")
		}

		db, err := gorm.Open(gormsqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, errs.Wrap(err, "open sqlite db")
		}
		// SQLite allows a single writer; serializing connections turns lock
		// contention into queueing instead of SQLITE_BUSY failures.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errs.Wrap(err, "get sql db")
		}
		sqlDB.SetMaxOpenConns(1)

		logging.Info(logCtx, "database opened", slog.String("driver", "sqlite"), slog.String("dsn", cfg.DSN))
		return db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, errs.Wrap(err, "open mysql db")
		}
		logging.Info(logCtx, "database opened", slog.String("driver", "mysql"))
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func ensureSQLiteDirectory(ctx context.Context, dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}

	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = strings.TrimPrefix(candidate, "file:")
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create sqlite directory %q", dir)
	}

	logging.Debug(ctx, "sqlite directory ensured", slog.String("dir", dir))
	return nil
}
