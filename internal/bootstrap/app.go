package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"journalflow/internal/bootstrap/config"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/infrastructure/metrics"
	"journalflow/internal/infrastructure/notify"
	"journalflow/internal/infrastructure/persistence/schema"
	"journalflow/internal/usecase/notification"
)

// App carries the wired infrastructure commands need beyond the editorial service.
type App struct {
	Config  config.Config
	DB      *gorm.DB
	Catalog *notify.Catalog
	Metrics *metrics.Recorder
	Relay   *notification.Relay
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := schema.Migrate(ctx, a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
