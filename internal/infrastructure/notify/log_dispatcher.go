package notify

import (
	"context"
	"log/slog"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

// LogDispatcher renders intents and writes them to the structured log.
type LogDispatcher struct {
	catalog *Catalog
	recent  *recentKeys
}

var _ ports.Dispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(catalog *Catalog) *LogDispatcher {
	return &LogDispatcher{catalog: catalog, recent: newRecentKeys(0)}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, intent editorial.Intent) error {
	if d.recent.contains(intent.IdempotencyKey) {
		return nil
	}
	msg, err := d.catalog.Render(intent)
	if err != nil {
		return err
	}
	logging.Info(ctx, "notification",
		slog.String("component", "notify.log"),
		slog.String("idempotency_key", intent.IdempotencyKey),
		slog.String("template", string(intent.TemplateKey)),
		slog.Uint64("recipient_user_id", intent.RecipientUserID),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	d.recent.add(intent.IdempotencyKey)
	return nil
}
