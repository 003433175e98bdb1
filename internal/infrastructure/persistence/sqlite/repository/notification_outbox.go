package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/infrastructure/persistence/sqlite/model"
	"journalflow/internal/ports"
)

type NotificationOutbox struct {
	db *gorm.DB
}

var _ ports.NotificationOutbox = (*NotificationOutbox)(nil)

func NewNotificationOutbox(db *gorm.DB) *NotificationOutbox {
	return &NotificationOutbox{db: db}
}

// EnqueueIntents stores intents as pending and returns them with ids assigned.
func (o *NotificationOutbox) EnqueueIntents(ctx context.Context, intents []editorial.Intent) ([]editorial.Intent, error) {
	if len(intents) == 0 {
		return nil, nil
	}
	db, err := dbFromContext(ctx, o.db)
	if err != nil {
		return nil, err
	}

	rows := make([]model.NotificationIntent, 0, len(intents))
	for _, intent := range intents {
		payload := intent.Payload
		if payload == nil {
			payload = map[string]string{}
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Wrap(err, "encode intent payload")
		}
		rows = append(rows, model.NotificationIntent{
			IdempotencyKey:  intent.IdempotencyKey,
			ManuscriptID:    intent.ManuscriptID,
			TemplateKey:     string(intent.TemplateKey),
			RecipientUserID: intent.RecipientUserID,
			PayloadJSON:     string(raw),
			Status:          string(editorial.IntentPending),
			CreatedAt:       formatTime(intent.CreatedAt),
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return nil, wrapDBError(err, "insert notification intents")
	}

	out := make([]editorial.Intent, len(intents))
	for i := range intents {
		out[i] = intents[i]
		out[i].ID = rows[i].IntentID
	}
	return out, nil
}

func (o *NotificationOutbox) MarkDispatched(ctx context.Context, intentID uint64, at time.Time) error {
	db, err := dbFromContext(ctx, o.db)
	if err != nil {
		return err
	}

	dispatchedAt := formatTime(at)
	if err := db.Model(&model.NotificationIntent{}).
		Where("intent_id = ?", intentID).
		Updates(map[string]any{
			"status":        string(editorial.IntentDispatched),
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
			"dispatched_at": &dispatchedAt,
		}).Error; err != nil {
		return wrapDBError(err, "mark intent dispatched")
	}
	return nil
}

func (o *NotificationOutbox) MarkFailed(ctx context.Context, intentID uint64, reason string) error {
	db, err := dbFromContext(ctx, o.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.NotificationIntent{}).
		Where("intent_id = ? AND status <> ?", intentID, string(editorial.IntentDispatched)).
		Updates(map[string]any{
			"status":     string(editorial.IntentFailed),
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error; err != nil {
		return wrapDBError(err, "mark intent failed")
	}
	return nil
}

// ListUndelivered returns pending or failed intents that still have attempts left, oldest first.
func (o *NotificationOutbox) ListUndelivered(ctx context.Context, maxAttempts int, limit int) ([]ports.PendingIntent, error) {
	db, err := dbFromContext(ctx, o.db)
	if err != nil {
		return nil, err
	}

	query := db.Where("status IN ?", []string{string(editorial.IntentPending), string(editorial.IntentFailed)})
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.NotificationIntent
	if err := query.Order("intent_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query undelivered intents")
	}
	return mapPendingIntents(rows), nil
}

func (o *NotificationOutbox) ListIntents(ctx context.Context, manuscriptID uint64) ([]ports.PendingIntent, error) {
	db, err := dbFromContext(ctx, o.db)
	if err != nil {
		return nil, err
	}

	var rows []model.NotificationIntent
	if err := db.Where("manuscript_id = ?", manuscriptID).Order("intent_id asc").Find(&rows).Error; err != nil {
		return nil, wrapDBError(err, "query intents")
	}
	return mapPendingIntents(rows), nil
}

func mapPendingIntents(rows []model.NotificationIntent) []ports.PendingIntent {
	items := make([]ports.PendingIntent, 0, len(rows))
	for _, row := range rows {
		payload := map[string]string{}
		if row.PayloadJSON != "" {
			_ = json.Unmarshal([]byte(row.PayloadJSON), &payload)
		}
		items = append(items, ports.PendingIntent{
			Intent: editorial.Intent{
				ID:              row.IntentID,
				IdempotencyKey:  row.IdempotencyKey,
				ManuscriptID:    row.ManuscriptID,
				TemplateKey:     editorial.TemplateKey(row.TemplateKey),
				RecipientUserID: row.RecipientUserID,
				Payload:         payload,
				CreatedAt:       parseTime(row.CreatedAt),
			},
			Status:   editorial.IntentStatus(row.Status),
			Attempts: row.Attempts,
		})
	}
	return items
}
