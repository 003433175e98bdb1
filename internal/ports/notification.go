package ports

import (
	"context"
	"time"

	"journalflow/internal/domain/editorial"
)

// Dispatcher hands an intent to the delivery system. Implementations must be safe
// for redelivery of the same IdempotencyKey.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent editorial.Intent) error
}

type PendingIntent struct {
	editorial.Intent
	Status   editorial.IntentStatus
	Attempts int
}

// NotificationOutbox stores intents next to the transition that produced them.
type NotificationOutbox interface {
	EnqueueIntents(ctx context.Context, intents []editorial.Intent) ([]editorial.Intent, error)
	MarkDispatched(ctx context.Context, intentID uint64, at time.Time) error
	MarkFailed(ctx context.Context, intentID uint64, reason string) error
	ListUndelivered(ctx context.Context, maxAttempts int, limit int) ([]PendingIntent, error)
	ListIntents(ctx context.Context, manuscriptID uint64) ([]PendingIntent, error)
}
