package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/ports"
	"journalflow/internal/usecase/editorial"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

type RelayOptions struct {
	BatchSize   int
	MaxAttempts int
	Now         func() time.Time
}

// Relay re-dispatches intents the post-commit handoff could not deliver.
// Delivery is at-least-once; dispatchers deduplicate on the idempotency key.
type Relay struct {
	outbox      ports.NotificationOutbox
	dispatcher  ports.Dispatcher
	metrics     ports.Metrics
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

type RelayResult struct {
	Scanned    int
	Dispatched int
	Failed     int
}

func NewRelay(outbox ports.NotificationOutbox, dispatcher ports.Dispatcher, metrics ports.Metrics, opts RelayOptions) *Relay {
	r := &Relay{
		outbox:      outbox,
		dispatcher:  dispatcher,
		metrics:     metrics,
		batchSize:   opts.BatchSize,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// RunOnce dispatches one batch of undelivered intents, oldest first.
func (r *Relay) RunOnce(ctx context.Context) (RelayResult, error) {
	if ctx == nil {
		return RelayResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return RelayResult{}, errs.Wrap(err, "check context")
	}
	if r.outbox == nil || r.dispatcher == nil {
		return RelayResult{}, errors.New("relay requires an outbox and a dispatcher")
	}

	pending, err := r.outbox.ListUndelivered(ctx, r.maxAttempts, r.batchSize)
	if err != nil {
		return RelayResult{}, errs.Wrap(err, "list undelivered intents")
	}

	result := RelayResult{Scanned: len(pending)}
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return result, errs.Wrap(err, "relay interrupted")
		}
		if editorial.DispatchIntent(ctx, r.dispatcher, r.outbox, r.metrics, item.Intent, r.now) {
			result.Dispatched++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "usecase.notification.relay"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := r.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			logging.Error(ctx, "relay batch failed", slog.Any("err", errs.Loggable(err)))
		case result.Scanned > 0:
			logging.Info(ctx, "relay batch done",
				slog.Int("scanned", result.Scanned),
				slog.Int("dispatched", result.Dispatched),
				slog.Int("failed", result.Failed),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
