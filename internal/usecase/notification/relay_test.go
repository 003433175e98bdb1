package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

type memoryOutbox struct {
	mu    sync.Mutex
	items []ports.PendingIntent
}

func (o *memoryOutbox) EnqueueIntents(_ context.Context, intents []editorial.Intent) ([]editorial.Intent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range intents {
		intents[i].ID = uint64(len(o.items) + 1)
		o.items = append(o.items, ports.PendingIntent{Intent: intents[i], Status: editorial.IntentPending})
	}
	return intents, nil
}

func (o *memoryOutbox) MarkDispatched(_ context.Context, id uint64, _ time.Time) error {
	return o.update(id, editorial.IntentDispatched)
}

func (o *memoryOutbox) MarkFailed(_ context.Context, id uint64, _ string) error {
	return o.update(id, editorial.IntentFailed)
}

func (o *memoryOutbox) update(id uint64, status editorial.IntentStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.items {
		if o.items[i].ID == id {
			o.items[i].Status = status
			o.items[i].Attempts++
		}
	}
	return nil
}

func (o *memoryOutbox) ListUndelivered(_ context.Context, maxAttempts int, limit int) ([]ports.PendingIntent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ports.PendingIntent
	for _, item := range o.items {
		if item.Status == editorial.IntentDispatched || item.Attempts >= maxAttempts {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *memoryOutbox) ListIntents(_ context.Context, manuscriptID uint64) ([]ports.PendingIntent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ports.PendingIntent
	for _, item := range o.items {
		if item.ManuscriptID == manuscriptID {
			out = append(out, item)
		}
	}
	return out, nil
}

type flakyDispatcher struct {
	mu       sync.Mutex
	failKeys map[string]bool
	seen     []string
}

func (d *flakyDispatcher) Dispatch(_ context.Context, intent editorial.Intent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, intent.IdempotencyKey)
	if d.failKeys[intent.IdempotencyKey] {
		return errors.New("smtp unavailable")
	}
	return nil
}

func seedOutbox(t *testing.T, keys ...string) *memoryOutbox {
	t.Helper()
	o := &memoryOutbox{}
	intents := make([]editorial.Intent, 0, len(keys))
	for _, k := range keys {
		intents = append(intents, editorial.Intent{IdempotencyKey: k, ManuscriptID: 1, TemplateKey: editorial.TemplateSubmissionAck, RecipientUserID: 2})
	}
	if _, err := o.EnqueueIntents(context.Background(), intents); err != nil {
		t.Fatalf("EnqueueIntents() error = %v", err)
	}
	return o
}

func TestRelayRunOnceDispatchesPending(t *testing.T) {
	outbox := seedOutbox(t, "a", "b", "c")
	dispatcher := &flakyDispatcher{failKeys: map[string]bool{"b": true}}
	relay := NewRelay(outbox, dispatcher, nil, RelayOptions{MaxAttempts: 2})

	result, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if result.Scanned != 3 || result.Dispatched != 2 || result.Failed != 1 {
		t.Fatalf("RunOnce() = %+v", result)
	}

	result, err = relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() second error = %v", err)
	}
	if result.Scanned != 1 || result.Failed != 1 {
		t.Fatalf("RunOnce() second = %+v", result)
	}

	result, err = relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() third error = %v", err)
	}
	if result.Scanned != 0 {
		t.Fatalf("RunOnce() after max attempts = %+v", result)
	}
}

func TestRelayRunOnceRespectsBatchSize(t *testing.T) {
	outbox := seedOutbox(t, "a", "b", "c")
	relay := NewRelay(outbox, &flakyDispatcher{}, nil, RelayOptions{BatchSize: 2})

	result, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("RunOnce() scanned = %d", result.Scanned)
	}
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	outbox := seedOutbox(t, "a")
	dispatcher := &flakyDispatcher{}
	relay := NewRelay(outbox, dispatcher, nil, RelayOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.Run(ctx, 10*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for {
		dispatcher.mu.Lock()
		n := len(dispatcher.seen)
		dispatcher.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("relay did not dispatch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not stop")
	}
}
