package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/ports"
)

// MsgPublisher is satisfied by *nats.Conn.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSDispatcher publishes intents as JSON on <prefix>.<template key>. The
// Nats-Msg-Id header carries the idempotency key so JetStream drops redeliveries.
type NATSDispatcher struct {
	publisher     MsgPublisher
	subjectPrefix string
}

var _ ports.Dispatcher = (*NATSDispatcher)(nil)

func NewNATSDispatcher(publisher MsgPublisher, subjectPrefix string) *NATSDispatcher {
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = "journalflow.notifications"
	}
	return &NATSDispatcher{publisher: publisher, subjectPrefix: prefix}
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, intent editorial.Intent) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(intent)
	if err != nil {
		return errs.Wrap(err, "encode intent")
	}

	msg := nats.NewMsg(d.subjectPrefix + "." + string(intent.TemplateKey))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, intent.IdempotencyKey)
	if err := d.publisher.PublishMsg(msg); err != nil {
		return errs.Wrap(err, "publish intent")
	}
	return nil
}
