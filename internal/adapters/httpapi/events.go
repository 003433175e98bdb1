package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

const (
	eventBatch   = 100
	writeTimeout = 10 * time.Second
)

// handleEventFeed streams manuscript events after the "after" cursor over a websocket.
// Only editors and managers may subscribe.
func (h *Handler) handleEventFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireEditor(r.Context(), actorFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	cursor, ok := queryUint(r, "after")
	if !ok {
		badRequest(w, "invalid after cursor")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(r.Context(), "websocket upgrade failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	logCtx := logging.WithAttrs(ctx, slog.Uint64("actor_id", actorFromContext(r.Context())))
	logging.Info(logCtx, "event feed opened", slog.Uint64("after", cursor))

	ticker := time.NewTicker(h.eventPoll)
	defer ticker.Stop()
	for {
		events, err := h.service.EventsAfter(ctx, cursor, eventBatch)
		if err != nil {
			if ctx.Err() == nil {
				logging.Error(logCtx, "event feed read failed", slog.Any("err", errs.Loggable(err)))
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "event read failed"),
					time.Now().Add(writeTimeout))
			}
			return
		}
		for _, event := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(editorial.NewEventView(event)); err != nil {
				logging.Debug(logCtx, "event feed closed", slog.Any("err", errs.Loggable(err)))
				return
			}
			cursor = event.EventID
		}
		if len(events) == eventBatch {
			continue
		}

		select {
		case <-ctx.Done():
			logging.Info(logCtx, "event feed closed", slog.Uint64("cursor", cursor))
			return
		case <-ticker.C:
		}
	}
}
