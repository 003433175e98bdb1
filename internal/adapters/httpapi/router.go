package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/infrastructure/metrics"
	"journalflow/internal/usecase/editorial"
)

type Options struct {
	JWTSecret string
	// Metrics is optional; when set, requests are counted and /metrics is served.
	Metrics *metrics.Recorder
	// EventPoll is how often the websocket feed checks for new events.
	EventPoll time.Duration
}

type Handler struct {
	service   *editorial.Service
	secret    []byte
	metrics   *metrics.Recorder
	eventPoll time.Duration
	upgrader  websocket.Upgrader
}

func NewRouter(service *editorial.Service, opts Options) http.Handler {
	h := &Handler{
		service:   service,
		secret:    []byte(strings.TrimSpace(opts.JWTSecret)),
		metrics:   opts.Metrics,
		eventPoll: opts.EventPoll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	if h.eventPoll <= 0 {
		h.eventPoll = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", h.handleHealthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(h.requireActor)

		api.Get("/manuscripts", h.handleListManuscripts)
		api.Post("/manuscripts", h.handleSubmit)
		api.Get("/manuscripts/by-code/{code}", h.handleGetByCode)
		api.Get("/manuscripts/by-code/{code}/status", h.handleCurrentStatus)
		api.Get("/manuscripts/{id}", h.handleGetManuscript)
		api.Post("/manuscripts/{id}/resubmit", h.handleResubmit)
		api.Post("/manuscripts/{id}/screen", h.handleScreen)
		api.Post("/manuscripts/{id}/handling-editor", h.handleAssignEditor)
		api.Post("/manuscripts/{id}/invitations", h.handleInvite)
		api.Get("/manuscripts/{id}/reviews/summary", h.handleReviewSummary)
		api.Post("/manuscripts/{id}/decision", h.handleFinalDecision)
		api.Post("/manuscripts/{id}/publication", h.handlePublish)

		api.Get("/me/assignments", h.handleMyAssignments)
		api.Post("/assignments/{id}/response", h.handleRespond)
		api.Post("/assignments/{id}/review", h.handleSubmitReview)

		api.Get("/volumes", h.handleListVolumes)
		api.Post("/volumes", h.handleCreateVolume)
		api.Get("/issues", h.handleListIssues)
		api.Post("/issues", h.handleCreateIssue)
		api.Post("/issues/{id}/status", h.handleSetIssueStatus)

		api.Get("/events/ws", h.handleEventFeed)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// observe attaches request attrs to the context logger and records route metrics.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithAttrs(r.Context(),
			slog.String("component", "adapters.httpapi"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if h.metrics != nil {
			h.metrics.InFlight().Inc()
			defer h.metrics.InFlight().Dec()
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.Debug(ctx, "request served", slog.Int("status", status), slog.Duration("elapsed", time.Since(start)))

		if h.metrics == nil {
			return
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if route == "/metrics" {
			return
		}
		h.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func pathID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func queryUint(r *http.Request, name string) (uint64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
