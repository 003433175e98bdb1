package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
	"journalflow/internal/usecase/editorial"
)

func (h *Handler) handleListManuscripts(w http.ResponseWriter, r *http.Request) {
	var filter ports.ManuscriptFilter
	for _, raw := range splitCSV(r.URL.Query().Get("status")) {
		status, err := domain.ParseManuscriptStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	var ok bool
	if filter.SubmitterID, ok = queryUint(r, "submitter_id"); !ok {
		badRequest(w, "invalid submitter_id")
		return
	}
	if filter.HandlingEditorID, ok = queryUint(r, "handling_editor_id"); !ok {
		badRequest(w, "invalid handling_editor_id")
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.service.ListManuscripts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptViews(list))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.Submission
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.Submit(r.Context(), editorial.SubmitInput{
		ActorID:    actorFromContext(r.Context()),
		Submission: req,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, editorial.NewManuscriptView(m))
}

func (h *Handler) handleGetManuscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	detail, err := h.service.GetManuscript(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, detail)
}

func (h *Handler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetManuscriptByTrackingCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, detail)
}

func (h *Handler) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := h.service.CurrentStatus(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking_code": code, "status": status})
}

type resubmitRequest struct {
	FileRef string `json:"file_ref"`
	Note    string `json:"note"`
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req resubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.Resubmit(r.Context(), editorial.ResubmitInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		FileRef:      req.FileRef,
		Note:         req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptView(m))
}

type screenRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req screenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.Screen(r.Context(), editorial.ScreenInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		Decision:     req.Decision,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptView(m))
}

type assignEditorRequest struct {
	EditorID uint64 `json:"editor_id"`
}

func (h *Handler) handleAssignEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req assignEditorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.AssignHandlingEditor(r.Context(), editorial.AssignEditorInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		EditorID:     req.EditorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptView(m))
}

type finalDecisionRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

func (h *Handler) handleFinalDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req finalDecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.RecordFinalDecision(r.Context(), editorial.FinalDecisionInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		Decision:     req.Decision,
		Note:         req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptView(m))
}

type publishRequest struct {
	IssueID   uint64 `json:"issue_id"`
	PageStart string `json:"page_start"`
	PageEnd   string `json:"page_end"`
	DOI       string `json:"doi"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	m, err := h.service.Publish(r.Context(), editorial.PublishInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		IssueID:      req.IssueID,
		PageStart:    req.PageStart,
		PageEnd:      req.PageEnd,
		DOI:          req.DOI,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewManuscriptView(m))
}

func (h *Handler) writeDetail(w http.ResponseWriter, r *http.Request, detail editorial.ManuscriptDetail) {
	view := editorial.NewDetailView(detail)
	if err := h.service.RequireEditor(r.Context(), actorFromContext(r.Context())); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		view = view.Redacted()
	}
	writeJSON(w, http.StatusOK, view)
}
