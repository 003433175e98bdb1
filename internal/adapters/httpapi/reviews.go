package httpapi

import (
	"net/http"
	"time"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/usecase/editorial"
)

type inviteRequest struct {
	ReviewerID uint64 `json:"reviewer_id"`
	// DueDate is YYYY-MM-DD; empty uses the configured review window.
	DueDate string `json:"due_date"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	var due time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.DueDate)
		if err != nil {
			writeError(w, r, domain.Invalid("due_date", "must be YYYY-MM-DD"))
			return
		}
		due = parsed
	}
	a, err := h.service.Invite(r.Context(), editorial.InviteInput{
		ManuscriptID: id,
		ActorID:      actorFromContext(r.Context()),
		ReviewerID:   req.ReviewerID,
		DueDate:      due,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, editorial.NewAssignmentView(a))
}

type respondRequest struct {
	Decision string `json:"decision"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid assignment id")
		return
	}
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	a, err := h.service.Respond(r.Context(), editorial.RespondInput{
		AssignmentID: id,
		ActorID:      actorFromContext(r.Context()),
		Decision:     req.Decision,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewAssignmentView(a))
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid assignment id")
		return
	}
	var req domain.ReviewSubmission
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	review, err := h.service.SubmitReview(r.Context(), editorial.SubmitReviewInput{
		AssignmentID: id,
		ActorID:      actorFromContext(r.Context()),
		Review:       req,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, editorial.NewReviewView(review))
}

func (h *Handler) handleReviewSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid manuscript id")
		return
	}
	tally, err := h.service.ReviewSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewTallyView(tally))
}

func (h *Handler) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	var statuses []domain.AssignmentStatus
	for _, raw := range splitCSV(r.URL.Query().Get("status")) {
		statuses = append(statuses, domain.AssignmentStatus(raw))
	}
	list, err := h.service.ListReviewerAssignments(r.Context(), actorFromContext(r.Context()), statuses...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorial.NewAssignmentViews(list))
}
