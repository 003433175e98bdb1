package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateAssignment),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrConflictingTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps the workflow error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, status, map[string]any{"error": "internal", "message": "internal error"})
		return
	}

	body := map[string]any{
		"error":   editorial.ResultLabel(err),
		"message": err.Error(),
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	var terr *domain.TransitionError
	if errors.As(err, &terr) {
		body["current_state"] = terr.From
		body["action"] = terr.Action
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": "bad_request", "message": msg})
}
