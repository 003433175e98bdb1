package editorial

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	domain "journalflow/internal/domain/editorial"
)

type ScreenInput struct {
	ManuscriptID uint64
	ActorID      uint64
	Decision     string
	Notes        string
}

// Screen applies the editorial triage decision. Proceeding a manuscript that is
// already in screening is a no-op.
func (s *Service) Screen(ctx context.Context, input ScreenInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	ctx = s.logger(ctx, "screen",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
		slog.String("decision", input.Decision),
	)

	decision, err := domain.ParseScreenDecision(input.Decision)
	if err != nil {
		s.observeTransition("screen", err)
		return domain.Manuscript{}, err
	}
	notes := strings.TrimSpace(input.Notes)
	if decision.RequiresNotes() && notes == "" {
		err := domain.Invalid("notes", fmt.Sprintf("notes are required to %s", decision))
		s.observeTransition("screen", err)
		return domain.Manuscript{}, err
	}

	var result domain.Manuscript
	err = s.transact(ctx, "screen", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		to, err := m.Transition(decision.Action())
		if err != nil {
			return err
		}
		if to == m.Status {
			result = m
			return nil
		}

		next := m
		next.Status = to
		next.UpdatedAt = fx.now
		result, err = s.saveManuscript(txCtx, m, next)
		if err != nil {
			return err
		}
		if err := s.appendEvent(txCtx, result, input.ActorID, string(decision.Action()), string(m.Status), string(to), notes, fx.now); err != nil {
			return err
		}
		fx.status(result)

		var key domain.TemplateKey
		switch decision {
		case domain.ScreenReject:
			key = domain.TemplateScreeningReject
		case domain.ScreenRevision:
			key = domain.TemplateScreeningRevise
		default:
			return nil
		}

		payload := s.basePayload(result, s.displayName(txCtx, result.SubmitterID))
		payload["notes"] = notes
		if decision == domain.ScreenRevision {
			payload["action_url"] = s.manuscriptURL(result)
		}
		fx.notify(result, key, result.SubmitterID, payload)
		return nil
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return result, nil
}

type AssignEditorInput struct {
	ManuscriptID uint64
	ActorID      uint64
	EditorID     uint64
}

// AssignHandlingEditor sets the handling editor of a screened manuscript and
// moves it to reviewing.
func (s *Service) AssignHandlingEditor(ctx context.Context, input AssignEditorInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	ctx = s.logger(ctx, "assign_editor",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
		slog.Uint64("editor_id", input.EditorID),
	)

	var result domain.Manuscript
	err := s.transact(ctx, "assign_editor", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		ok, err := s.directory.HasCapability(txCtx, input.EditorID, domain.CapabilityEditor)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFoundf("editor %d", input.EditorID)
		}
		to, err := m.Transition(domain.ActionAssignEditor)
		if err != nil {
			return err
		}

		editorID := input.EditorID
		next := m
		next.Status = to
		next.HandlingEditorID = &editorID
		next.UpdatedAt = fx.now
		result, err = s.saveManuscript(txCtx, m, next)
		if err != nil {
			return err
		}
		note := fmt.Sprintf("handling editor %d", editorID)
		if err := s.appendEvent(txCtx, result, input.ActorID, string(domain.ActionAssignEditor), string(m.Status), string(to), note, fx.now); err != nil {
			return err
		}
		fx.status(result)

		payload := s.basePayload(result, s.displayName(txCtx, editorID))
		payload["abstract_preview"] = domain.Preview(result.Abstract, s.previewRunes)
		payload["action_url"] = s.manuscriptURL(result)
		fx.notify(result, domain.TemplateEditorAssigned, editorID, payload)
		return nil
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return result, nil
}

type FinalDecisionInput struct {
	ManuscriptID uint64
	ActorID      uint64
	Decision     string
	Note         string
}

// RecordFinalDecision closes the reviewing stage. Accepting requires at least one
// completed review.
func (s *Service) RecordFinalDecision(ctx context.Context, input FinalDecisionInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	ctx = s.logger(ctx, "final_decision",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
		slog.String("decision", input.Decision),
	)

	decision, err := domain.ParseFinalDecision(input.Decision)
	if err != nil {
		s.observeTransition("final_decision", err)
		return domain.Manuscript{}, err
	}

	var result domain.Manuscript
	err = s.transact(ctx, "final_decision", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		to, err := m.Transition(decision.Action())
		if err != nil {
			return err
		}

		tally, err := s.tally(txCtx, m.ID)
		if err != nil {
			return err
		}
		if decision == domain.DecisionAccept && tally.Completed == 0 {
			return domain.Invalid("decision", "accept requires at least one completed review")
		}

		next := m
		next.Status = to
		next.UpdatedAt = fx.now
		result, err = s.saveManuscript(txCtx, m, next)
		if err != nil {
			return err
		}
		if err := s.appendEvent(txCtx, result, input.ActorID, string(decision.Action()), string(m.Status), string(to), input.Note, fx.now); err != nil {
			return err
		}
		fx.status(result)

		payload := s.basePayload(result, s.displayName(txCtx, result.SubmitterID))
		payload["decision"] = string(decision)
		payload["note"] = strings.TrimSpace(input.Note)
		payload["reviews_completed"] = strconv.Itoa(tally.Completed)
		payload["recommendations"] = formatRecommendations(tally)
		payload["action_url"] = s.manuscriptURL(result)
		fx.notify(result, domain.TemplateFinalDecision, result.SubmitterID, payload)
		return nil
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return result, nil
}

func formatRecommendations(tally domain.ReviewTally) string {
	parts := make([]string, 0, len(tally.Recommendations))
	for _, rec := range domain.Recommendations() {
		if n := tally.Recommendations[rec]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", rec, n))
		}
	}
	return strings.Join(parts, " ")
}
