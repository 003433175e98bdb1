package editorial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domain "journalflow/internal/domain/editorial"
)

type InviteInput struct {
	ManuscriptID uint64
	ActorID      uint64
	ReviewerID   uint64
	// DueDate defaults to the configured review window when zero.
	DueDate time.Time
}

// Invite creates a pending reviewer assignment on a manuscript under review.
func (s *Service) Invite(ctx context.Context, input InviteInput) (domain.Assignment, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Assignment{}, err
	}
	ctx = s.logger(ctx, "invite",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
		slog.Uint64("reviewer_id", input.ReviewerID),
	)

	var created domain.Assignment
	err := s.transact(ctx, "invite", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		if m.Status != domain.StatusReviewing {
			return &domain.TransitionError{Entity: "manuscript", ID: m.ID, From: string(m.Status), Action: "invite_reviewer"}
		}

		reviewer, err := s.requireUser(txCtx, input.ReviewerID, "reviewer")
		if err != nil {
			return err
		}
		ok, err := s.directory.HasCapability(txCtx, reviewer.UserID, domain.CapabilityReviewer)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFoundf("reviewer %d", reviewer.UserID)
		}
		if reviewer.UserID == m.SubmitterID {
			return domain.Invalid("reviewer_id", "the submitter cannot review their own manuscript")
		}

		due := input.DueDate.UTC()
		if input.DueDate.IsZero() {
			due = fx.now.Add(s.reviewWindow)
		}
		if !due.After(fx.now) {
			return domain.Invalid("due_date", "due date must be in the future")
		}

		// The version bump takes the manuscript row, so a concurrent invite for the
		// same reviewer fails the compare-and-set instead of racing the lookup below.
		touched := m
		touched.UpdatedAt = fx.now
		if _, err := s.saveManuscript(txCtx, m, touched); err != nil {
			return err
		}
		if _, exists, err := s.repo.FindActiveAssignment(txCtx, m.ID, reviewer.UserID, domain.RoleReviewer); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("reviewer %d on manuscript %d: %w", reviewer.UserID, m.ID, domain.ErrDuplicateAssignment)
		}

		created, err = s.repo.CreateAssignment(txCtx, domain.Assignment{
			ManuscriptID: m.ID,
			UserID:       reviewer.UserID,
			Role:         domain.RoleReviewer,
			Status:       domain.AssignmentPending,
			DueDate:      due,
			CreatedAt:    fx.now,
			UpdatedAt:    fx.now,
		})
		if err != nil {
			return err
		}
		note := fmt.Sprintf("assignment %d reviewer %d", created.ID, reviewer.UserID)
		if err := s.appendEvent(txCtx, m, input.ActorID, "invite_reviewer", "", string(created.Status), note, fx.now); err != nil {
			return err
		}

		payload := s.basePayload(m, reviewer.Name)
		payload["abstract_preview"] = domain.Preview(m.Abstract, s.previewRunes)
		payload["due_date"] = due.Format(time.DateOnly)
		payload["action_url"] = s.reviewURL(created)
		fx.notify(m, domain.TemplateReviewInvitation, reviewer.UserID, payload)
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return created, nil
}

type RespondInput struct {
	AssignmentID uint64
	ActorID      uint64
	Decision     string
}

// Respond records the invited reviewer's accept or decline.
func (s *Service) Respond(ctx context.Context, input RespondInput) (domain.Assignment, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Assignment{}, err
	}
	ctx = s.logger(ctx, "respond",
		slog.Uint64("assignment_id", input.AssignmentID),
		slog.Uint64("actor_id", input.ActorID),
		slog.String("decision", input.Decision),
	)

	decision, err := domain.ParseResponseDecision(input.Decision)
	if err != nil {
		s.observeTransition("respond", err)
		return domain.Assignment{}, err
	}

	var result domain.Assignment
	err = s.transact(ctx, "respond", func(txCtx context.Context, fx *effects) error {
		a, err := s.loadAssignment(txCtx, input.AssignmentID)
		if err != nil {
			return err
		}
		if a.UserID != input.ActorID {
			return domain.NotFoundf("assignment %d", input.AssignmentID)
		}
		to, err := a.Transition(decision.Action())
		if err != nil {
			return err
		}
		result, err = s.saveAssignment(txCtx, a, to, fx.now)
		if err != nil {
			return err
		}
		return s.repo.AppendEvent(txCtx, assignmentEvent(a, input.ActorID, string(decision.Action()), to, fx.now))
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return result, nil
}

type SubmitReviewInput struct {
	AssignmentID uint64
	ActorID      uint64
	Review       domain.ReviewSubmission
}

// SubmitReview stores the single review of an accepted assignment and completes it.
// A second submission fails with ErrAlreadySubmitted.
func (s *Service) SubmitReview(ctx context.Context, input SubmitReviewInput) (domain.Review, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Review{}, err
	}
	ctx = s.logger(ctx, "submit_review",
		slog.Uint64("assignment_id", input.AssignmentID),
		slog.Uint64("actor_id", input.ActorID),
	)

	var stored domain.Review
	err := s.transact(ctx, "submit_review", func(txCtx context.Context, fx *effects) error {
		a, err := s.loadAssignment(txCtx, input.AssignmentID)
		if err != nil {
			return err
		}
		if a.UserID != input.ActorID {
			return domain.NotFoundf("assignment %d", input.AssignmentID)
		}
		to, err := a.Transition(domain.AssignmentSubmitReview)
		if err != nil {
			return err
		}
		recommendation, err := input.Review.Validate()
		if err != nil {
			return err
		}

		completed, err := s.saveAssignment(txCtx, a, to, fx.now)
		if err != nil {
			return err
		}
		stored, err = s.repo.CreateReview(txCtx, domain.Review{
			AssignmentID:        completed.ID,
			Scores:              input.Review.Scores,
			CommentForAuthor:    input.Review.CommentForAuthor,
			ConfidentialComment: input.Review.ConfidentialComment,
			Recommendation:      recommendation,
			SubmittedAt:         fx.now,
		})
		if err != nil {
			return err
		}
		if err := s.repo.AppendEvent(txCtx, assignmentEvent(a, input.ActorID, string(domain.AssignmentSubmitReview), to, fx.now)); err != nil {
			return err
		}

		m, err := s.loadManuscript(txCtx, a.ManuscriptID)
		if err != nil {
			return err
		}
		recipients, err := s.reviewRecipients(txCtx, m)
		if err != nil {
			return err
		}
		reviewerName := s.displayName(txCtx, a.UserID)
		for _, recipient := range recipients {
			payload := s.basePayload(m, s.displayName(txCtx, recipient))
			payload["reviewer_name"] = reviewerName
			payload["recommendation"] = string(recommendation)
			payload["action_url"] = s.manuscriptURL(m)
			fx.notify(m, domain.TemplateReviewCompleted, recipient, payload)
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return stored, nil
}

// reviewRecipients is the handling editor, or every editor when none is set.
func (s *Service) reviewRecipients(ctx context.Context, m domain.Manuscript) ([]uint64, error) {
	if m.HandlingEditorID != nil {
		return []uint64{*m.HandlingEditorID}, nil
	}
	return s.directory.UsersWithCapability(ctx, domain.CapabilityEditor)
}

// ReviewSummary aggregates the reviews of a manuscript for decision support.
func (s *Service) ReviewSummary(ctx context.Context, manuscriptID uint64) (domain.ReviewTally, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ReviewTally{}, err
	}
	if _, err := s.loadManuscript(ctx, manuscriptID); err != nil {
		return domain.ReviewTally{}, err
	}
	return s.tally(ctx, manuscriptID)
}

func (s *Service) tally(ctx context.Context, manuscriptID uint64) (domain.ReviewTally, error) {
	assignments, err := s.repo.ListAssignments(ctx, manuscriptID)
	if err != nil {
		return domain.ReviewTally{}, err
	}
	reviews, err := s.repo.ListReviews(ctx, manuscriptID)
	if err != nil {
		return domain.ReviewTally{}, err
	}
	return domain.Tally(assignments, reviews), nil
}
