package editorial

import (
	"context"
	"log/slog"
	"strconv"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

type SubmitInput struct {
	ActorID    uint64
	Submission domain.Submission
}

// Submit creates a manuscript in submitted with its author records and notifies
// the submitter and every editorial user.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	ctx = s.logger(ctx, "submit", slog.Uint64("actor_id", input.ActorID))

	sub := input.Submission.Normalize()
	if err := sub.Validate(); err != nil {
		s.observeTransition("submit", err)
		return domain.Manuscript{}, err
	}

	var created domain.Manuscript
	err := s.transact(ctx, "submit", func(txCtx context.Context, fx *effects) error {
		submitter, err := s.requireUser(txCtx, input.ActorID, "user")
		if err != nil {
			return err
		}
		if err := s.checkFile(txCtx, sub.FileRef); err != nil {
			return err
		}

		m := domain.Manuscript{
			TrackingCode: domain.NewTrackingCode(s.trackingPrefix, fx.now),
			Title:        sub.Title,
			Abstract:     sub.Abstract,
			Keywords:     sub.Keywords,
			Category:     sub.Category,
			SubmitterID:  submitter.UserID,
			Status:       domain.StatusSubmitted,
			FileRef:      sub.FileRef,
			SubmittedAt:  fx.now,
			UpdatedAt:    fx.now,
		}
		created, err = s.repo.CreateManuscript(txCtx, m, sub.Authors)
		if err != nil {
			return err
		}
		if err := s.appendEvent(txCtx, created, input.ActorID, "submit", "", string(created.Status), "", fx.now); err != nil {
			return err
		}
		fx.status(created)

		primary, _ := domain.PrimaryAuthor(sub.Authors)
		return s.notifySubmission(txCtx, fx, created, submitter, primary, false)
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return created, nil
}

type ResubmitInput struct {
	ManuscriptID uint64
	ActorID      uint64
	FileRef      string
	Note         string
}

// Resubmit returns a manuscript sent back for revision to submitted. Only the
// submitter may resubmit; the file reference is replaced when given.
func (s *Service) Resubmit(ctx context.Context, input ResubmitInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	ctx = s.logger(ctx, "resubmit",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
	)

	var saved domain.Manuscript
	err := s.transact(ctx, "resubmit", func(txCtx context.Context, fx *effects) error {
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		if m.SubmitterID != input.ActorID {
			return domain.NotFoundf("manuscript %d", input.ManuscriptID)
		}
		to, err := m.Transition(domain.ActionResubmit)
		if err != nil {
			return err
		}

		next := m
		next.Status = to
		next.UpdatedAt = fx.now
		if input.FileRef != "" {
			next.FileRef = input.FileRef
		}
		if err := s.checkFile(txCtx, next.FileRef); err != nil {
			return err
		}

		saved, err = s.saveManuscript(txCtx, m, next)
		if err != nil {
			return err
		}
		if err := s.appendEvent(txCtx, saved, input.ActorID, string(domain.ActionResubmit), string(m.Status), string(to), input.Note, fx.now); err != nil {
			return err
		}
		fx.status(saved)

		submitter, err := s.requireUser(txCtx, saved.SubmitterID, "user")
		if err != nil {
			return err
		}
		authors, err := s.repo.ListAuthors(txCtx, saved.ID)
		if err != nil {
			return err
		}
		primary, _ := domain.PrimaryAuthor(authors)
		return s.notifySubmission(txCtx, fx, saved, submitter, primary, true)
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return saved, nil
}

func (s *Service) notifySubmission(ctx context.Context, fx *effects, m domain.Manuscript, submitter ports.UserProfile, primary domain.AuthorRecord, revision bool) error {
	ack := s.basePayload(m, submitter.Name)
	ack["author_name"] = primary.Name
	ack["action_url"] = s.manuscriptURL(m)
	ack["revision"] = strconv.FormatBool(revision)
	fx.notify(m, domain.TemplateSubmissionAck, submitter.UserID, ack)

	editors, err := s.directory.UsersWithCapability(ctx, domain.EditorialCapabilities()...)
	if err != nil {
		return err
	}
	for _, editorID := range editors {
		payload := s.basePayload(m, s.displayName(ctx, editorID))
		payload["author_name"] = primary.Name
		payload["category"] = m.Category
		payload["abstract_preview"] = domain.Preview(m.Abstract, s.previewRunes)
		payload["action_url"] = s.manuscriptURL(m)
		payload["revision"] = strconv.FormatBool(revision)
		fx.notify(m, domain.TemplateNewSubmission, editorID, payload)
	}
	return nil
}
