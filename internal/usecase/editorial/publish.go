package editorial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

type PublishInput struct {
	ManuscriptID uint64
	ActorID      uint64
	IssueID      uint64
	PageStart    string
	PageEnd      string
	DOI          string
}

// Publish binds an accepted manuscript to an issue. On a published manuscript it
// corrects the binding; identical inputs change nothing. The author is notified on
// first publication only.
func (s *Service) Publish(ctx context.Context, input PublishInput) (domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Manuscript{}, err
	}
	if s.issues == nil {
		return domain.Manuscript{}, errors.New("issue repository is required")
	}
	ctx = s.logger(ctx, "publish",
		slog.Uint64("manuscript_id", input.ManuscriptID),
		slog.Uint64("actor_id", input.ActorID),
		slog.Uint64("issue_id", input.IssueID),
	)

	binding := domain.Publication{
		IssueID:   input.IssueID,
		PageStart: strings.TrimSpace(input.PageStart),
		PageEnd:   strings.TrimSpace(input.PageEnd),
		DOI:       strings.TrimSpace(input.DOI),
	}
	if err := binding.Validate(); err != nil {
		s.observeTransition("publish", err)
		return domain.Manuscript{}, err
	}

	var result domain.Manuscript
	err := s.transact(ctx, "publish", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		m, err := s.loadManuscript(txCtx, input.ManuscriptID)
		if err != nil {
			return err
		}
		to, err := m.Transition(domain.ActionPublish)
		if err != nil {
			return err
		}

		issue, volume, err := s.publishTarget(txCtx, binding.IssueID)
		if err != nil {
			return err
		}

		firstPublication := m.Status != domain.StatusPublished || m.Publication == nil
		if !firstPublication && m.Publication.SameBinding(binding) {
			result = m
			return nil
		}

		binding.PublishedAt = fx.now
		if !firstPublication {
			binding.PublishedAt = m.Publication.PublishedAt
		}
		next := m
		next.Status = to
		next.Publication = &binding
		next.UpdatedAt = fx.now
		result, err = s.saveManuscript(txCtx, m, next)
		if err != nil {
			return err
		}

		action := string(domain.ActionPublish)
		if !firstPublication {
			action = "correct_publication"
		}
		note := issue.Label(volume.Number)
		if binding.DOI != "" {
			note += " doi:" + binding.DOI
		}
		if err := s.appendEvent(txCtx, result, input.ActorID, action, string(m.Status), string(to), note, fx.now); err != nil {
			return err
		}
		fx.status(result)
		if !firstPublication {
			return nil
		}

		payload := s.basePayload(result, s.displayName(txCtx, result.SubmitterID))
		payload["issue"] = issue.Label(volume.Number)
		payload["pages"] = formatPages(binding)
		payload["doi"] = binding.DOI
		payload["action_url"] = s.articleURL(result)
		fx.notify(result, domain.TemplatePublished, result.SubmitterID, payload)
		return nil
	})
	if err != nil {
		return domain.Manuscript{}, err
	}
	return result, nil
}

// publishTarget loads the issue and its volume; archived issues cannot receive manuscripts.
func (s *Service) publishTarget(ctx context.Context, issueID uint64) (domain.Issue, domain.Volume, error) {
	issue, err := s.issues.GetIssue(ctx, issueID)
	if err != nil {
		if errors.Is(err, ports.ErrIssueNotFound) {
			return domain.Issue{}, domain.Volume{}, domain.NotFoundf("issue %d", issueID)
		}
		return domain.Issue{}, domain.Volume{}, err
	}
	if issue.Status == domain.IssueArchived {
		return domain.Issue{}, domain.Volume{}, domain.Invalid("issue_id", fmt.Sprintf("issue %d is archived", issueID))
	}
	volume, err := s.issues.GetVolume(ctx, issue.VolumeID)
	if err != nil {
		if errors.Is(err, ports.ErrVolumeNotFound) {
			return domain.Issue{}, domain.Volume{}, domain.NotFoundf("volume %d", issue.VolumeID)
		}
		return domain.Issue{}, domain.Volume{}, err
	}
	return issue, volume, nil
}

func formatPages(p domain.Publication) string {
	if p.PageStart == "" {
		return ""
	}
	return p.PageStart + "-" + p.PageEnd
}
