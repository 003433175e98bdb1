package editorial

import (
	"context"
	"errors"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

// ManuscriptDetail is the full read view of one manuscript.
type ManuscriptDetail struct {
	Manuscript  domain.Manuscript
	Authors     []domain.AuthorRecord
	Assignments []domain.Assignment
	Reviews     []domain.Review
	Events      []ports.ManuscriptEvent
	Tally       domain.ReviewTally
	Intents     []ports.PendingIntent
}

func (s *Service) ListManuscripts(ctx context.Context, filter ports.ManuscriptFilter) ([]domain.Manuscript, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListManuscripts(ctx, filter)
}

func (s *Service) GetManuscript(ctx context.Context, manuscriptID uint64) (ManuscriptDetail, error) {
	if err := s.ready(ctx); err != nil {
		return ManuscriptDetail{}, err
	}
	m, err := s.loadManuscript(ctx, manuscriptID)
	if err != nil {
		return ManuscriptDetail{}, err
	}
	return s.detail(ctx, m)
}

func (s *Service) GetManuscriptByTrackingCode(ctx context.Context, code string) (ManuscriptDetail, error) {
	if err := s.ready(ctx); err != nil {
		return ManuscriptDetail{}, err
	}
	m, err := s.repo.GetManuscriptByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, ports.ErrManuscriptNotFound) {
			return ManuscriptDetail{}, domain.NotFoundf("manuscript %s", code)
		}
		return ManuscriptDetail{}, err
	}
	return s.detail(ctx, m)
}

func (s *Service) detail(ctx context.Context, m domain.Manuscript) (ManuscriptDetail, error) {
	out := ManuscriptDetail{Manuscript: m}

	var err error
	if out.Authors, err = s.repo.ListAuthors(ctx, m.ID); err != nil {
		return ManuscriptDetail{}, err
	}
	if out.Assignments, err = s.repo.ListAssignments(ctx, m.ID); err != nil {
		return ManuscriptDetail{}, err
	}
	if out.Reviews, err = s.repo.ListReviews(ctx, m.ID); err != nil {
		return ManuscriptDetail{}, err
	}
	if out.Events, err = s.repo.ListEvents(ctx, m.ID); err != nil {
		return ManuscriptDetail{}, err
	}
	if out.Intents, err = s.outbox.ListIntents(ctx, m.ID); err != nil {
		return ManuscriptDetail{}, err
	}
	out.Tally = domain.Tally(out.Assignments, out.Reviews)
	return out, nil
}

// ListReviewerAssignments returns a reviewer's assignments, optionally filtered by status.
func (s *Service) ListReviewerAssignments(ctx context.Context, reviewerID uint64, statuses ...domain.AssignmentStatus) ([]domain.Assignment, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAssignmentsForUser(ctx, reviewerID, statuses)
}

// EventsAfter pages through the event log of all manuscripts by event id.
func (s *Service) EventsAfter(ctx context.Context, afterEventID uint64, limit int) ([]ports.ManuscriptEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListEventsAfter(ctx, afterEventID, limit)
}

// CurrentStatus returns a manuscript's status by tracking code, served from the
// status cache when possible.
func (s *Service) CurrentStatus(ctx context.Context, trackingCode string) (domain.ManuscriptStatus, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	if s.cache != nil {
		if value, found, err := s.cache.Get(ctx, statusCacheKey(trackingCode)); err == nil && found {
			if status, err := domain.ParseManuscriptStatus(value); err == nil {
				return status, nil
			}
		}
	}

	m, err := s.repo.GetManuscriptByTrackingCode(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, ports.ErrManuscriptNotFound) {
			return "", domain.NotFoundf("manuscript %s", trackingCode)
		}
		return "", err
	}
	s.backfillStatus(ctx, m.TrackingCode, m.Status)
	return m.Status, nil
}

// RequireEditor reports NotFound unless actorID may see the editorial queue and event feed.
func (s *Service) RequireEditor(ctx context.Context, actorID uint64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.requireEditor(ctx, actorID)
}
