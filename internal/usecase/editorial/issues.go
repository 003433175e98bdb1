package editorial

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

type CreateVolumeInput struct {
	ActorID uint64
	Number  int
	Year    int
}

func (s *Service) CreateVolume(ctx context.Context, input CreateVolumeInput) (domain.Volume, error) {
	if err := s.issuesReady(ctx); err != nil {
		return domain.Volume{}, err
	}
	ctx = s.logger(ctx, "create_volume", slog.Uint64("actor_id", input.ActorID), slog.Int("number", input.Number))

	v := domain.Volume{Number: input.Number, Year: input.Year, CreatedAt: s.clock()}
	if err := v.Validate(); err != nil {
		return domain.Volume{}, err
	}

	var created domain.Volume
	err := s.transact(ctx, "create_volume", func(txCtx context.Context, _ *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		var err error
		created, err = s.issues.CreateVolume(txCtx, v)
		return err
	})
	if err != nil {
		return domain.Volume{}, err
	}
	return created, nil
}

type CreateIssueInput struct {
	ActorID    uint64
	VolumeID   uint64
	Number     int
	Year       int
	Month      int
	CoverAsset string
}

// CreateIssue adds a draft issue to an existing volume.
func (s *Service) CreateIssue(ctx context.Context, input CreateIssueInput) (domain.Issue, error) {
	if err := s.issuesReady(ctx); err != nil {
		return domain.Issue{}, err
	}
	ctx = s.logger(ctx, "create_issue", slog.Uint64("actor_id", input.ActorID), slog.Uint64("volume_id", input.VolumeID))

	now := s.clock()
	issue := domain.Issue{
		VolumeID:   input.VolumeID,
		Number:     input.Number,
		Year:       input.Year,
		Month:      input.Month,
		Status:     domain.IssueDraft,
		CoverAsset: strings.TrimSpace(input.CoverAsset),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := issue.Validate(); err != nil {
		return domain.Issue{}, err
	}

	var created domain.Issue
	err := s.transact(ctx, "create_issue", func(txCtx context.Context, _ *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		if _, err := s.issues.GetVolume(txCtx, input.VolumeID); err != nil {
			if errors.Is(err, ports.ErrVolumeNotFound) {
				return domain.NotFoundf("volume %d", input.VolumeID)
			}
			return err
		}
		var err error
		created, err = s.issues.CreateIssue(txCtx, issue)
		return err
	})
	if err != nil {
		return domain.Issue{}, err
	}
	return created, nil
}

type SetIssueStatusInput struct {
	ActorID uint64
	IssueID uint64
	Status  string
}

// SetIssueStatus moves an issue along draft -> published -> archived.
func (s *Service) SetIssueStatus(ctx context.Context, input SetIssueStatusInput) (domain.Issue, error) {
	if err := s.issuesReady(ctx); err != nil {
		return domain.Issue{}, err
	}
	ctx = s.logger(ctx, "set_issue_status", slog.Uint64("actor_id", input.ActorID), slog.Uint64("issue_id", input.IssueID))

	status, err := domain.ParseIssueStatus(input.Status)
	if err != nil {
		return domain.Issue{}, err
	}

	var result domain.Issue
	err = s.transact(ctx, "set_issue_status", func(txCtx context.Context, fx *effects) error {
		if err := s.requireEditor(txCtx, input.ActorID); err != nil {
			return err
		}
		issue, err := s.issues.GetIssue(txCtx, input.IssueID)
		if err != nil {
			if errors.Is(err, ports.ErrIssueNotFound) {
				return domain.NotFoundf("issue %d", input.IssueID)
			}
			return err
		}
		if issue.Status == status {
			result = issue
			return nil
		}
		if !issue.Status.CanMoveTo(status) {
			return &domain.TransitionError{Entity: "issue", ID: issue.ID, From: string(issue.Status), Action: "set_" + string(status)}
		}
		if err := s.issues.UpdateIssueStatus(txCtx, issue.ID, status, fx.now); err != nil {
			return err
		}
		issue.Status = status
		issue.UpdatedAt = fx.now
		result = issue
		return nil
	})
	if err != nil {
		return domain.Issue{}, err
	}
	return result, nil
}

func (s *Service) ListVolumes(ctx context.Context) ([]domain.Volume, error) {
	if err := s.issuesReady(ctx); err != nil {
		return nil, err
	}
	return s.issues.ListVolumes(ctx)
}

// ListIssues lists the issues of one volume, or all issues when volumeID is zero.
func (s *Service) ListIssues(ctx context.Context, volumeID uint64) ([]domain.Issue, error) {
	if err := s.issuesReady(ctx); err != nil {
		return nil, err
	}
	return s.issues.ListIssues(ctx, volumeID)
}

func (s *Service) issuesReady(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.issues == nil {
		return errors.New("issue repository is required")
	}
	return nil
}
