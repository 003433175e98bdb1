package ports

import (
	"context"
	"errors"
	"time"

	"journalflow/internal/domain/editorial"
)

var (
	ErrVolumeNotFound = errors.New("volume not found")
	ErrIssueNotFound  = errors.New("issue not found")
)

// IssueReader is the read model the publication binder validates targets against.
type IssueReader interface {
	GetIssue(ctx context.Context, issueID uint64) (editorial.Issue, error)
	GetVolume(ctx context.Context, volumeID uint64) (editorial.Volume, error)
}

type IssueRepository interface {
	IssueReader
	CreateVolume(ctx context.Context, v editorial.Volume) (editorial.Volume, error)
	ListVolumes(ctx context.Context) ([]editorial.Volume, error)
	CreateIssue(ctx context.Context, i editorial.Issue) (editorial.Issue, error)
	ListIssues(ctx context.Context, volumeID uint64) ([]editorial.Issue, error)
	UpdateIssueStatus(ctx context.Context, issueID uint64, status editorial.IssueStatus, updatedAt time.Time) error
}
