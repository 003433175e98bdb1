package ports

import (
	"context"
	"errors"
	"time"

	"journalflow/internal/domain/editorial"
)

var (
	ErrManuscriptNotFound = errors.New("manuscript not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrReviewNotFound     = errors.New("review not found")
	// ErrStaleWrite is returned when a compare-and-set update matched no row.
	ErrStaleWrite = errors.New("stale write")
)

type ManuscriptFilter struct {
	Statuses         []editorial.ManuscriptStatus
	SubmitterID      uint64
	HandlingEditorID uint64
	Limit            int
}

// ManuscriptEvent is one row of the manuscript status history.
type ManuscriptEvent struct {
	EventID      uint64
	ManuscriptID uint64
	ActorID      uint64
	Action       string
	FromStatus   string
	ToStatus     string
	Note         string
	CreatedAt    time.Time
}

type ManuscriptEventCreate struct {
	ManuscriptID uint64
	ActorID      uint64
	Action       string
	FromStatus   string
	ToStatus     string
	Note         string
	CreatedAt    time.Time
}

type EditorialReadRepository interface {
	GetManuscript(ctx context.Context, manuscriptID uint64) (editorial.Manuscript, error)
	GetManuscriptByTrackingCode(ctx context.Context, code string) (editorial.Manuscript, error)
	ListManuscripts(ctx context.Context, filter ManuscriptFilter) ([]editorial.Manuscript, error)
	ListAuthors(ctx context.Context, manuscriptID uint64) ([]editorial.AuthorRecord, error)
	GetAssignment(ctx context.Context, assignmentID uint64) (editorial.Assignment, error)
	ListAssignments(ctx context.Context, manuscriptID uint64) ([]editorial.Assignment, error)
	ListAssignmentsForUser(ctx context.Context, userID uint64, statuses []editorial.AssignmentStatus) ([]editorial.Assignment, error)
	FindActiveAssignment(ctx context.Context, manuscriptID uint64, userID uint64, role editorial.AssignmentRole) (editorial.Assignment, bool, error)
	GetReviewByAssignment(ctx context.Context, assignmentID uint64) (editorial.Review, error)
	ListReviews(ctx context.Context, manuscriptID uint64) ([]editorial.Review, error)
	ListEvents(ctx context.Context, manuscriptID uint64) ([]ManuscriptEvent, error)
	ListEventsAfter(ctx context.Context, afterEventID uint64, limit int) ([]ManuscriptEvent, error)
}

// EditorialRepository persists manuscripts and their owned rows.
//
// Update methods are compare-and-set: they apply only when the stored status and
// version still equal the expected values and return ErrStaleWrite otherwise.
type EditorialRepository interface {
	EditorialReadRepository
	CreateManuscript(ctx context.Context, m editorial.Manuscript, authors []editorial.AuthorRecord) (editorial.Manuscript, error)
	UpdateManuscript(ctx context.Context, m editorial.Manuscript, expected editorial.ManuscriptStatus, expectedVersion uint64) (editorial.Manuscript, error)
	CreateAssignment(ctx context.Context, a editorial.Assignment) (editorial.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, a editorial.Assignment, next editorial.AssignmentStatus, at time.Time) (editorial.Assignment, error)
	CreateReview(ctx context.Context, r editorial.Review) (editorial.Review, error)
	AppendEvent(ctx context.Context, input ManuscriptEventCreate) error
}
