package editorial

import (
	"fmt"
	"strings"
	"time"
)

// AssignmentStatus tracks one reviewer's relationship to one manuscript.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Active assignments block a second invitation for the same (manuscript, user, role).
func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentAccepted
}

// ActiveAssignmentStatuses lists statuses that count toward the duplicate-invitation check.
func ActiveAssignmentStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignmentPending, AssignmentAccepted}
}

type AssignmentRole string

const RoleReviewer AssignmentRole = "reviewer"

type AssignmentAction string

const (
	AssignmentAccept       AssignmentAction = "accept"
	AssignmentDecline      AssignmentAction = "decline"
	AssignmentSubmitReview AssignmentAction = "submit_review"
)

type assignmentEdge struct {
	from   AssignmentStatus
	action AssignmentAction
}

var assignmentTransitions = map[assignmentEdge]AssignmentStatus{
	{AssignmentPending, AssignmentAccept}:        AssignmentAccepted,
	{AssignmentPending, AssignmentDecline}:       AssignmentDeclined,
	{AssignmentAccepted, AssignmentSubmitReview}: AssignmentCompleted,
}

// Assignment links a user in a role to a manuscript.
type Assignment struct {
	ID           uint64
	ManuscriptID uint64
	UserID       uint64
	Role         AssignmentRole
	Status       AssignmentStatus
	DueDate      time.Time
	Version      uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	RespondedAt  *time.Time
}

// Transition validates action against the assignment state machine.
// Submitting a review on a completed assignment is reported as ErrAlreadySubmitted.
func (a Assignment) Transition(action AssignmentAction) (AssignmentStatus, error) {
	to, ok := assignmentTransitions[assignmentEdge{from: a.Status, action: action}]
	if ok {
		return to, nil
	}
	if action == AssignmentSubmitReview && a.Status == AssignmentCompleted {
		return "", fmt.Errorf("assignment %d: %w", a.ID, ErrAlreadySubmitted)
	}
	return "", &TransitionError{
		Entity: "assignment",
		ID:     a.ID,
		From:   string(a.Status),
		Action: string(action),
	}
}

type ResponseDecision string

const (
	ResponseAccept  ResponseDecision = "accept"
	ResponseDecline ResponseDecision = "decline"
)

func ParseResponseDecision(raw string) (ResponseDecision, error) {
	switch d := ResponseDecision(strings.ToLower(strings.TrimSpace(raw))); d {
	case ResponseAccept, ResponseDecline:
		return d, nil
	default:
		return "", Invalid("decision", fmt.Sprintf("unknown response %q", raw))
	}
}

func (d ResponseDecision) Action() AssignmentAction {
	if d == ResponseAccept {
		return AssignmentAccept
	}
	return AssignmentDecline
}
