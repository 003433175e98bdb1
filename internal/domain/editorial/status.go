package editorial

import (
	"fmt"
	"strings"
)

// ManuscriptStatus is the closed set of lifecycle states a manuscript moves through.
type ManuscriptStatus string

const (
	StatusDraft         ManuscriptStatus = "draft"
	StatusSubmitted     ManuscriptStatus = "submitted"
	StatusScreening     ManuscriptStatus = "screening"
	StatusReviewing     ManuscriptStatus = "reviewing"
	StatusFinalDecision ManuscriptStatus = "final_decision"
	StatusPublished     ManuscriptStatus = "published"
	StatusArchived      ManuscriptStatus = "archived"
)

var manuscriptStatuses = []ManuscriptStatus{
	StatusDraft,
	StatusSubmitted,
	StatusScreening,
	StatusReviewing,
	StatusFinalDecision,
	StatusPublished,
	StatusArchived,
}

// ManuscriptStatuses lists every status in lifecycle order.
func ManuscriptStatuses() []ManuscriptStatus {
	out := make([]ManuscriptStatus, len(manuscriptStatuses))
	copy(out, manuscriptStatuses)
	return out
}

func ParseManuscriptStatus(raw string) (ManuscriptStatus, error) {
	candidate := ManuscriptStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range manuscriptStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", Invalid("status", fmt.Sprintf("unknown manuscript status %q", raw))
}

// RequiresHandlingEditor reports whether a manuscript in this status must carry a handling editor.
func (s ManuscriptStatus) RequiresHandlingEditor() bool {
	return s == StatusReviewing || s == StatusFinalDecision || s == StatusPublished
}

// Action names one edge request against the manuscript state machine.
type Action string

const (
	ActionScreenProceed  Action = "screen_proceed"
	ActionScreenReject   Action = "screen_reject"
	ActionScreenRevision Action = "screen_revision"
	ActionAssignEditor   Action = "assign_editor"
	ActionDecideAccept   Action = "decide_accept"
	ActionDecideRevision Action = "decide_revision"
	ActionDecideReject   Action = "decide_reject"
	ActionResubmit       Action = "resubmit"
	ActionPublish        Action = "publish"
)

type edge struct {
	from   ManuscriptStatus
	action Action
}

var manuscriptTransitions = map[edge]ManuscriptStatus{
	{StatusSubmitted, ActionScreenProceed}:  StatusScreening,
	{StatusScreening, ActionScreenProceed}:  StatusScreening,
	{StatusSubmitted, ActionScreenReject}:   StatusArchived,
	{StatusScreening, ActionScreenReject}:   StatusArchived,
	{StatusSubmitted, ActionScreenRevision}: StatusDraft,
	{StatusScreening, ActionScreenRevision}: StatusDraft,

	{StatusScreening, ActionAssignEditor}: StatusReviewing,

	{StatusReviewing, ActionDecideAccept}:   StatusFinalDecision,
	{StatusReviewing, ActionDecideRevision}: StatusDraft,
	{StatusReviewing, ActionDecideReject}:   StatusArchived,

	{StatusDraft, ActionResubmit}: StatusSubmitted,

	{StatusFinalDecision, ActionPublish}: StatusPublished,
	{StatusPublished, ActionPublish}:     StatusPublished,
}

// NextStatus resolves the target of action from the current status.
// Any pair missing from the table is an invalid transition.
func NextStatus(from ManuscriptStatus, action Action) (ManuscriptStatus, bool) {
	to, ok := manuscriptTransitions[edge{from: from, action: action}]
	return to, ok
}

// Transition validates action against m and returns the target status.
func (m Manuscript) Transition(action Action) (ManuscriptStatus, error) {
	to, ok := NextStatus(m.Status, action)
	if !ok {
		return "", &TransitionError{
			Entity: "manuscript",
			ID:     m.ID,
			From:   string(m.Status),
			Action: string(action),
		}
	}
	return to, nil
}

// ScreenDecision is the editorial triage outcome.
type ScreenDecision string

const (
	ScreenProceed  ScreenDecision = "proceed"
	ScreenReject   ScreenDecision = "reject"
	ScreenRevision ScreenDecision = "revision"
)

func ParseScreenDecision(raw string) (ScreenDecision, error) {
	switch d := ScreenDecision(strings.ToLower(strings.TrimSpace(raw))); d {
	case ScreenProceed, ScreenReject, ScreenRevision:
		return d, nil
	default:
		return "", Invalid("decision", fmt.Sprintf("unknown screening decision %q", raw))
	}
}

func (d ScreenDecision) Action() Action {
	switch d {
	case ScreenReject:
		return ActionScreenReject
	case ScreenRevision:
		return ActionScreenRevision
	default:
		return ActionScreenProceed
	}
}

// RequiresNotes reports whether the decision must be justified to the author.
func (d ScreenDecision) RequiresNotes() bool {
	return d == ScreenReject || d == ScreenRevision
}

// FinalDecision closes the reviewing stage.
type FinalDecision string

const (
	DecisionAccept   FinalDecision = "accept"
	DecisionRevision FinalDecision = "revision"
	DecisionReject   FinalDecision = "reject"
)

func ParseFinalDecision(raw string) (FinalDecision, error) {
	switch d := FinalDecision(strings.ToLower(strings.TrimSpace(raw))); d {
	case DecisionAccept, DecisionRevision, DecisionReject:
		return d, nil
	default:
		return "", Invalid("decision", fmt.Sprintf("unknown final decision %q", raw))
	}
}

func (d FinalDecision) Action() Action {
	switch d {
	case DecisionAccept:
		return ActionDecideAccept
	case DecisionRevision:
		return ActionDecideRevision
	default:
		return ActionDecideReject
	}
}
