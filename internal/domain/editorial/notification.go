package editorial

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TemplateKey identifies the message an external dispatcher renders for an intent.
type TemplateKey string

const (
	TemplateSubmissionAck    TemplateKey = "submission-ack"
	TemplateNewSubmission    TemplateKey = "new-submission"
	TemplateScreeningReject  TemplateKey = "screening-reject"
	TemplateScreeningRevise  TemplateKey = "screening-revise"
	TemplateReviewInvitation TemplateKey = "review-invitation"
	TemplateReviewCompleted  TemplateKey = "review-completed"
	TemplateFinalDecision    TemplateKey = "final-decision"
	TemplatePublished        TemplateKey = "published"
	TemplateEditorAssigned   TemplateKey = "handling-editor-assigned"
)

// TemplateKeys lists every key the engine may emit.
func TemplateKeys() []TemplateKey {
	return []TemplateKey{
		TemplateSubmissionAck,
		TemplateNewSubmission,
		TemplateScreeningReject,
		TemplateScreeningRevise,
		TemplateReviewInvitation,
		TemplateReviewCompleted,
		TemplateFinalDecision,
		TemplatePublished,
		TemplateEditorAssigned,
	}
}

// Intent is a notification request handed to an external dispatcher.
// IdempotencyKey lets the dispatcher drop redeliveries.
type Intent struct {
	ID              uint64            `json:"id,omitempty"`
	IdempotencyKey  string            `json:"idempotency_key"`
	ManuscriptID    uint64            `json:"manuscript_id"`
	TemplateKey     TemplateKey       `json:"template_key" jsonschema:"enum=submission-ack,enum=new-submission,enum=screening-reject,enum=screening-revise,enum=review-invitation,enum=review-completed,enum=final-decision,enum=published,enum=handling-editor-assigned"`
	RecipientUserID uint64            `json:"recipient_user_id"`
	Payload         map[string]string `json:"payload"`
	CreatedAt       time.Time         `json:"created_at"`
}

type IntentStatus string

const (
	IntentPending    IntentStatus = "pending"
	IntentDispatched IntentStatus = "dispatched"
	IntentFailed     IntentStatus = "failed"
)

// Capability is a named permission checked through the authorization collaborator.
type Capability string

const (
	CapabilityEditor   Capability = "editor"
	CapabilityManager  Capability = "manager"
	CapabilityReviewer Capability = "reviewer"
	CapabilityAuthor   Capability = "author"
)

// EditorialCapabilities are the capabilities that may act as an editor.
func EditorialCapabilities() []Capability {
	return []Capability{CapabilityEditor, CapabilityManager}
}

func ParseCapability(raw string) (Capability, error) {
	switch c := Capability(strings.ToLower(strings.TrimSpace(raw))); c {
	case CapabilityEditor, CapabilityManager, CapabilityReviewer, CapabilityAuthor:
		return c, nil
	default:
		return "", Invalid("capability", "unknown capability "+raw)
	}
}

// Preview truncates text to at most limit runes on a word boundary, appending an ellipsis.
func Preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)[:limit]
	end := len(runes)
	for i := end - 1; i > limit/2; i-- {
		if runes[i] == ' ' {
			end = i
			break
		}
	}
	return strings.TrimRight(string(runes[:end]), " ,.;:") + "…"
}
