package editorial

import (
	"time"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

// Views are the wire shapes shared by the HTTP API and CLI output.

type PublicationView struct {
	IssueID     uint64    `json:"issue_id" yaml:"issue_id"`
	PageStart   string    `json:"page_start,omitempty" yaml:"page_start,omitempty"`
	PageEnd     string    `json:"page_end,omitempty" yaml:"page_end,omitempty"`
	DOI         string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
}

type ManuscriptView struct {
	ID               uint64           `json:"id" yaml:"id"`
	TrackingCode     string           `json:"tracking_code" yaml:"tracking_code"`
	Title            string           `json:"title" yaml:"title"`
	Abstract         string           `json:"abstract" yaml:"abstract"`
	Keywords         []string         `json:"keywords" yaml:"keywords"`
	Category         string           `json:"category" yaml:"category"`
	SubmitterID      uint64           `json:"submitter_id" yaml:"submitter_id"`
	HandlingEditorID *uint64          `json:"handling_editor_id,omitempty" yaml:"handling_editor_id,omitempty"`
	Status           string           `json:"status" yaml:"status"`
	FileRef          string           `json:"file_ref" yaml:"file_ref"`
	Publication      *PublicationView `json:"publication,omitempty" yaml:"publication,omitempty"`
	Version          uint64           `json:"version" yaml:"version"`
	SubmittedAt      time.Time        `json:"submitted_at" yaml:"submitted_at"`
	UpdatedAt        time.Time        `json:"updated_at" yaml:"updated_at"`
}

type AssignmentView struct {
	ID           uint64     `json:"id" yaml:"id"`
	ManuscriptID uint64     `json:"manuscript_id" yaml:"manuscript_id"`
	UserID       uint64     `json:"user_id" yaml:"user_id"`
	Role         string     `json:"role" yaml:"role"`
	Status       string     `json:"status" yaml:"status"`
	DueDate      string     `json:"due_date" yaml:"due_date"`
	RespondedAt  *time.Time `json:"responded_at,omitempty" yaml:"responded_at,omitempty"`
	Version      uint64     `json:"version" yaml:"version"`
}

type ReviewView struct {
	ID                  uint64        `json:"id" yaml:"id"`
	AssignmentID        uint64        `json:"assignment_id" yaml:"assignment_id"`
	Scores              domain.Scores `json:"scores" yaml:"scores"`
	CommentForAuthor    string        `json:"comment_for_author" yaml:"comment_for_author"`
	ConfidentialComment string        `json:"confidential_comment,omitempty" yaml:"confidential_comment,omitempty"`
	Recommendation      string        `json:"recommendation" yaml:"recommendation"`
	SubmittedAt         time.Time     `json:"submitted_at" yaml:"submitted_at"`
}

type EventView struct {
	EventID      uint64    `json:"event_id" yaml:"event_id"`
	ManuscriptID uint64    `json:"manuscript_id" yaml:"manuscript_id"`
	ActorID      uint64    `json:"actor_id" yaml:"actor_id"`
	Action       string    `json:"action" yaml:"action"`
	FromStatus   string    `json:"from_status,omitempty" yaml:"from_status,omitempty"`
	ToStatus     string    `json:"to_status" yaml:"to_status"`
	Note         string    `json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

type TallyView struct {
	Completed       int            `json:"completed" yaml:"completed"`
	Outstanding     int            `json:"outstanding" yaml:"outstanding"`
	Complete        bool           `json:"complete" yaml:"complete"`
	Recommendations map[string]int `json:"recommendations" yaml:"recommendations"`
	MeanRelevance   float64        `json:"mean_relevance" yaml:"mean_relevance"`
	MeanNovelty     float64        `json:"mean_novelty" yaml:"mean_novelty"`
	MeanMethodology float64        `json:"mean_methodology" yaml:"mean_methodology"`
}

type IntentView struct {
	ID              uint64            `json:"id" yaml:"id"`
	IdempotencyKey  string            `json:"idempotency_key" yaml:"idempotency_key"`
	TemplateKey     string            `json:"template_key" yaml:"template_key"`
	RecipientUserID uint64            `json:"recipient_user_id" yaml:"recipient_user_id"`
	Status          string            `json:"status" yaml:"status"`
	Attempts        int               `json:"attempts" yaml:"attempts"`
	Payload         map[string]string `json:"payload" yaml:"payload"`
}

type DetailView struct {
	Manuscript  ManuscriptView        `json:"manuscript" yaml:"manuscript"`
	Authors     []domain.AuthorRecord `json:"authors" yaml:"authors"`
	Assignments []AssignmentView      `json:"assignments" yaml:"assignments"`
	Reviews     []ReviewView          `json:"reviews" yaml:"reviews"`
	Events      []EventView           `json:"events" yaml:"events"`
	Tally       TallyView             `json:"tally" yaml:"tally"`
	Intents     []IntentView          `json:"intents" yaml:"intents"`
}

type VolumeView struct {
	ID     uint64 `json:"id" yaml:"id"`
	Number int    `json:"number" yaml:"number"`
	Year   int    `json:"year" yaml:"year"`
}

type IssueView struct {
	ID         uint64 `json:"id" yaml:"id"`
	VolumeID   uint64 `json:"volume_id" yaml:"volume_id"`
	Number     int    `json:"number" yaml:"number"`
	Year       int    `json:"year" yaml:"year"`
	Month      int    `json:"month" yaml:"month"`
	Status     string `json:"status" yaml:"status"`
	CoverAsset string `json:"cover_asset,omitempty" yaml:"cover_asset,omitempty"`
}

type UserView struct {
	ID           uint64   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Email        string   `json:"email" yaml:"email"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

func NewManuscriptView(m domain.Manuscript) ManuscriptView {
	v := ManuscriptView{
		ID:               m.ID,
		TrackingCode:     m.TrackingCode,
		Title:            m.Title,
		Abstract:         m.Abstract,
		Keywords:         m.Keywords,
		Category:         m.Category,
		SubmitterID:      m.SubmitterID,
		HandlingEditorID: m.HandlingEditorID,
		Status:           string(m.Status),
		FileRef:          m.FileRef,
		Version:          m.Version,
		SubmittedAt:      m.SubmittedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if v.Keywords == nil {
		v.Keywords = []string{}
	}
	if m.Publication != nil {
		v.Publication = &PublicationView{
			IssueID:     m.Publication.IssueID,
			PageStart:   m.Publication.PageStart,
			PageEnd:     m.Publication.PageEnd,
			DOI:         m.Publication.DOI,
			PublishedAt: m.Publication.PublishedAt,
		}
	}
	return v
}

func NewManuscriptViews(items []domain.Manuscript) []ManuscriptView {
	out := make([]ManuscriptView, 0, len(items))
	for _, m := range items {
		out = append(out, NewManuscriptView(m))
	}
	return out
}

func NewAssignmentView(a domain.Assignment) AssignmentView {
	return AssignmentView{
		ID:           a.ID,
		ManuscriptID: a.ManuscriptID,
		UserID:       a.UserID,
		Role:         string(a.Role),
		Status:       string(a.Status),
		DueDate:      a.DueDate.Format(time.DateOnly),
		RespondedAt:  a.RespondedAt,
		Version:      a.Version,
	}
}

func NewAssignmentViews(items []domain.Assignment) []AssignmentView {
	out := make([]AssignmentView, 0, len(items))
	for _, a := range items {
		out = append(out, NewAssignmentView(a))
	}
	return out
}

func NewReviewView(r domain.Review) ReviewView {
	return ReviewView{
		ID:                  r.ID,
		AssignmentID:        r.AssignmentID,
		Scores:              r.Scores,
		CommentForAuthor:    r.CommentForAuthor,
		ConfidentialComment: r.ConfidentialComment,
		Recommendation:      string(r.Recommendation),
		SubmittedAt:         r.SubmittedAt,
	}
}

func NewEventView(e ports.ManuscriptEvent) EventView {
	return EventView{
		EventID:      e.EventID,
		ManuscriptID: e.ManuscriptID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		FromStatus:   e.FromStatus,
		ToStatus:     e.ToStatus,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt,
	}
}

func NewEventViews(items []ports.ManuscriptEvent) []EventView {
	out := make([]EventView, 0, len(items))
	for _, e := range items {
		out = append(out, NewEventView(e))
	}
	return out
}

func NewTallyView(t domain.ReviewTally) TallyView {
	recs := make(map[string]int, len(t.Recommendations))
	for k, n := range t.Recommendations {
		recs[string(k)] = n
	}
	return TallyView{
		Completed:       t.Completed,
		Outstanding:     t.Outstanding,
		Complete:        t.Complete(),
		Recommendations: recs,
		MeanRelevance:   t.MeanRelevance,
		MeanNovelty:     t.MeanNovelty,
		MeanMethodology: t.MeanMethodology,
	}
}

func NewDetailView(d ManuscriptDetail) DetailView {
	v := DetailView{
		Manuscript:  NewManuscriptView(d.Manuscript),
		Authors:     d.Authors,
		Assignments: NewAssignmentViews(d.Assignments),
		Reviews:     make([]ReviewView, 0, len(d.Reviews)),
		Events:      NewEventViews(d.Events),
		Tally:       NewTallyView(d.Tally),
		Intents:     make([]IntentView, 0, len(d.Intents)),
	}
	if v.Authors == nil {
		v.Authors = []domain.AuthorRecord{}
	}
	for _, r := range d.Reviews {
		v.Reviews = append(v.Reviews, NewReviewView(r))
	}
	for _, in := range d.Intents {
		v.Intents = append(v.Intents, IntentView{
			ID:              in.ID,
			IdempotencyKey:  in.IdempotencyKey,
			TemplateKey:     string(in.TemplateKey),
			RecipientUserID: in.RecipientUserID,
			Status:          string(in.Status),
			Attempts:        in.Attempts,
			Payload:         in.Payload,
		})
	}
	return v
}

func NewVolumeView(v domain.Volume) VolumeView {
	return VolumeView{ID: v.ID, Number: v.Number, Year: v.Year}
}

func NewIssueView(i domain.Issue) IssueView {
	return IssueView{
		ID:         i.ID,
		VolumeID:   i.VolumeID,
		Number:     i.Number,
		Year:       i.Year,
		Month:      i.Month,
		Status:     string(i.Status),
		CoverAsset: i.CoverAsset,
	}
}

func NewUserView(u ports.UserProfile) UserView {
	caps := make([]string, 0, len(u.Capabilities))
	for _, c := range u.Capabilities {
		caps = append(caps, string(c))
	}
	return UserView{ID: u.UserID, Name: u.Name, Email: u.Email, Capabilities: caps}
}

// Redacted drops confidential reviewer comments and the notification outbox for
// readers outside the editorial office.
func (v DetailView) Redacted() DetailView {
	reviews := make([]ReviewView, 0, len(v.Reviews))
	for _, r := range v.Reviews {
		r.ConfidentialComment = ""
		reviews = append(reviews, r)
	}
	v.Reviews = reviews
	v.Intents = []IntentView{}
	return v
}
