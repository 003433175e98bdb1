package editorial

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

var (
	orcidPattern        = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)
	trackingCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d{4}-[A-Z0-9]{6}$`)
)

// Manuscript is a submitted work moving through the editorial pipeline.
type Manuscript struct {
	ID               uint64
	TrackingCode     string
	Title            string
	Abstract         string
	Keywords         []string
	Category         string
	SubmitterID      uint64
	HandlingEditorID *uint64
	Status           ManuscriptStatus
	FileRef          string
	Publication      *Publication
	Version          uint64
	SubmittedAt      time.Time
	UpdatedAt        time.Time
}

// CheckEditorInvariant verifies the handling editor is set whenever the status needs one.
func (m Manuscript) CheckEditorInvariant() error {
	if m.Status.RequiresHandlingEditor() && m.HandlingEditorID == nil {
		return Invalid("handling_editor_id", fmt.Sprintf("required while %s", m.Status))
	}
	return nil
}

// AuthorRecord is author metadata attached to a manuscript, not an account.
type AuthorRecord struct {
	ID           uint64 `json:"id,omitempty" yaml:"id,omitempty"`
	ManuscriptID uint64 `json:"manuscript_id,omitempty" yaml:"manuscript_id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	Email        string `json:"email" yaml:"email"`
	Affiliation  string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	ORCID        string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	IsPrimary    bool   `json:"is_primary" yaml:"is_primary"`
	OrderIndex   int    `json:"order_index" yaml:"order_index"`
}

func (a AuthorRecord) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required.Error("name is required"), validation.Length(1, 200)),
		validation.Field(&a.Email, validation.Required.Error("email is required"), is.EmailFormat.Error("invalid email format")),
		validation.Field(&a.Affiliation, validation.Length(0, 300)),
		validation.Field(&a.ORCID, validation.Match(orcidPattern).Error("invalid ORCID")),
	)
}

// Submission is the author-supplied payload that creates a manuscript.
type Submission struct {
	Title    string         `json:"title" yaml:"title"`
	Abstract string         `json:"abstract" yaml:"abstract"`
	Keywords []string       `json:"keywords" yaml:"keywords"`
	Category string         `json:"category" yaml:"category"`
	FileRef  string         `json:"file_ref" yaml:"file_ref"`
	Authors  []AuthorRecord `json:"authors" yaml:"authors"`
}

// Normalize trims free text, drops blank keywords and renumbers authors from 0.
func (s Submission) Normalize() Submission {
	out := Submission{
		Title:    strings.TrimSpace(s.Title),
		Abstract: strings.TrimSpace(s.Abstract),
		Category: strings.TrimSpace(s.Category),
		FileRef:  strings.TrimSpace(s.FileRef),
	}

	seen := make(map[string]struct{}, len(s.Keywords))
	for _, raw := range s.Keywords {
		kw := strings.TrimSpace(raw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Keywords = append(out.Keywords, kw)
	}

	out.Authors = make([]AuthorRecord, 0, len(s.Authors))
	for i, a := range s.Authors {
		out.Authors = append(out.Authors, AuthorRecord{
			Name:        strings.TrimSpace(a.Name),
			Email:       strings.TrimSpace(a.Email),
			Affiliation: strings.TrimSpace(a.Affiliation),
			ORCID:       strings.ToUpper(strings.TrimSpace(a.ORCID)),
			IsPrimary:   a.IsPrimary,
			OrderIndex:  i,
		})
	}
	return out
}

func (s Submission) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required.Error("title is required"), validation.Length(1, 500)),
		validation.Field(&s.Abstract, validation.Required.Error("abstract is required")),
		validation.Field(&s.Category, validation.Required.Error("category is required")),
		validation.Field(&s.FileRef, validation.Required.Error("manuscript file is required")),
		validation.Field(&s.Authors, validation.Required.Error("at least one author is required")),
	)
	if err != nil {
		return fromValidation(err)
	}
	return CheckAuthorList(s.Authors)
}

// CheckAuthorList enforces exactly one primary author and contiguous order indices from 0.
func CheckAuthorList(authors []AuthorRecord) error {
	if len(authors) == 0 {
		return Invalid("authors", "at least one author is required")
	}

	primaries := 0
	for i, a := range authors {
		if a.IsPrimary {
			primaries++
		}
		if a.OrderIndex != i {
			return Invalid("authors", fmt.Sprintf("order index %d at position %d", a.OrderIndex, i))
		}
	}
	if primaries != 1 {
		return Invalid("authors", fmt.Sprintf("exactly one primary author is required, got %d", primaries))
	}
	return nil
}

// PrimaryAuthor returns the record flagged primary.
func PrimaryAuthor(authors []AuthorRecord) (AuthorRecord, bool) {
	for _, a := range authors {
		if a.IsPrimary {
			return a, true
		}
	}
	return AuthorRecord{}, false
}

// NewTrackingCode builds the externally visible code PREFIX-YEAR-XXXXXX.
func NewTrackingCode(prefix string, at time.Time) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%d-%s", prefix, at.UTC().Year(), random)
}

func ValidTrackingCode(code string) bool {
	return trackingCodePattern.MatchString(code)
}
