package editorial

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var doiPattern = regexp.MustCompile(`^10\.\d+/\S+$`)

type IssueStatus string

const (
	IssueDraft     IssueStatus = "draft"
	IssuePublished IssueStatus = "published"
	IssueArchived  IssueStatus = "archived"
)

func ParseIssueStatus(raw string) (IssueStatus, error) {
	switch s := IssueStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case IssueDraft, IssuePublished, IssueArchived:
		return s, nil
	default:
		return "", Invalid("status", fmt.Sprintf("unknown issue status %q", raw))
	}
}

var issueTransitions = map[IssueStatus][]IssueStatus{
	IssueDraft:     {IssuePublished, IssueArchived},
	IssuePublished: {IssueArchived},
}

// CanMoveTo reports whether an issue may change from s to next. Archived is terminal.
func (s IssueStatus) CanMoveTo(next IssueStatus) bool {
	for _, candidate := range issueTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

type Volume struct {
	ID        uint64
	Number    int
	Year      int
	CreatedAt time.Time
}

func (v Volume) Validate() error {
	return fromValidation(validation.ValidateStruct(&v,
		validation.Field(&v.Number, validation.Required, validation.Min(1)),
		validation.Field(&v.Year, validation.Required, validation.Min(1900), validation.Max(9999)),
	))
}

// Issue is a container for published manuscripts; manuscripts reference it without owning it.
type Issue struct {
	ID         uint64
	VolumeID   uint64
	Number     int
	Year       int
	Month      int
	Status     IssueStatus
	CoverAsset string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (i Issue) Validate() error {
	return fromValidation(validation.ValidateStruct(&i,
		validation.Field(&i.VolumeID, validation.Required),
		validation.Field(&i.Number, validation.Required, validation.Min(1)),
		validation.Field(&i.Year, validation.Required, validation.Min(1900), validation.Max(9999)),
		validation.Field(&i.Month, validation.Required, validation.Min(1), validation.Max(12)),
	))
}

// Label renders the issue as "Vol. N No. M (Month YYYY)" given its volume number.
func (i Issue) Label(volumeNumber int) string {
	month := time.Month(i.Month).String()
	return fmt.Sprintf("Vol. %d No. %d (%s %d)", volumeNumber, i.Number, month, i.Year)
}

// Publication is the binding data the publication binder attaches to a manuscript.
type Publication struct {
	IssueID     uint64
	PageStart   string
	PageEnd     string
	DOI         string
	PublishedAt time.Time
}

// SameBinding reports whether p binds the same issue, pages and DOI as other.
func (p Publication) SameBinding(other Publication) bool {
	return p.IssueID == other.IssueID &&
		p.PageStart == other.PageStart &&
		p.PageEnd == other.PageEnd &&
		p.DOI == other.DOI
}

// Validate checks pagination is given as a pair with start <= end when numeric, and the DOI shape.
func (p Publication) Validate() error {
	fields := map[string]string{}
	if p.IssueID == 0 {
		fields["issue_id"] = "issue is required"
	}

	start := strings.TrimSpace(p.PageStart)
	end := strings.TrimSpace(p.PageEnd)
	switch {
	case start == "" && end == "":
	case start == "" || end == "":
		fields["pages"] = "page_start and page_end must be given together"
	default:
		first, errStart := strconv.Atoi(start)
		last, errEnd := strconv.Atoi(end)
		if errStart == nil && errEnd == nil && (first < 1 || last < first) {
			fields["pages"] = fmt.Sprintf("invalid page range %s-%s", start, end)
		}
	}

	if doi := strings.TrimSpace(p.DOI); doi != "" && !doiPattern.MatchString(doi) {
		fields["doi"] = fmt.Sprintf("invalid DOI %q", doi)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
