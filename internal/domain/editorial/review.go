package editorial

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinScore = 1
	MaxScore = 5
)

type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendMinorRevision Recommendation = "minor_revision"
	RecommendMajorRevision Recommendation = "major_revision"
	RecommendReject        Recommendation = "reject"
)

// Recommendations lists the four values in severity order.
func Recommendations() []Recommendation {
	return []Recommendation{RecommendAccept, RecommendMinorRevision, RecommendMajorRevision, RecommendReject}
}

func ParseRecommendation(raw string) (Recommendation, error) {
	candidate := Recommendation(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range Recommendations() {
		if r == candidate {
			return r, nil
		}
	}
	return "", Invalid("recommendation", fmt.Sprintf("unknown recommendation %q", raw))
}

// Scores are the three integer criteria, each in [MinScore, MaxScore].
type Scores struct {
	Relevance   int `json:"relevance" yaml:"relevance"`
	Novelty     int `json:"novelty" yaml:"novelty"`
	Methodology int `json:"methodology" yaml:"methodology"`
}

func (s Scores) Validate() error {
	low := validation.Min(MinScore)
	high := validation.Max(MaxScore)
	return validation.ValidateStruct(&s,
		validation.Field(&s.Relevance, validation.Required.Error("relevance score is required"), low, high),
		validation.Field(&s.Novelty, validation.Required.Error("novelty score is required"), low, high),
		validation.Field(&s.Methodology, validation.Required.Error("methodology score is required"), low, high),
	)
}

// Review is the scored evaluation attached to a completed assignment.
type Review struct {
	ID                  uint64
	AssignmentID        uint64
	Scores              Scores
	CommentForAuthor    string
	ConfidentialComment string
	Recommendation      Recommendation
	SubmittedAt         time.Time
}

// ReviewSubmission is the reviewer-supplied payload.
type ReviewSubmission struct {
	Scores              Scores `json:"scores" yaml:"scores"`
	CommentForAuthor    string `json:"comment_for_author" yaml:"comment_for_author"`
	ConfidentialComment string `json:"confidential_comment" yaml:"confidential_comment"`
	Recommendation      string `json:"recommendation" yaml:"recommendation"`
}

// Validate checks every score range and the recommendation enum; no partial review passes.
func (r ReviewSubmission) Validate() (Recommendation, error) {
	fields := map[string]string{}

	if err := r.Scores.Validate(); err != nil {
		if verr, ok := fromValidation(err).(*ValidationError); ok {
			for k, v := range verr.Fields {
				fields["scores."+k] = v
			}
		}
	}
	if strings.TrimSpace(r.CommentForAuthor) == "" {
		fields["comment_for_author"] = "comment for author is required"
	}
	rec, err := ParseRecommendation(r.Recommendation)
	if err != nil {
		fields["recommendation"] = fmt.Sprintf("must be one of %v", Recommendations())
	}

	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return rec, nil
}
