package editorial

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewSubmissionValidate(t *testing.T) {
	rec, err := ReviewSubmission{
		Scores:           Scores{Relevance: 4, Novelty: 5, Methodology: 4},
		CommentForAuthor: "ok",
		Recommendation:   "accept",
	}.Validate()
	require.NoError(t, err)
	assert.Equal(t, RecommendAccept, rec)
}

func TestReviewSubmissionRejectsOutOfRange(t *testing.T) {
	_, err := ReviewSubmission{
		Scores:           Scores{Relevance: 0, Novelty: 6, Methodology: -1},
		CommentForAuthor: "",
		Recommendation:   "strong_accept",
	}.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"scores.relevance", "scores.novelty", "scores.methodology", "comment_for_author", "recommendation"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestTally(t *testing.T) {
	assignments := []Assignment{
		{ID: 1, Status: AssignmentCompleted},
		{ID: 2, Status: AssignmentCompleted},
		{ID: 3, Status: AssignmentPending},
		{ID: 4, Status: AssignmentDeclined},
		{ID: 5, Status: AssignmentAccepted},
	}
	reviews := []Review{
		{AssignmentID: 1, Scores: Scores{4, 5, 4}, Recommendation: RecommendAccept},
		{AssignmentID: 2, Scores: Scores{2, 3, 2}, Recommendation: RecommendMajorRevision},
		{AssignmentID: 9, Scores: Scores{1, 1, 1}, Recommendation: RecommendReject},
	}

	tally := Tally(assignments, reviews)
	assert.Equal(t, 2, tally.Completed)
	assert.Equal(t, 2, tally.Outstanding)
	assert.False(t, tally.Complete())
	assert.Equal(t, 1, tally.Recommendations[RecommendAccept])
	assert.Equal(t, 1, tally.Recommendations[RecommendMajorRevision])
	assert.Zero(t, tally.Recommendations[RecommendReject])
	assert.InDelta(t, 3.0, tally.MeanRelevance, 1e-9)
	assert.InDelta(t, 4.0, tally.MeanNovelty, 1e-9)
	assert.InDelta(t, 3.0, tally.MeanMethodology, 1e-9)

	done := Tally(assignments[:2], reviews[:2])
	assert.True(t, done.Complete())
	assert.False(t, Tally(nil, nil).Complete())
}

func TestPublicationValidate(t *testing.T) {
	ok := Publication{IssueID: 1, PageStart: "1", PageEnd: "12", DOI: "10.1/x"}
	require.NoError(t, ok.Validate())
	require.NoError(t, Publication{IssueID: 1, PageStart: "e101", PageEnd: "e109"}.Validate())
	require.NoError(t, Publication{IssueID: 1}.Validate())

	cases := map[string]Publication{
		"issue_id": {PageStart: "1", PageEnd: "2"},
		"pages":    {IssueID: 1, PageStart: "12", PageEnd: "1"},
		"doi":      {IssueID: 1, DOI: "doi:abc"},
	}
	for field, p := range cases {
		err := p.Validate()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Contains(t, verr.Fields, field)
	}

	half := Publication{IssueID: 1, PageStart: "3"}
	require.ErrorIs(t, half.Validate(), ErrValidation)

	assert.True(t, ok.SameBinding(Publication{IssueID: 1, PageStart: "1", PageEnd: "12", DOI: "10.1/x", PublishedAt: time.Now()}))
	assert.False(t, ok.SameBinding(Publication{IssueID: 1, PageStart: "1", PageEnd: "13", DOI: "10.1/x"}))
}

func TestIssueValidateAndLabel(t *testing.T) {
	issue := Issue{VolumeID: 2, Number: 3, Year: 2026, Month: 4}
	require.NoError(t, issue.Validate())
	assert.Equal(t, "Vol. 12 No. 3 (April 2026)", issue.Label(12))

	issue.Month = 13
	require.ErrorIs(t, issue.Validate(), ErrValidation)
	require.ErrorIs(t, Volume{Number: 0, Year: 2026}.Validate(), ErrValidation)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", Preview("short   text", 50))
	got := Preview("one two three four five six seven", 14)
	assert.Equal(t, "one two three…", got)
	assert.Equal(t, "unchanged", Preview("unchanged", 0))
	// The word boundary is measured in runes, so an early space in wide text is kept.
	assert.Equal(t, "αβγδ εζηθι…", Preview("αβγδ εζηθικλμ", 10))
}

func TestIssueStatusCanMoveTo(t *testing.T) {
	assert.True(t, IssueDraft.CanMoveTo(IssuePublished))
	assert.True(t, IssueDraft.CanMoveTo(IssueArchived))
	assert.True(t, IssuePublished.CanMoveTo(IssueArchived))
	assert.False(t, IssuePublished.CanMoveTo(IssueDraft))
	assert.False(t, IssueArchived.CanMoveTo(IssuePublished))
	assert.False(t, IssueDraft.CanMoveTo(IssueDraft))
}
