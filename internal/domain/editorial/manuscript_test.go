package editorial

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() Submission {
	return Submission{
		Title:    "  Soil carbon under rotational grazing ",
		Abstract: "We measure soil organic carbon across forty farms.",
		Keywords: []string{"soil", " Soil ", "", "grazing"},
		Category: "agronomy",
		FileRef:  "uploads/soil.pdf",
		Authors: []AuthorRecord{
			{Name: "Ana Ruiz", Email: "ana@example.org", IsPrimary: true, ORCID: "0000-0002-1825-009x"},
			{Name: "Tomas Berg", Email: "tomas@example.org"},
		},
	}
}

func TestSubmissionNormalize(t *testing.T) {
	s := validSubmission().Normalize()

	assert.Equal(t, "Soil carbon under rotational grazing", s.Title)
	assert.Equal(t, []string{"soil", "grazing"}, s.Keywords)
	assert.Equal(t, "0000-0002-1825-009X", s.Authors[0].ORCID)
	for i, a := range s.Authors {
		assert.Equal(t, i, a.OrderIndex)
	}
	require.NoError(t, s.Validate())
}

func TestSubmissionValidateFields(t *testing.T) {
	s := validSubmission().Normalize()
	s.Title = ""
	s.FileRef = ""
	s.Authors[1].Email = "not-an-email"

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "file_ref")
	assert.Contains(t, verr.Fields, "authors.1.email")
}

func TestSubmissionRequiresExactlyOnePrimary(t *testing.T) {
	none := validSubmission()
	none.Authors[0].IsPrimary = false
	err := none.Normalize().Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "exactly one primary author")

	two := validSubmission()
	two.Authors[1].IsPrimary = true
	require.ErrorIs(t, two.Normalize().Validate(), ErrValidation)

	empty := validSubmission()
	empty.Authors = nil
	require.ErrorIs(t, empty.Normalize().Validate(), ErrValidation)
}

func TestCheckAuthorListOrder(t *testing.T) {
	err := CheckAuthorList([]AuthorRecord{
		{Name: "a", IsPrimary: true, OrderIndex: 0},
		{Name: "b", OrderIndex: 2},
	})
	require.ErrorIs(t, err, ErrValidation)

	primary, ok := PrimaryAuthor(validSubmission().Normalize().Authors)
	require.True(t, ok)
	assert.Equal(t, "Ana Ruiz", primary.Name)
}

func TestTrackingCode(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	code := NewTrackingCode("jrnl", at)

	assert.True(t, strings.HasPrefix(code, "JRNL-2026-"), code)
	assert.True(t, ValidTrackingCode(code), code)
	assert.NotEqual(t, code, NewTrackingCode("jrnl", at))
	assert.False(t, ValidTrackingCode("JRNL-26-ABC"))
}
