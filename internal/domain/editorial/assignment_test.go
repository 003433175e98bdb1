package editorial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentTransitions(t *testing.T) {
	testCases := []struct {
		name    string
		from    AssignmentStatus
		action  AssignmentAction
		want    AssignmentStatus
		wantErr error
	}{
		{name: "accept pending", from: AssignmentPending, action: AssignmentAccept, want: AssignmentAccepted},
		{name: "decline pending", from: AssignmentPending, action: AssignmentDecline, want: AssignmentDeclined},
		{name: "submit accepted", from: AssignmentAccepted, action: AssignmentSubmitReview, want: AssignmentCompleted},
		{name: "submit pending", from: AssignmentPending, action: AssignmentSubmitReview, wantErr: ErrInvalidTransition},
		{name: "accept accepted", from: AssignmentAccepted, action: AssignmentAccept, wantErr: ErrInvalidTransition},
		{name: "accept declined", from: AssignmentDeclined, action: AssignmentAccept, wantErr: ErrInvalidTransition},
		{name: "submit declined", from: AssignmentDeclined, action: AssignmentSubmitReview, wantErr: ErrInvalidTransition},
		{name: "resubmit completed", from: AssignmentCompleted, action: AssignmentSubmitReview, wantErr: ErrAlreadySubmitted},
		{name: "decline completed", from: AssignmentCompleted, action: AssignmentDecline, wantErr: ErrInvalidTransition},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Assignment{ID: 4, Status: tc.from}.Transition(tc.action)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestActiveStatuses(t *testing.T) {
	assert.True(t, AssignmentPending.Active())
	assert.True(t, AssignmentAccepted.Active())
	assert.False(t, AssignmentDeclined.Active())
	assert.False(t, AssignmentCompleted.Active())
	assert.Len(t, ActiveAssignmentStatuses(), 2)
}

func TestParseResponseDecision(t *testing.T) {
	d, err := ParseResponseDecision("DECLINE")
	require.NoError(t, err)
	assert.Equal(t, AssignmentDecline, d.Action())

	_, err = ParseResponseDecision("later")
	require.ErrorIs(t, err, ErrValidation)
}
