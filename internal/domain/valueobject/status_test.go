package valueobject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
)

func TestAssignmentStatus_DoerTransitions(t *testing.T) {
	tests := []struct {
		from, to AssignmentStatus
		ok       bool
	}{
		{AssignmentStatusAssigned, AssignmentStatusInProgress, true},
		{AssignmentStatusInProgress, AssignmentStatusUnderReview, true},
		{AssignmentStatusUnderReview, AssignmentStatusCompleted, true},
		{AssignmentStatusUnderReview, AssignmentStatusInProgress, true},
		{AssignmentStatusOpen, AssignmentStatusAssigned, false},
		{AssignmentStatusAssigned, AssignmentStatusCompleted, false},
		{AssignmentStatusInProgress, AssignmentStatusInDispute, false},
		{AssignmentStatusCompleted, AssignmentStatusInProgress, false},
		{AssignmentStatusInDispute, AssignmentStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAssignmentStatus_TransitionError(t *testing.T) {
	err := AssignmentStatusOpen.TransitionError(AssignmentStatusCompleted)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
	assert.Equal(t, "cannot transition from OPEN to COMPLETED", appErr.Message)
}

func TestAssignmentStatus_Terminal(t *testing.T) {
	assert.True(t, AssignmentStatusCompleted.IsTerminal())
	assert.True(t, AssignmentStatusCancelled.IsTerminal())
	assert.False(t, AssignmentStatusInDispute.IsTerminal())

	_, err := NewAssignmentStatus("DONE")
	assert.Error(t, err)
}

func TestNewReviewDecision(t *testing.T) {
	s, err := NewReviewDecision("accepted")
	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusApproved, s)

	s, err = NewReviewDecision("rejected")
	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusRejected, s)

	_, err = NewReviewDecision("pending")
	assert.Error(t, err)
}

func TestNewResolutionStatus(t *testing.T) {
	for _, raw := range []string{"OPEN", "CANCELLED", "resolved_release", ""} {
		_, err := NewResolutionStatus(raw)
		assert.Error(t, err, raw)
	}

	s, err := NewResolutionStatus("RESOLVED_RELEASE")
	require.NoError(t, err)
	task, payment := s.Outcome()
	assert.Equal(t, AssignmentStatusCompleted, task)
	assert.Equal(t, PaymentStatusReleased, payment)

	task, payment = DisputeStatusResolvedRefund.Outcome()
	assert.Equal(t, AssignmentStatusCancelled, task)
	assert.Equal(t, PaymentStatusRefunded, payment)
}

func TestPaymentStatus_IsFinal(t *testing.T) {
	assert.True(t, PaymentStatusReleased.IsFinal())
	assert.True(t, PaymentStatusRefunded.IsFinal())
	assert.False(t, PaymentStatusPending.IsFinal())
	assert.False(t, PaymentStatusDisputed.IsFinal())
	assert.False(t, PaymentStatusCompleted.IsFinal())
}

func TestNewRole(t *testing.T) {
	r, err := NewRole("POSTER")
	require.NoError(t, err)
	assert.Equal(t, RolePoster, r)

	_, err = NewRole("poster")
	assert.Error(t, err)
}

func TestNewAmount(t *testing.T) {
	v, err := NewAmount("budget", 10.006)
	require.NoError(t, err)
	assert.Equal(t, 10.01, v)

	for _, bad := range []float64{0, -1, MaxAmount + 1} {
		_, err := NewAmount("budget", bad)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr), bad)
		assert.Contains(t, appErr.Fields, "budget")
	}
}
