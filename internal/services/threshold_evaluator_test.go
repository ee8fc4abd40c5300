package services

import (
	"context"
	"testing"

	"claims-service/internal/models"
	"claims-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcessMinutes(t *testing.T) {
	tests := []struct {
		duration, threshold, want int
	}{
		{187, 120, 67},
		{90, 120, 0},
		{120, 120, 0},
		{600, 30, 570},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExcessMinutes(tt.duration, tt.threshold), "duration=%d threshold=%d", tt.duration, tt.threshold)
	}
}

func TestThresholdEvaluator_FilesPendingClaim(t *testing.T) {
	store := testutil.NewStore()
	evaluator := NewThresholdEvaluator(store.ClaimStore(), newTestIDs(t))
	policy := newPolicy("BI-001", 120, 500, 10000)
	outage := newOutage("OUT-A", 187)

	claim, created, err := evaluator.Evaluate(context.Background(), &policy, &outage)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.True(t, created)
	assert.Equal(t, 67, claim.ExcessMinutes)
	assert.Equal(t, models.ClaimPending, claim.Status)
	assert.Equal(t, outage.StartTime, claim.OutageStart)
	assert.Equal(t, *outage.EndTime, claim.OutageEnd)
	assert.Contains(t, claim.ClaimNumber, "CLM-")

	again, created, err := evaluator.Evaluate(context.Background(), &policy, &outage)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, claim.ID, again.ID)
	assert.Len(t, store.Claims(), 1)
}

func TestThresholdEvaluator_BelowThresholdFilesNothing(t *testing.T) {
	store := testutil.NewStore()
	evaluator := NewThresholdEvaluator(store.ClaimStore(), newTestIDs(t))
	policy := newPolicy("BI-001", 120, 500, 10000)

	for _, minutes := range []int{90, 120} {
		outage := newOutage("OUT-B", minutes)
		claim, created, err := evaluator.Evaluate(context.Background(), &policy, &outage)
		require.NoError(t, err)
		assert.Nil(t, claim, "duration %d", minutes)
		assert.False(t, created)
	}
	assert.Empty(t, store.Claims())
}

func TestThresholdEvaluator_UsesRecordedDurationWithoutEndTime(t *testing.T) {
	store := testutil.NewStore()
	evaluator := NewThresholdEvaluator(store.ClaimStore(), newTestIDs(t))
	policy := newPolicy("BI-001", 120, 500, 10000)
	outage := newOutage("OUT-A", 0)
	outage.EndTime = nil
	outage.DurationMinutes = intPtr(187)

	claim, _, err := evaluator.Evaluate(context.Background(), &policy, &outage)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, 67, claim.ExcessMinutes)
}

func TestThresholdEvaluator_RejectsUnfinishedOutage(t *testing.T) {
	evaluator := NewThresholdEvaluator(testutil.NewStore().ClaimStore(), newTestIDs(t))
	policy := newPolicy("BI-001", 120, 500, 10000)
	outage := newOutage("OUT-A", 187)
	outage.Status = models.OutageActive

	_, _, err := evaluator.Evaluate(context.Background(), &policy, &outage)
	assert.ErrorIs(t, err, ErrOutageNotFinalized)
}

func TestThresholdEvaluator_RejectsMalformedRecords(t *testing.T) {
	evaluator := NewThresholdEvaluator(testutil.NewStore().ClaimStore(), newTestIDs(t))

	policy := newPolicy("BI-001", 120, 500, 10000)
	policy.HourlyRate = -1
	outage := newOutage("OUT-A", 187)
	_, _, err := evaluator.Evaluate(context.Background(), &policy, &outage)
	assert.ErrorIs(t, err, models.ErrInvalidRecord)

	policy = newPolicy("BI-001", 120, 500, 10000)
	outage.EndTime = timePtr(outage.StartTime.Add(-1))
	_, _, err = evaluator.Evaluate(context.Background(), &policy, &outage)
	assert.ErrorIs(t, err, models.ErrInvalidRecord)
}
