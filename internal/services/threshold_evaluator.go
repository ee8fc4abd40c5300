package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrOutageNotFinalized = errors.New("outage is not finalized")

// ExcessMinutes is the outage time beyond the policy threshold, never negative.
func ExcessMinutes(durationMinutes, thresholdMinutes int) int {
	return max(0, durationMinutes-thresholdMinutes)
}

// ThresholdEvaluator files a pending claim for a matched policy when the
// outage ran past the policy threshold.
type ThresholdEvaluator struct {
	claims ClaimStore
	ids    *IDGenerator
	now    func() time.Time
}

func NewThresholdEvaluator(claims ClaimStore, ids *IDGenerator) *ThresholdEvaluator {
	return &ThresholdEvaluator{
		claims: claims,
		ids:    ids,
		now:    time.Now,
	}
}

// Evaluate returns the claim for (policy, outage), creating it if needed.
// The claim is nil when the outage did not exceed the threshold. created is
// false when an existing claim was returned.
func (e *ThresholdEvaluator) Evaluate(ctx context.Context, policy *models.Policy, outage *models.OutageEvent) (claim *models.Claim, created bool, err error) {
	if err := models.ValidatePolicy(policy); err != nil {
		slog.Error("Rejected policy record", "policy_id", policy.ID, "outage_id", outage.ID, "error", err)
		return nil, false, err
	}
	if err := models.ValidateOutage(outage); err != nil {
		slog.Error("Rejected outage record", "policy_id", policy.ID, "outage_id", outage.ID, "error", err)
		return nil, false, err
	}
	if !outage.IsFinalized() {
		return nil, false, fmt.Errorf("outage %s (status %s): %w", outage.ID, outage.Status, ErrOutageNotFinalized)
	}

	duration, _ := outage.Duration()
	excess := ExcessMinutes(duration, policy.ThresholdMinutes)
	if excess <= 0 {
		slog.Info("Outage within policy threshold, no claim filed",
			"policy_id", policy.ID,
			"outage_id", outage.ID,
			"duration_minutes", duration,
			"threshold_minutes", policy.ThresholdMinutes)
		return nil, false, nil
	}

	now := e.now().UTC()
	start, end := outage.Window()
	candidate := &models.Claim{
		ID:            uuid.New(),
		ClaimNumber:   e.ids.ClaimNumber(),
		PolicyID:      policy.ID,
		OutageEventID: outage.ID,
		Status:        models.ClaimPending,
		ExcessMinutes: excess,
		OutageStart:   start,
		OutageEnd:     end,
		FraudFlags:    pq.StringArray{},
		Reasoning:     pq.StringArray{},
		FiledAt:       now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, created, err := e.claims.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to file claim for policy %s outage %s: %w", policy.ID, outage.ID, err)
	}

	if created {
		slog.Info("Claim filed",
			"claim_id", stored.ID,
			"claim_number", stored.ClaimNumber,
			"policy_id", policy.ID,
			"outage_id", outage.ID,
			"excess_minutes", excess)
	} else {
		slog.Info("Claim already exists for policy and outage, returning stored claim",
			"claim_id", stored.ID,
			"policy_id", policy.ID,
			"outage_id", outage.ID,
			"status", stored.Status)
	}

	return stored, created, nil
}
