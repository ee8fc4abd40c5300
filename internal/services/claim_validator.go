package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"claims-service/internal/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// ClaimValidator scores a filed claim and records approve/deny. Validating a
// claim that is already decided returns the stored claim unchanged.
type ClaimValidator struct {
	claims  ClaimStore
	scorer  ClaimScorer
	rules   ScoringRules
	archive *EvidenceArchive
	now     func() time.Time
}

func NewClaimValidator(claims ClaimStore, scorer ClaimScorer, rules ScoringRules, archive *EvidenceArchive) *ClaimValidator {
	if scorer == nil {
		scorer = NewRuleBasedScorer(rules)
	}
	return &ClaimValidator{
		claims:  claims,
		scorer:  scorer,
		rules:   rules,
		archive: archive,
		now:     time.Now,
	}
}

// Validate returns the decided claim and whether this call made the decision.
func (v *ClaimValidator) Validate(
	ctx context.Context,
	claim *models.Claim,
	policy *models.Policy,
	outage *models.OutageEvent,
	weather *models.WeatherObservation,
) (*models.Claim, bool, error) {
	if claim.Status.IsDecided() {
		return claim, false, nil
	}

	if claim.Status == models.ClaimPending {
		moved, err := v.claims.MarkValidating(ctx, claim.ID, v.now().UTC())
		if err != nil {
			return nil, false, fmt.Errorf("failed to mark claim %s validating: %w", claim.ID, err)
		}
		if !moved {
			stored, err := v.claims.GetByID(ctx, claim.ID)
			if err != nil {
				return nil, false, fmt.Errorf("failed to reload claim %s: %w", claim.ID, err)
			}
			if stored.Status.IsDecided() {
				return stored, false, nil
			}
			claim = stored
		}
		claim.Status = models.ClaimValidating
	}
	if claim.Status != models.ClaimValidating {
		return nil, false, fmt.Errorf("claim %s in status %s: %w", claim.ID, claim.Status, ErrInvalidTransition)
	}

	overlapping, err := v.claims.ListOverlappingApproved(ctx, claim.PolicyID, claim.ID, claim.OutageStart, claim.OutageEnd)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check overlapping claims: %w", err)
	}

	input := &models.ScoreInput{
		Claim:               claim,
		Policy:              policy,
		Outage:              outage,
		Weather:             weather,
		OverlappingApproved: overlapping,
	}

	result, err := v.scorer.Score(ctx, input)
	if err != nil {
		slog.Warn("Claim scorer failed, using rule-based scoring", "claim_id", claim.ID, "error", err)
		result, err = NewRuleBasedScorer(v.rules).Score(ctx, input)
		if err != nil {
			return nil, false, fmt.Errorf("failed to score claim %s: %w", claim.ID, err)
		}
	}
	v.enforceRules(input, result)

	decided := *claim
	decided.ApplyScore(result, v.now().UTC())

	recorded, err := v.claims.RecordDecision(ctx, &decided)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record decision for claim %s: %w", claim.ID, err)
	}
	if !recorded {
		stored, err := v.claims.GetByID(ctx, claim.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload claim %s: %w", claim.ID, err)
		}
		slog.Info("Claim decided by another worker, returning stored decision", "claim_id", claim.ID, "status", stored.Status)
		return stored, false, nil
	}

	v.archive.StoreDecision(ctx, input, result)

	logAttrs := []any{
		"claim_id", decided.ID,
		"policy_id", decided.PolicyID,
		"outage_id", decided.OutageEventID,
		"status", decided.Status,
		"confidence", result.ConfidenceScore,
		"severity_multiplier", result.SeverityMultiplier,
		"fraud_flags", result.FraudFlags,
		"scored_by", result.ScoredBy,
	}
	if decided.Status == models.ClaimApproved {
		slog.Info("Claim approved", logAttrs...)
	} else {
		slog.Info("Claim denied", logAttrs...)
	}

	return &decided, true, nil
}

// enforceRules makes any scorer's result honor the deterministic fraud checks
// and the approval rule.
func (v *ClaimValidator) enforceRules(input *models.ScoreInput, result *models.ScoreResult) {
	flags, reasons := v.rules.DetectFraud(input)
	for i, flag := range flags {
		if !slices.Contains(result.FraudFlags, flag) {
			result.FraudFlags = append(result.FraudFlags, flag)
			result.Reasoning = append(result.Reasoning, reasons[i])
		}
	}
	if result.FraudFlags == nil {
		result.FraudFlags = []string{}
	}

	result.ConfidenceScore = ClampConfidence(result.ConfidenceScore)
	result.SeverityMultiplier = ClampSeverity(result.SeverityMultiplier)

	decision, why := v.rules.Decide(result.ConfidenceScore, result.FraudFlags)
	if decision != result.Decision {
		result.Decision = decision
		result.Reasoning = append(result.Reasoning, why)
	}
}
