package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"claims-service/internal/models"
)

// FallbackScorer runs an external scorer under a timeout and falls back to
// rule-based scoring on any error or contract violation.
type FallbackScorer struct {
	primary  ClaimScorer
	fallback *RuleBasedScorer
	timeout  time.Duration
}

func NewFallbackScorer(primary ClaimScorer, fallback *RuleBasedScorer, timeout time.Duration) *FallbackScorer {
	return &FallbackScorer{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
	}
}

func (s *FallbackScorer) Kind() models.ScorerKind {
	return s.primary.Kind()
}

func (s *FallbackScorer) Score(ctx context.Context, input *models.ScoreInput) (*models.ScoreResult, error) {
	scoreCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.primary.Score(scoreCtx, input)
	if err == nil {
		err = checkScoreContract(result)
	}
	if err == nil {
		return result, nil
	}

	slog.Warn("External claim scorer failed, using rule-based scoring",
		"claim_id", input.Claim.ID,
		"scorer", s.primary.Kind(),
		"error", err)

	fallback, fbErr := s.fallback.Score(ctx, input)
	if fbErr != nil {
		return nil, fmt.Errorf("rule-based fallback failed: %w", fbErr)
	}
	fallback.Reasoning = append(
		[]string{fmt.Sprintf("External scorer %s unavailable (%v): rule-based scoring used", s.primary.Kind(), err)},
		fallback.Reasoning...)
	return fallback, nil
}

func checkScoreContract(r *models.ScoreResult) error {
	switch {
	case r == nil:
		return fmt.Errorf("scorer returned no result")
	case math.IsNaN(r.ConfidenceScore) || r.ConfidenceScore < 0 || r.ConfidenceScore > 1:
		return fmt.Errorf("confidence %.4f outside [0,1]", r.ConfidenceScore)
	case math.IsNaN(r.SeverityMultiplier) ||
		r.SeverityMultiplier < minSeverityMultiplier || r.SeverityMultiplier > maxSeverityMultiplier:
		return fmt.Errorf("severity multiplier %.4f outside [%.1f,%.1f]",
			r.SeverityMultiplier, minSeverityMultiplier, maxSeverityMultiplier)
	case r.Decision != models.ClaimApproved && r.Decision != models.ClaimDenied:
		return fmt.Errorf("decision %q is neither approved nor denied", r.Decision)
	}
	for _, flag := range r.FraudFlags {
		if !models.IsKnownFraudFlag(flag) {
			return fmt.Errorf("unknown fraud flag %q", flag)
		}
	}
	return nil
}
