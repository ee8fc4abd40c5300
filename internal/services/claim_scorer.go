package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/models"
)

// ClaimScorer scores a claim. Every implementation returns the same contract:
// confidence in [0,1], severity multiplier in [1.0, 1.5], fraud flags, reasoning and a
// decision.
type ClaimScorer interface {
	Score(ctx context.Context, input *models.ScoreInput) (*models.ScoreResult, error)
	Kind() models.ScorerKind
}

const (
	baseConfidence         = 0.60
	weatherConfidenceBonus = 0.20
	customersBonus         = 0.10

	minSeverityMultiplier = 1.0
	maxSeverityMultiplier = 1.5
)

// customerBracket bounds the plausible number of affected customers for
// outages up to maxDuration long.
type customerBracket struct {
	name         string
	maxDuration  time.Duration
	maxCustomers int
}

var customerBrackets = []customerBracket{
	{name: "short", maxDuration: 4 * time.Hour, maxCustomers: 250_000},
	{name: "extended", maxDuration: 24 * time.Hour, maxCustomers: 1_000_000},
	{name: "prolonged", maxDuration: math.MaxInt64, maxCustomers: 5_000_000},
}

// ScoringRules are the deterministic thresholds behind rule-based scoring.
type ScoringRules struct {
	ApprovalThreshold       float64
	WindSevereMPH           float64
	WindExtremeMPH          float64
	PrecipExtremeInches     float64
	DurationCeiling         time.Duration
	WeatherWindow           time.Duration
	CoverPlannedMaintenance bool
}

func NewScoringRules(cfg config.PipelineConfig) ScoringRules {
	return ScoringRules{
		ApprovalThreshold:       cfg.ApprovalThreshold,
		WindSevereMPH:           cfg.WindSevereMPH,
		WindExtremeMPH:          cfg.WindExtremeMPH,
		PrecipExtremeInches:     cfg.PrecipExtremeInches,
		DurationCeiling:         cfg.DurationCeiling,
		WeatherWindow:           cfg.WeatherWindow,
		CoverPlannedMaintenance: cfg.CoverPlannedMaintenance,
	}
}

// Confidence scores data completeness of the claim.
func (r ScoringRules) Confidence(input *models.ScoreInput) (float64, []string) {
	score := baseConfidence
	reasons := []string{fmt.Sprintf("Outage record present: base confidence %.2f", baseConfidence)}

	switch {
	case input.Weather == nil:
		reasons = append(reasons, "No weather observation: no weather bonus")
	case r.weatherConsistent(input.Weather, input.Outage):
		score += weatherConfidenceBonus
		reasons = append(reasons, fmt.Sprintf("Weather observation consistent with outage window: +%.2f", weatherConfidenceBonus))
	default:
		reasons = append(reasons, "Weather observation outside outage window: no weather bonus")
	}

	switch customers := input.Outage.AffectedCustomers; {
	case customers == nil:
		reasons = append(reasons, "Affected customers not reported: no customer bonus")
	default:
		bracket := bracketFor(input.Outage.Span())
		if *customers > 0 && *customers <= bracket.maxCustomers {
			score += customersBonus
			reasons = append(reasons, fmt.Sprintf("Affected customers (%d) plausible for %s outage: +%.2f", *customers, bracket.name, customersBonus))
		} else {
			reasons = append(reasons, fmt.Sprintf("Affected customers (%d) implausible for %s outage: no customer bonus", *customers, bracket.name))
		}
	}

	return ClampConfidence(score), reasons
}

// weatherConsistent checks the observation belongs to the outage and was
// taken between WeatherWindow before the start and the end of the outage.
func (r ScoringRules) weatherConsistent(w *models.WeatherObservation, o *models.OutageEvent) bool {
	if w.OutageEventID != "" && w.OutageEventID != o.ID {
		return false
	}
	if w.WindSpeedMPH < 0 || w.PrecipitationInches < 0 {
		return false
	}
	start, end := o.Window()
	return !w.ObservedAt.Before(start.Add(-r.WeatherWindow)) && !w.ObservedAt.After(end)
}

func bracketFor(d time.Duration) customerBracket {
	for _, b := range customerBrackets {
		if d <= b.maxDuration {
			return b
		}
	}
	return customerBrackets[len(customerBrackets)-1]
}

// Severity derives the payout multiplier from weather. It never touches confidence.
func (r ScoringRules) Severity(w *models.WeatherObservation) (float64, []string) {
	if w == nil {
		return 1.0, []string{"Severity multiplier 1.00: no weather data"}
	}

	var causes []string
	if w.WindSpeedMPH > r.WindExtremeMPH {
		causes = append(causes, fmt.Sprintf("wind %.1f mph above %.0f mph", w.WindSpeedMPH, r.WindExtremeMPH))
	}
	if w.PrecipitationInches > r.PrecipExtremeInches {
		causes = append(causes, fmt.Sprintf("precipitation %.2f in above %.2f in", w.PrecipitationInches, r.PrecipExtremeInches))
	}
	if len(causes) > 0 {
		return 1.5, []string{"Severity multiplier 1.50: " + strings.Join(causes, ", ")}
	}

	if w.SevereWeatherAlert {
		causes = append(causes, "severe weather alert")
	}
	if w.WindSpeedMPH > r.WindSevereMPH {
		causes = append(causes, fmt.Sprintf("wind %.1f mph above %.0f mph", w.WindSpeedMPH, r.WindSevereMPH))
	}
	if len(causes) > 0 {
		return 1.25, []string{"Severity multiplier 1.25: " + strings.Join(causes, ", ")}
	}

	return 1.0, []string{"Severity multiplier 1.00: weather within normal range"}
}

// DetectFraud returns the fraud flags that apply to input, each with a reason.
func (r ScoringRules) DetectFraud(input *models.ScoreInput) ([]string, []string) {
	flags := []string{}
	var reasons []string

	if len(input.OverlappingApproved) > 0 {
		refs := make([]string, 0, len(input.OverlappingApproved))
		for _, c := range input.OverlappingApproved {
			refs = append(refs, c.ClaimNumber)
		}
		flags = append(flags, models.FraudOverlappingApprovedClaim)
		reasons = append(reasons, fmt.Sprintf("Fraud flag %s: outage window overlaps approved claim(s) %s",
			models.FraudOverlappingApprovedClaim, strings.Join(refs, ", ")))
	}

	if duration, ok := input.Outage.Duration(); ok && int64(duration) > int64(r.DurationCeiling/time.Minute) {
		flags = append(flags, models.FraudDurationExceedsCeiling)
		reasons = append(reasons, fmt.Sprintf("Fraud flag %s: outage duration %d min exceeds ceiling %.0f min",
			models.FraudDurationExceedsCeiling, duration, r.DurationCeiling.Minutes()))
	}

	if input.Claim.FiledAt.Before(input.Outage.StartTime) {
		flags = append(flags, models.FraudFiledBeforeOutageStart)
		reasons = append(reasons, fmt.Sprintf("Fraud flag %s: claim filed %s before outage start %s",
			models.FraudFiledBeforeOutageStart,
			input.Claim.FiledAt.Format(time.RFC3339), input.Outage.StartTime.Format(time.RFC3339)))
	}

	if !r.CoverPlannedMaintenance && input.Outage.IsPlannedMaintenance() {
		flags = append(flags, models.FraudPlannedMaintenanceExcluded)
		reasons = append(reasons, fmt.Sprintf("Fraud flag %s: outage reported as planned maintenance",
			models.FraudPlannedMaintenanceExcluded))
	}

	return flags, reasons
}

// Decide applies the approval rule: no fraud flags and confidence at or above
// the threshold.
func (r ScoringRules) Decide(confidence float64, fraudFlags []string) (models.ClaimStatus, string) {
	if len(fraudFlags) > 0 {
		return models.ClaimDenied, fmt.Sprintf("Denied: fraud flags present (%s)", strings.Join(fraudFlags, ", "))
	}
	if confidence < r.ApprovalThreshold {
		return models.ClaimDenied, fmt.Sprintf("Denied: confidence %.2f below threshold %.2f", confidence, r.ApprovalThreshold)
	}
	return models.ClaimApproved, fmt.Sprintf("Approved: no fraud flags and confidence %.2f >= %.2f", confidence, r.ApprovalThreshold)
}

// ClampSeverity bounds a multiplier to [1.0, 1.5]. NaN becomes 1.0.
func ClampSeverity(v float64) float64 {
	if math.IsNaN(v) {
		return minSeverityMultiplier
	}
	return math.Max(minSeverityMultiplier, math.Min(maxSeverityMultiplier, v))
}

// ClampConfidence bounds v to [0,1] and rounds to 4 decimals.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*10000) / 10000
}

// RuleBasedScorer is the deterministic default scorer.
type RuleBasedScorer struct {
	rules ScoringRules
}

func NewRuleBasedScorer(rules ScoringRules) *RuleBasedScorer {
	return &RuleBasedScorer{rules: rules}
}

func (s *RuleBasedScorer) Kind() models.ScorerKind {
	return models.ScorerRuleBased
}

func (s *RuleBasedScorer) Score(_ context.Context, input *models.ScoreInput) (*models.ScoreResult, error) {
	confidence, reasoning := s.rules.Confidence(input)

	severity, severityReasons := s.rules.Severity(input.Weather)
	reasoning = append(reasoning, severityReasons...)

	flags, fraudReasons := s.rules.DetectFraud(input)
	reasoning = append(reasoning, fraudReasons...)

	decision, why := s.rules.Decide(confidence, flags)
	reasoning = append(reasoning, why)

	return &models.ScoreResult{
		ConfidenceScore:    confidence,
		SeverityMultiplier: severity,
		FraudFlags:         flags,
		Reasoning:          reasoning,
		Decision:           decision,
		ScoredBy:           models.ScorerRuleBased,
	}, nil
}
