package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/models"

	"golang.org/x/time/rate"
)

// TextGenerator answers a prompt with model text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClaimScorer asks Gemini to score a claim. Its output is checked and, if
// needed, replaced by the rule-based scorer upstream.
type ClaimScorer struct {
	generator TextGenerator
	limiter   *rate.Limiter
	cfg       config.PipelineConfig
}

func NewClaimScorer(generator TextGenerator, cfg config.PipelineConfig, requestsPerSecond float64) *ClaimScorer {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &ClaimScorer{
		generator: generator,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
	}
}

func (s *ClaimScorer) Kind() models.ScorerKind {
	return models.ScorerGemini
}

type scoringReply struct {
	ConfidenceScore    *float64 `json:"confidence_score"`
	SeverityMultiplier *float64 `json:"severity_multiplier"`
	FraudFlags         []string `json:"fraud_flags"`
	Reasoning          []string `json:"reasoning"`
	Decision           string   `json:"decision"`
}

func (s *ClaimScorer) Score(ctx context.Context, input *models.ScoreInput) (*models.ScoreResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini rate limit wait: %w", err)
	}

	prompt, err := s.BuildPrompt(input)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := ParseScoringReply(reply)
	if err != nil {
		return nil, err
	}

	slog.Info("Gemini scored claim",
		"claim_id", input.Claim.ID,
		"decision", result.Decision,
		"confidence", result.ConfidenceScore,
		"elapsed_ms", time.Since(started).Milliseconds())
	return result, nil
}

type promptRecords struct {
	Claim               *models.Claim              `json:"claim"`
	Policy              *models.Policy             `json:"policy"`
	Outage              *models.OutageEvent        `json:"outage"`
	DurationMinutes     *int                       `json:"outage_duration_minutes,omitempty"`
	Weather             *models.WeatherObservation `json:"weather"`
	OverlappingApproved []overlappingClaim         `json:"overlapping_approved_claims"`
}

type overlappingClaim struct {
	ClaimNumber string    `json:"claim_number"`
	OutageStart time.Time `json:"outage_start"`
	OutageEnd   time.Time `json:"outage_end"`
}

func (s *ClaimScorer) BuildPrompt(input *models.ScoreInput) (string, error) {
	records := promptRecords{
		Claim:               input.Claim,
		Policy:              input.Policy,
		Outage:              input.Outage,
		Weather:             input.Weather,
		OverlappingApproved: []overlappingClaim{},
	}
	if minutes, ok := input.Outage.Duration(); ok {
		records.DurationMinutes = &minutes
	}
	for _, c := range input.OverlappingApproved {
		records.OverlappingApproved = append(records.OverlappingApproved, overlappingClaim{
			ClaimNumber: c.ClaimNumber,
			OutageStart: c.OutageStart,
			OutageEnd:   c.OutageEnd,
		})
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal scoring records: %w", err)
	}

	return fmt.Sprintf(ClaimScoringPromptTemplate,
		string(raw),
		s.cfg.WeatherWindow.String(),
		s.cfg.WindSevereMPH,
		s.cfg.WindExtremeMPH,
		s.cfg.PrecipExtremeInches,
		s.cfg.DurationCeiling.Minutes(),
		s.cfg.CoverPlannedMaintenance,
		s.cfg.ApprovalThreshold,
	), nil
}

// ParseScoringReply turns a model reply into a score result. Missing
// required fields are an error.
func ParseScoringReply(reply string) (*models.ScoreResult, error) {
	var parsed scoringReply
	if err := ParseJSONReply(reply, &parsed); err != nil {
		return nil, err
	}
	if parsed.ConfidenceScore == nil || parsed.SeverityMultiplier == nil {
		return nil, fmt.Errorf("gemini reply missing confidence_score or severity_multiplier")
	}

	decision := models.ClaimStatus(parsed.Decision)
	if decision != models.ClaimApproved && decision != models.ClaimDenied {
		return nil, fmt.Errorf("gemini reply has invalid decision %q", parsed.Decision)
	}

	flags := parsed.FraudFlags
	if flags == nil {
		flags = []string{}
	}

	return &models.ScoreResult{
		ConfidenceScore:    *parsed.ConfidenceScore,
		SeverityMultiplier: *parsed.SeverityMultiplier,
		FraudFlags:         flags,
		Reasoning:          parsed.Reasoning,
		Decision:           decision,
		ScoredBy:           models.ScorerGemini,
	}, nil
}
