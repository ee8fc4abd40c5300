package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func testInput() *models.ScoreInput {
	start := time.Date(2024, 8, 12, 14, 0, 0, 0, time.UTC)
	end := start.Add(187 * time.Minute)
	return &models.ScoreInput{
		Claim: &models.Claim{
			ID:            uuid.New(),
			ClaimNumber:   "CLM-1842",
			PolicyID:      "BI-001",
			OutageEventID: "OUT-A",
			ExcessMinutes: 67,
			OutageStart:   start,
			OutageEnd:     end,
		},
		Policy: &models.Policy{
			ID:               "BI-001",
			Location:         models.NewGeoJSONPoint(29.7604, -95.3698),
			ThresholdMinutes: 120,
			HourlyRate:       500,
			MaxPayout:        10000,
			Status:           models.PolicyActive,
		},
		Outage: &models.OutageEvent{
			ID:        "OUT-A",
			Location:  models.NewGeoJSONPoint(29.7604, -95.3698),
			StartTime: start,
			EndTime:   &end,
			Status:    models.OutageResolved,
		},
		OverlappingApproved: []models.Claim{{ClaimNumber: "CLM-0007", OutageStart: start, OutageEnd: end}},
	}
}

func TestParseScoringReply_FencedJSON(t *testing.T) {
	reply := "```json\n{\"confidence_score\":0.8,\"severity_multiplier\":1.25,\"fraud_flags\":null,\"reasoning\":[\"storm\"],\"decision\":\"approved\"}\n```"

	result, err := ParseScoringReply(reply)
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.ConfidenceScore)
	assert.Equal(t, 1.25, result.SeverityMultiplier)
	assert.NotNil(t, result.FraudFlags)
	assert.Empty(t, result.FraudFlags)
	assert.Equal(t, []string{"storm"}, result.Reasoning)
	assert.Equal(t, models.ClaimApproved, result.Decision)
	assert.Equal(t, models.ScorerGemini, result.ScoredBy)
}

func TestParseScoringReply_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":           "I think this claim looks fine.",
		"missing confidence": `{"severity_multiplier":1.0,"decision":"approved"}`,
		"missing severity":   `{"confidence_score":0.7,"decision":"approved"}`,
		"bad decision":       `{"confidence_score":0.7,"severity_multiplier":1.0,"decision":"maybe"}`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScoringReply(reply)
			assert.Error(t, err)
		})
	}
}

func TestParseJSONReply_PlainFence(t *testing.T) {
	var out map[string]int
	require.NoError(t, ParseJSONReply("```\n{\"a\": 1}\n```", &out))
	assert.Equal(t, 1, out["a"])
}

func TestClaimScorer_Score(t *testing.T) {
	generator := &fakeGenerator{reply: `{"confidence_score":0.6,"severity_multiplier":1.0,"fraud_flags":["overlapping_approved_claim"],"reasoning":["overlaps CLM-0007"],"decision":"denied"}`}
	scorer := NewClaimScorer(generator, config.DefaultPipelineConfig(), 0)

	result, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, models.ClaimDenied, result.Decision)
	assert.Equal(t, []string{models.FraudOverlappingApprovedClaim}, result.FraudFlags)
	assert.Equal(t, models.ScorerGemini, scorer.Kind())

	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	assert.Contains(t, prompt, "CLM-1842")
	assert.Contains(t, prompt, "CLM-0007")
	assert.Contains(t, prompt, `"outage_duration_minutes": 187`)
	assert.Contains(t, prompt, "confidence_score >= 0.60")
	assert.Contains(t, prompt, "above 43200 minutes")
}

func TestClaimScorer_GeneratorError(t *testing.T) {
	scorer := NewClaimScorer(&fakeGenerator{err: errors.New("429 quota")}, config.DefaultPipelineConfig(), 0)
	_, err := scorer.Score(context.Background(), testInput())
	assert.ErrorContains(t, err, "429")
}

func TestClaimScorer_CancelledWhileRateLimited(t *testing.T) {
	generator := &fakeGenerator{reply: `{"confidence_score":0.6,"severity_multiplier":1.0,"decision":"approved"}`}
	scorer := NewClaimScorer(generator, config.DefaultPipelineConfig(), 0.001)

	_, err := scorer.Score(context.Background(), testInput())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = scorer.Score(ctx, testInput())
	assert.Error(t, err)
	assert.Len(t, generator.prompts, 1)
}
