package services

import (
	"context"
	"math"
	"testing"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreInput(outage models.OutageEvent, weather *models.WeatherObservation) *models.ScoreInput {
	policy := newPolicy("BI-001", 120, 500, 10000)
	start, end := outage.Window()
	return &models.ScoreInput{
		Claim: &models.Claim{
			ID:            uuid.New(),
			ClaimNumber:   "CLM-1",
			PolicyID:      policy.ID,
			OutageEventID: outage.ID,
			OutageStart:   start,
			OutageEnd:     end,
			FiledAt:       end.Add(time.Hour),
		},
		Policy:  &policy,
		Outage:  &outage,
		Weather: weather,
	}
}

func weatherAt(outageID string, at time.Time) *models.WeatherObservation {
	return &models.WeatherObservation{
		ID:                  "W-1",
		OutageEventID:       outageID,
		ObservedAt:          at,
		WindSpeedMPH:        12,
		PrecipitationInches: 0.1,
	}
}

// ============================================================================
// TEST SUITE 1: Confidence
// ============================================================================

func TestConfidence_BaseOnly(t *testing.T) {
	confidence, reasons := testRules().Confidence(scoreInput(newOutage("OUT-1", 187), nil))
	assert.Equal(t, 0.60, confidence)
	assert.Len(t, reasons, 3)
}

func TestConfidence_WeatherAndCustomers(t *testing.T) {
	outage := newOutage("OUT-1", 187)
	outage.AffectedCustomers = intPtr(12000)

	confidence, _ := testRules().Confidence(scoreInput(outage, weatherAt("OUT-1", outage.StartTime.Add(30*time.Minute))))
	assert.Equal(t, 0.90, confidence)
}

func TestConfidence_WeatherWindow(t *testing.T) {
	outage := newOutage("OUT-1", 187)
	rules := testRules()

	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"six hours before start", outage.StartTime.Add(-6 * time.Hour), 0.80},
		{"seven hours before start", outage.StartTime.Add(-7 * time.Hour), 0.60},
		{"at outage end", *outage.EndTime, 0.80},
		{"after outage end", outage.EndTime.Add(time.Minute), 0.60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, _ := rules.Confidence(scoreInput(outage, weatherAt("OUT-1", tt.at)))
			assert.Equal(t, tt.want, confidence)
		})
	}
}

func TestConfidence_WeatherForAnotherOutageIgnored(t *testing.T) {
	outage := newOutage("OUT-1", 187)
	confidence, _ := testRules().Confidence(scoreInput(outage, weatherAt("OUT-2", outage.StartTime)))
	assert.Equal(t, 0.60, confidence)
}

func TestConfidence_CustomerBrackets(t *testing.T) {
	rules := testRules()

	short := newOutage("OUT-1", 180)
	short.AffectedCustomers = intPtr(300_000)
	confidence, _ := rules.Confidence(scoreInput(short, nil))
	assert.Equal(t, 0.60, confidence, "300k customers implausible for a 3h outage")

	extended := newOutage("OUT-2", 600)
	extended.AffectedCustomers = intPtr(300_000)
	confidence, _ = rules.Confidence(scoreInput(extended, nil))
	assert.Equal(t, 0.70, confidence)

	zero := newOutage("OUT-3", 600)
	zero.AffectedCustomers = intPtr(0)
	confidence, _ = rules.Confidence(scoreInput(zero, nil))
	assert.Equal(t, 0.60, confidence)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 1.0, ClampConfidence(1.2))
	assert.Equal(t, 0.0, ClampConfidence(-0.1))
	assert.Equal(t, 0.1235, ClampConfidence(0.123456))
}

// ============================================================================
// TEST SUITE 2: Severity
// ============================================================================

func TestClampSeverity(t *testing.T) {
	assert.Equal(t, 1.0, ClampSeverity(0.5))
	assert.Equal(t, 1.25, ClampSeverity(1.25))
	assert.Equal(t, 1.5, ClampSeverity(40))
	assert.Equal(t, 1.0, ClampSeverity(math.NaN()))
}

func TestSeverity(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		weather *models.WeatherObservation
		want    float64
	}{
		{"no weather", nil, 1.0},
		{"calm", &models.WeatherObservation{WindSpeedMPH: 10, PrecipitationInches: 0.2}, 1.0},
		{"wind exactly severe", &models.WeatherObservation{WindSpeedMPH: 40}, 1.0},
		{"severe wind", &models.WeatherObservation{WindSpeedMPH: 45}, 1.25},
		{"severe alert", &models.WeatherObservation{WindSpeedMPH: 5, SevereWeatherAlert: true}, 1.25},
		{"extreme wind", &models.WeatherObservation{WindSpeedMPH: 65}, 1.5},
		{"extreme precipitation", &models.WeatherObservation{PrecipitationInches: 2.5, SevereWeatherAlert: true}, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multiplier, reasons := rules.Severity(tt.weather)
			assert.Equal(t, tt.want, multiplier)
			assert.Len(t, reasons, 1)
		})
	}
}

// ============================================================================
// TEST SUITE 3: Fraud checks and decision
// ============================================================================

func TestDetectFraud_Clean(t *testing.T) {
	flags, reasons := testRules().DetectFraud(scoreInput(newOutage("OUT-1", 187), nil))
	assert.Empty(t, flags)
	assert.NotNil(t, flags)
	assert.Empty(t, reasons)
}

func TestDetectFraud_AllFlags(t *testing.T) {
	outage := newOutage("OUT-1", 31*24*60)
	outage.ReportedCause = strPtr(models.ReportedCausePlannedMaintenance)

	input := scoreInput(outage, nil)
	input.Claim.FiledAt = outage.StartTime.Add(-time.Minute)
	input.OverlappingApproved = []models.Claim{{ID: uuid.New(), ClaimNumber: "CLM-0", Status: models.ClaimPaid}}

	flags, reasons := testRules().DetectFraud(input)
	assert.Equal(t, []string{
		models.FraudOverlappingApprovedClaim,
		models.FraudDurationExceedsCeiling,
		models.FraudFiledBeforeOutageStart,
		models.FraudPlannedMaintenanceExcluded,
	}, flags)
	assert.Len(t, reasons, 4)
	assert.Contains(t, reasons[0], "CLM-0")
}

func TestDetectFraud_HugeRecordedDurationExceedsCeiling(t *testing.T) {
	outage := newOutage("OUT-1", 0)
	outage.EndTime = nil
	outage.DurationMinutes = intPtr(2_000_000_000)

	flags, reasons := testRules().DetectFraud(scoreInput(outage, nil))
	assert.Equal(t, []string{models.FraudDurationExceedsCeiling}, flags)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "2000000000 min")
}

func TestDetectFraud_DurationAtCeilingIsClean(t *testing.T) {
	outage := newOutage("OUT-1", 30*24*60)

	flags, _ := testRules().DetectFraud(scoreInput(outage, nil))
	assert.Empty(t, flags)
}

func TestDetectFraud_PlannedMaintenanceCovered(t *testing.T) {
	rules := testRules()
	rules.CoverPlannedMaintenance = true

	outage := newOutage("OUT-1", 187)
	outage.ReportedCause = strPtr(models.ReportedCausePlannedMaintenance)

	flags, _ := rules.DetectFraud(scoreInput(outage, nil))
	assert.Empty(t, flags)
}

func TestDecide(t *testing.T) {
	rules := testRules()

	status, _ := rules.Decide(0.60, nil)
	assert.Equal(t, models.ClaimApproved, status)

	status, _ = rules.Decide(0.5999, nil)
	assert.Equal(t, models.ClaimDenied, status)

	status, why := rules.Decide(0.95, []string{models.FraudFiledBeforeOutageStart})
	assert.Equal(t, models.ClaimDenied, status)
	assert.Contains(t, why, models.FraudFiledBeforeOutageStart)
}

func TestRuleBasedScorer_Score(t *testing.T) {
	outage := newOutage("OUT-1", 600)
	weather := weatherAt("OUT-1", outage.StartTime.Add(time.Hour))
	weather.SevereWeatherAlert = true

	result, err := NewRuleBasedScorer(testRules()).Score(context.Background(), scoreInput(outage, weather))
	require.NoError(t, err)
	assert.Equal(t, 0.80, result.ConfidenceScore)
	assert.Equal(t, 1.25, result.SeverityMultiplier)
	assert.Empty(t, result.FraudFlags)
	assert.Equal(t, models.ClaimApproved, result.Decision)
	assert.Equal(t, models.ScorerRuleBased, result.ScoredBy)
	assert.NotEmpty(t, result.Reasoning)
}
