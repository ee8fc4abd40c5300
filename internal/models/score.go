package models

// ScoreInput is everything a claim scorer may look at.
type ScoreInput struct {
	Claim   *Claim
	Policy  *Policy
	Outage  *OutageEvent
	Weather *WeatherObservation
	// Approved claims of the same policy whose outage window overlaps this one.
	OverlappingApproved []Claim
}

// ScoreResult is the output contract shared by every scorer.
type ScoreResult struct {
	ConfidenceScore    float64     `json:"confidence_score"`
	SeverityMultiplier float64     `json:"severity_multiplier"`
	FraudFlags         []string    `json:"fraud_flags"`
	Reasoning          []string    `json:"reasoning"`
	Decision           ClaimStatus `json:"decision"`
	ScoredBy           ScorerKind  `json:"scored_by"`
}
