package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ============================================================================
// CLAIM & PAYOUT
// ============================================================================

// Claim is unique per (PolicyID, OutageEventID).
type Claim struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	ClaimNumber        string         `json:"claim_number" db:"claim_number"`
	PolicyID           string         `json:"policy_id" db:"policy_id"`
	OutageEventID      string         `json:"outage_event_id" db:"outage_event_id"`
	Status             ClaimStatus    `json:"status" db:"status"`
	ExcessMinutes      int            `json:"excess_minutes" db:"excess_minutes"`
	OutageStart        time.Time      `json:"outage_start" db:"outage_start"`
	OutageEnd          time.Time      `json:"outage_end" db:"outage_end"`
	ConfidenceScore    *float64       `json:"confidence_score,omitempty" db:"confidence_score"`
	SeverityMultiplier *float64       `json:"severity_multiplier,omitempty" db:"severity_multiplier"`
	FraudFlags         pq.StringArray `json:"fraud_flags" db:"fraud_flags"`
	Reasoning          pq.StringArray `json:"reasoning" db:"reasoning"`
	ScoredBy           *ScorerKind    `json:"scored_by,omitempty" db:"scored_by"`
	PayoutAmount       *float64       `json:"payout_amount,omitempty" db:"payout_amount"`
	FiledAt            time.Time      `json:"filed_at" db:"filed_at"`
	ValidatedAt        *time.Time     `json:"validated_at,omitempty" db:"validated_at"`
	ApprovedAt         *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	DeniedAt           *time.Time     `json:"denied_at,omitempty" db:"denied_at"`
	PaidAt             *time.Time     `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// ApplyScore copies a scoring result onto the claim and stamps the decision
// timestamps. It does not persist anything.
func (c *Claim) ApplyScore(result *ScoreResult, at time.Time) {
	confidence := result.ConfidenceScore
	severity := result.SeverityMultiplier
	scoredBy := result.ScoredBy

	c.ConfidenceScore = &confidence
	c.SeverityMultiplier = &severity
	c.FraudFlags = append(pq.StringArray{}, result.FraudFlags...)
	c.Reasoning = append(pq.StringArray{}, result.Reasoning...)
	c.ScoredBy = &scoredBy
	c.Status = result.Decision
	c.ValidatedAt = &at
	c.ApprovedAt = nil
	c.DeniedAt = nil
	if result.Decision == ClaimApproved {
		c.ApprovedAt = &at
	} else {
		c.DeniedAt = &at
	}
}

type Payout struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	PayoutNumber  string       `json:"payout_number" db:"payout_number"`
	ClaimID       uuid.UUID    `json:"claim_id" db:"claim_id"`
	PolicyID      string       `json:"policy_id" db:"policy_id"`
	Amount        float64      `json:"amount" db:"amount"`
	Currency      string       `json:"currency" db:"currency"`
	PaymentMethod string       `json:"payment_method" db:"payment_method"`
	Status        PayoutStatus `json:"status" db:"status"`
	TransactionID *string      `json:"transaction_id,omitempty" db:"transaction_id"`
	FailureReason *string      `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryEligible bool         `json:"retry_eligible" db:"retry_eligible"`
	InitiatedAt   time.Time    `json:"initiated_at" db:"initiated_at"`
	DispatchedAt  *time.Time   `json:"dispatched_at,omitempty" db:"dispatched_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt      *time.Time   `json:"failed_at,omitempty" db:"failed_at"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

const (
	CurrencyUSD      = "USD"
	PaymentMethodACH = "ACH"
)

// ClaimFilter narrows claim listings. Zero values are ignored.
type ClaimFilter struct {
	PolicyID      string      `query:"policy_id"`
	OutageEventID string      `query:"outage_event_id"`
	Status        ClaimStatus `query:"status"`
	Limit         int         `query:"limit"`
}
