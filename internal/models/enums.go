package models

type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyExpired   PolicyStatus = "expired"
	PolicySuspended PolicyStatus = "suspended"
)

type OutageStatus string

const (
	OutageActive        OutageStatus = "active"
	OutageResolved      OutageStatus = "resolved"
	OutageInvestigating OutageStatus = "investigating"
)

type ClaimStatus string

const (
	ClaimPending    ClaimStatus = "pending"
	ClaimValidating ClaimStatus = "validating"
	ClaimApproved   ClaimStatus = "approved"
	ClaimDenied     ClaimStatus = "denied"
	ClaimPaid       ClaimStatus = "paid"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimPending:    {ClaimValidating, ClaimApproved, ClaimDenied},
	ClaimValidating: {ClaimApproved, ClaimDenied},
	ClaimApproved:   {ClaimPaid},
}

// CanTransitionTo reports whether next is a forward move from s.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDecided is true once approve/deny has been recorded.
func (s ClaimStatus) IsDecided() bool {
	return s == ClaimApproved || s == ClaimDenied || s == ClaimPaid
}

type PayoutStatus string

const (
	PayoutInitiated PayoutStatus = "initiated"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	return s == PayoutInitiated && (next == PayoutCompleted || next == PayoutFailed)
}

func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutCompleted || s == PayoutFailed
}

type PublishStatus string

const (
	PublishPublished PublishStatus = "published"
	PublishLocalOnly PublishStatus = "local_only"
	PublishFailed    PublishStatus = "failed"
)

type EventType string

const (
	EventOutageDetected  EventType = "outage.detected"
	EventClaimApproved   EventType = "claim.approved"
	EventClaimDenied     EventType = "claim.denied"
	EventPayoutProcessed EventType = "payout.processed"
)

type ScorerKind string

const (
	ScorerRuleBased ScorerKind = "rule_based"
	ScorerGemini    ScorerKind = "gemini"
)

// Fraud flag tags. Any of them on a claim forces denial.
const (
	FraudOverlappingApprovedClaim   = "overlapping_approved_claim"
	FraudDurationExceedsCeiling     = "duration_exceeds_sanity_ceiling"
	FraudFiledBeforeOutageStart     = "filed_before_outage_start"
	FraudPlannedMaintenanceExcluded = "planned_maintenance_not_covered"
)

func IsKnownFraudFlag(flag string) bool {
	switch flag {
	case FraudOverlappingApprovedClaim, FraudDurationExceedsCeiling, FraudFiledBeforeOutageStart, FraudPlannedMaintenanceExcluded:
		return true
	}
	return false
}

const ReportedCausePlannedMaintenance = "planned_maintenance"
