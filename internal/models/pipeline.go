package models

import "github.com/google/uuid"

// PipelineState is the position of one (policy, outage) pair in the pipeline.
type PipelineState string

const (
	StateMatched         PipelineState = "MATCHED"
	StateClaimFiled      PipelineState = "CLAIM_FILED"
	StateValidating      PipelineState = "VALIDATING"
	StateApproved        PipelineState = "APPROVED"
	StateDenied          PipelineState = "DENIED"
	StatePayoutInitiated PipelineState = "PAYOUT_INITIATED"
	StatePayoutComplete  PipelineState = "PAYOUT_COMPLETE"
	StatePayoutFailed    PipelineState = "PAYOUT_FAILED"

	StateBelowThreshold     PipelineState = "BELOW_THRESHOLD"
	StateAwaitingResolution PipelineState = "AWAITING_RESOLUTION"
	StateRejected           PipelineState = "REJECTED"
)

func (s PipelineState) IsTerminal() bool {
	switch s {
	case StateDenied, StatePayoutComplete, StatePayoutFailed, StateBelowThreshold, StateRejected:
		return true
	}
	return false
}

type PairResult struct {
	PolicyID string        `json:"policy_id"`
	State    PipelineState `json:"state"`
	ClaimID  *uuid.UUID    `json:"claim_id,omitempty"`
	PayoutID *uuid.UUID    `json:"payout_id,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

type OutageReport struct {
	OutageID string       `json:"outage_id"`
	Matched  int          `json:"matched"`
	Results  []PairResult `json:"results"`
}

// CountByState tallies results per state.
func (r *OutageReport) CountByState() map[PipelineState]int {
	counts := make(map[PipelineState]int)
	for _, res := range r.Results {
		counts[res.State]++
	}
	return counts
}
