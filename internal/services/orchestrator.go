package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EventEmitter publishes domain events. PublishOnce skips an event whose
// (type, subject) already reached the sink or the local log. Publishing
// never fails the caller; the returned entry describes the attempt.
type EventEmitter interface {
	PublishOnce(ctx context.Context, eventType models.EventType, subject string, data any) *models.AuditLogEntry
}

func OutageSubject(id string) string    { return "outages/" + id }
func ClaimSubject(id uuid.UUID) string  { return "claims/" + id.String() }
func PayoutSubject(id uuid.UUID) string { return "payouts/" + id.String() }

// PipelineComponents wires the stages of the claims pipeline.
type PipelineComponents struct {
	Outages    OutageStore
	Policies   PolicyStore
	Payouts    PayoutStore
	Matcher    *PolicyMatcher
	Evaluator  *ThresholdEvaluator
	Validator  *ClaimValidator
	Calculator *PayoutCalculator
	Weather    *WeatherLookup
	Events     EventEmitter
}

// Orchestrator runs every matched (policy, outage) pair through
// file → validate → pay. Each stage is idempotent, so re-running an outage
// resumes pairs from their persisted state.
type Orchestrator struct {
	PipelineComponents
	workers int
}

func NewOrchestrator(components PipelineComponents, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{PipelineComponents: components, workers: workers}
}

// ProcessOutage loads the outage and runs the pipeline for it.
func (o *Orchestrator) ProcessOutage(ctx context.Context, outageID string) (*models.OutageReport, error) {
	outage, err := o.Outages.GetByID(ctx, outageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outage %s: %w", outageID, err)
	}
	return o.ProcessOutageEvent(ctx, outage)
}

func (o *Orchestrator) ProcessOutageEvent(ctx context.Context, outage *models.OutageEvent) (*models.OutageReport, error) {
	if err := models.ValidateOutage(outage); err != nil {
		slog.Error("Rejected outage record", "outage_id", outage.ID, "error", err)
		return nil, err
	}

	policies, err := o.Matcher.Match(ctx, outage)
	if err != nil {
		return nil, err
	}

	report := &models.OutageReport{
		OutageID: outage.ID,
		Matched:  len(policies),
		Results:  make([]models.PairResult, len(policies)),
	}

	o.Events.PublishOnce(ctx, models.EventOutageDetected, OutageSubject(outage.ID), outageEventData(outage, len(policies)))

	if !outage.IsFinalized() {
		for i := range policies {
			report.Results[i] = models.PairResult{
				PolicyID: policies[i].ID,
				State:    models.StateAwaitingResolution,
				Reason:   fmt.Sprintf("outage status %s, claims are filed once resolved", outage.Status),
			}
		}
		slog.Info("Outage not finalized, waiting for resolution",
			"outage_id", outage.ID,
			"status", outage.Status,
			"matched_policies", len(policies))
		return report, nil
	}

	weather := o.Weather.ForOutage(ctx, outage.ID)

	// pairs are independent; one failing pair must not cancel the others
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i := range policies {
		g.Go(func() error {
			report.Results[i] = o.processPair(ctx, &policies[i], outage, weather)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Outage processed",
		"outage_id", outage.ID,
		"matched_policies", len(policies),
		"states", report.CountByState())

	return report, nil
}

func (o *Orchestrator) processPair(
	ctx context.Context,
	policy *models.Policy,
	outage *models.OutageEvent,
	weather *models.WeatherObservation,
) models.PairResult {
	result := models.PairResult{PolicyID: policy.ID, State: models.StateMatched}

	claim, _, err := o.Evaluator.Evaluate(ctx, policy, outage)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRecord) {
			result.State = models.StateRejected
		}
		return o.pairFailed(result, outage, err)
	}
	if claim == nil {
		result.State = models.StateBelowThreshold
		return result
	}
	result.ClaimID = &claim.ID
	result.State = models.StateClaimFiled

	decided, _, err := o.Validator.Validate(ctx, claim, policy, outage, weather)
	if err != nil {
		result.State = models.StateValidating
		return o.pairFailed(result, outage, err)
	}

	if decided.Status == models.ClaimDenied {
		o.Events.PublishOnce(ctx, models.EventClaimDenied, ClaimSubject(decided.ID), claimEventData(decided))
		result.State = models.StateDenied
		result.Reason = denialReason(decided)
		return result
	}

	o.Events.PublishOnce(ctx, models.EventClaimApproved, ClaimSubject(decided.ID), claimEventData(decided))
	result.State = models.StateApproved

	payout, err := o.Calculator.Process(ctx, decided, policy)
	if err != nil {
		return o.pairFailed(result, outage, err)
	}
	result.PayoutID = &payout.ID
	result.State = payoutState(payout.Status)

	if payout.Status == models.PayoutFailed && payout.FailureReason != nil {
		result.Reason = *payout.FailureReason
	}
	if payout.Status.IsTerminal() {
		o.Events.PublishOnce(ctx, models.EventPayoutProcessed, PayoutSubject(payout.ID), payoutEventData(payout))
	}

	return result
}

// pairFailed records an unexpected stage error. The pair keeps the state of
// its last persisted stage and is resumed by the next run.
func (o *Orchestrator) pairFailed(result models.PairResult, outage *models.OutageEvent, err error) models.PairResult {
	result.Reason = err.Error()
	slog.Error("Pipeline stage failed",
		"outage_id", outage.ID,
		"policy_id", result.PolicyID,
		"state", result.State,
		"error", err)
	return result
}

// ConfirmPayout applies an asynchronous payment rail answer and publishes
// payout.processed once the payout is terminal.
func (o *Orchestrator) ConfirmPayout(ctx context.Context, payoutID uuid.UUID, outcome *models.PaymentOutcome) (*models.Payout, error) {
	payout, err := o.Payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	policy, err := o.Policies.GetByID(ctx, payout.PolicyID)
	if err != nil {
		slog.Warn("Policy not loaded for payout confirmation, skipping notification",
			"payout_id", payoutID, "policy_id", payout.PolicyID, "error", err)
		policy = nil
	}

	payout, applied, err := o.Calculator.Confirm(ctx, payoutID, outcome, policy)
	if err != nil {
		return nil, err
	}
	if !applied {
		slog.Info("Payout already settled, confirmation ignored", "payout_id", payoutID, "status", payout.Status)
	}
	if payout.Status.IsTerminal() {
		o.Events.PublishOnce(ctx, models.EventPayoutProcessed, PayoutSubject(payout.ID), payoutEventData(payout))
	}
	return payout, nil
}

func payoutState(status models.PayoutStatus) models.PipelineState {
	switch status {
	case models.PayoutCompleted:
		return models.StatePayoutComplete
	case models.PayoutFailed:
		return models.StatePayoutFailed
	default:
		return models.StatePayoutInitiated
	}
}

func denialReason(c *models.Claim) string {
	if len(c.FraudFlags) > 0 {
		return "fraud flags: " + strings.Join(c.FraudFlags, ", ")
	}
	if n := len(c.Reasoning); n > 0 {
		return c.Reasoning[n-1]
	}
	return "denied"
}

func outageEventData(o *models.OutageEvent, matched int) map[string]any {
	data := map[string]any{
		"outage_id":          o.ID,
		"utility_name":       o.UtilityName,
		"postal_code":        o.PostalCode,
		"latitude":           o.Location.Lat(),
		"longitude":          o.Location.Lon(),
		"start_time":         o.StartTime.UTC().Format(time.RFC3339),
		"status":             o.Status,
		"affected_customers": o.AffectedCustomers,
		"matched_policies":   matched,
	}
	if minutes, ok := o.Duration(); ok {
		data["duration_minutes"] = minutes
	}
	return data
}

func claimEventData(c *models.Claim) map[string]any {
	return map[string]any{
		"claim_id":            c.ID,
		"claim_number":        c.ClaimNumber,
		"policy_id":           c.PolicyID,
		"outage_event_id":     c.OutageEventID,
		"status":              c.Status,
		"excess_minutes":      c.ExcessMinutes,
		"confidence_score":    c.ConfidenceScore,
		"severity_multiplier": c.SeverityMultiplier,
		"fraud_flags":         []string(c.FraudFlags),
		"scored_by":           c.ScoredBy,
	}
}

func payoutEventData(p *models.Payout) map[string]any {
	return map[string]any{
		"payout_id":      p.ID,
		"payout_number":  p.PayoutNumber,
		"claim_id":       p.ClaimID,
		"policy_id":      p.PolicyID,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"status":         p.Status,
		"transaction_id": p.TransactionID,
		"failure_reason": p.FailureReason,
	}
}
