package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrClaimNotApproved = errors.New("claim is not approved")

var minutesPerHour = decimal.NewFromInt(60)

// CalculatePayoutAmount returns min(hourlyRate * excess/60 * multiplier,
// maxPayout) rounded half-up to cents.
func CalculatePayoutAmount(hourlyRate float64, excessMinutes int, multiplier, maxPayout float64) decimal.Decimal {
	if excessMinutes <= 0 || hourlyRate <= 0 {
		return decimal.Zero
	}
	if multiplier < 1 {
		multiplier = 1
	}

	raw := decimal.NewFromFloat(hourlyRate).
		Mul(decimal.NewFromInt(int64(excessMinutes))).
		Div(minutesPerHour).
		Mul(decimal.NewFromFloat(multiplier))

	capped := decimal.Min(raw, decimal.NewFromFloat(maxPayout))
	if capped.IsNegative() {
		capped = decimal.Zero
	}
	// Round is half away from zero, i.e. half-up for non-negative amounts.
	return capped.Round(2)
}

// PayoutCalculator turns approved claims into payouts and drives them to a
// terminal status through the payment rail.
type PayoutCalculator struct {
	claims   ClaimStore
	payouts  PayoutStore
	rail     PaymentRail
	notifier Notifier
	ids      *IDGenerator
	timeout  time.Duration
	now      func() time.Time
}

func NewPayoutCalculator(
	claims ClaimStore,
	payouts PayoutStore,
	rail PaymentRail,
	notifier Notifier,
	ids *IDGenerator,
	timeout time.Duration,
) *PayoutCalculator {
	return &PayoutCalculator{
		claims:   claims,
		payouts:  payouts,
		rail:     rail,
		notifier: notifier,
		ids:      ids,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Process creates the claim's payout if it has none and dispatches it to the
// payment rail once. It returns the payout in its current status.
func (c *PayoutCalculator) Process(ctx context.Context, claim *models.Claim, policy *models.Policy) (*models.Payout, error) {
	if claim.Status != models.ClaimApproved && claim.Status != models.ClaimPaid {
		return nil, fmt.Errorf("claim %s in status %s: %w", claim.ID, claim.Status, ErrClaimNotApproved)
	}

	multiplier := 1.0
	if claim.SeverityMultiplier != nil {
		multiplier = *claim.SeverityMultiplier
	}
	amount := CalculatePayoutAmount(policy.HourlyRate, claim.ExcessMinutes, multiplier, policy.MaxPayout)
	amountFloat := amount.InexactFloat64()

	now := c.now().UTC()
	if claim.PayoutAmount == nil {
		if err := c.claims.SetPayoutAmount(ctx, claim.ID, amountFloat, now); err != nil {
			return nil, err
		}
		claim.PayoutAmount = &amountFloat
	}

	candidate := &models.Payout{
		ID:            uuid.New(),
		PayoutNumber:  c.ids.PayoutNumber(),
		ClaimID:       claim.ID,
		PolicyID:      policy.ID,
		Amount:        amountFloat,
		Currency:      models.CurrencyUSD,
		PaymentMethod: models.PaymentMethodACH,
		Status:        models.PayoutInitiated,
		InitiatedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	payout, created, err := c.payouts.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout for claim %s: %w", claim.ID, err)
	}
	if created {
		slog.Info("Payout initiated",
			"payout_id", payout.ID,
			"claim_id", claim.ID,
			"policy_id", policy.ID,
			"amount", amount.StringFixed(2),
			"max_payout", policy.MaxPayout)
	}

	if payout.Status.IsTerminal() || c.rail == nil {
		return payout, nil
	}

	dispatched, err := c.payouts.MarkDispatched(ctx, payout.ID, c.now().UTC())
	if err != nil {
		return nil, err
	}
	if !dispatched {
		// already sent by an earlier run; only the rail's confirmation settles it
		current, err := c.payouts.GetByID(ctx, payout.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.PayoutInitiated {
			attrs := []any{
				"payout_id", current.ID,
				"claim_id", claim.ID,
				"policy_id", policy.ID,
			}
			if current.DispatchedAt != nil {
				attrs = append(attrs,
					"dispatched_at", current.DispatchedAt.Format(time.RFC3339),
					"unsettled_for", c.now().Sub(*current.DispatchedAt).Round(time.Second).String())
			}
			slog.Warn("Payout dispatched but not settled, waiting for payment rail confirmation", attrs...)
		}
		return current, nil
	}

	railCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		railCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	outcome, err := c.rail.Disburse(railCtx, payout, policy)
	if err != nil {
		outcome = &models.PaymentOutcome{
			Status: models.PayoutFailed,
			Reason: fmt.Sprintf("payment rail error: %v", err),
		}
	}

	return c.applyOutcome(ctx, payout, policy, outcome)
}

// Confirm applies an asynchronous payment rail answer. Confirming a payout
// that is already terminal returns it unchanged with applied=false.
func (c *PayoutCalculator) Confirm(ctx context.Context, payoutID uuid.UUID, outcome *models.PaymentOutcome, policy *models.Policy) (payout *models.Payout, applied bool, err error) {
	payout, err = c.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, false, err
	}
	if payout.Status.IsTerminal() {
		return payout, false, nil
	}
	if !payout.Status.CanTransitionTo(outcome.Status) {
		return nil, false, fmt.Errorf("payout %s cannot move to %s: %w", payoutID, outcome.Status, ErrInvalidTransition)
	}

	updated, err := c.applyOutcome(ctx, payout, policy, outcome)
	if err != nil {
		return nil, false, err
	}
	return updated, updated.Status == outcome.Status, nil
}

func (c *PayoutCalculator) applyOutcome(ctx context.Context, payout *models.Payout, policy *models.Policy, outcome *models.PaymentOutcome) (*models.Payout, error) {
	at := c.now().UTC()

	switch outcome.Status {
	case models.PayoutCompleted:
		done, err := c.payouts.Complete(ctx, payout, outcome.TransactionID, at)
		if err != nil {
			return nil, err
		}
		if done {
			slog.Info("Payout completed",
				"payout_id", payout.ID,
				"claim_id", payout.ClaimID,
				"transaction_id", outcome.TransactionID,
				"amount", payout.Amount)
			c.notify(ctx, policy, payout.ID)
		}

	case models.PayoutFailed:
		reason := outcome.Reason
		if reason == "" {
			reason = "payment rail reported failure without a reason"
		}
		// failed payouts are always left for an external retry
		failed, err := c.payouts.Fail(ctx, payout.ID, reason, true, at)
		if err != nil {
			return nil, err
		}
		if failed {
			slog.Error("Payout failed",
				"payout_id", payout.ID,
				"claim_id", payout.ClaimID,
				"reason", reason,
				"retry_eligible", true)
		}

	default:
		slog.Info("Payout dispatched, awaiting payment rail confirmation", "payout_id", payout.ID, "claim_id", payout.ClaimID)
	}

	return c.payouts.GetByID(ctx, payout.ID)
}

func (c *PayoutCalculator) notify(ctx context.Context, policy *models.Policy, payoutID uuid.UUID) {
	if c.notifier == nil || policy == nil {
		return
	}
	payout, err := c.payouts.GetByID(ctx, payoutID)
	if err != nil {
		slog.Warn("Failed to load payout for notification", "payout_id", payoutID, "error", err)
		return
	}
	if err := c.notifier.NotifyPayoutCompleted(ctx, policy, payout); err != nil {
		slog.Warn("Failed to notify policyholder", "payout_id", payoutID, "policy_id", policy.ID, "error", err)
	}
}
