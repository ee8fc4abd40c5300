package services

import (
	"context"

	"claims-service/internal/models"
)

// PaymentRail disburses a payout. Implementations must treat payout.ID as an
// idempotency key. An outcome with status initiated means the rail will
// confirm asynchronously.
type PaymentRail interface {
	Disburse(ctx context.Context, payout *models.Payout, policy *models.Policy) (*models.PaymentOutcome, error)
}

// SimulatedPaymentRail confirms every disbursement immediately.
type SimulatedPaymentRail struct {
	ids *IDGenerator
}

func NewSimulatedPaymentRail(ids *IDGenerator) *SimulatedPaymentRail {
	return &SimulatedPaymentRail{ids: ids}
}

func (r *SimulatedPaymentRail) Disburse(ctx context.Context, payout *models.Payout, _ *models.Policy) (*models.PaymentOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.PaymentOutcome{
		Status:        models.PayoutCompleted,
		TransactionID: r.ids.TransactionID(),
	}, nil
}

// Notifier tells the policyholder about a completed payout.
type Notifier interface {
	NotifyPayoutCompleted(ctx context.Context, policy *models.Policy, payout *models.Payout) error
}
