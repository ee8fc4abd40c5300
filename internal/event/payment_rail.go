package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"claims-service/internal/models"
)

// AMQPPaymentRail hands payouts to the payment service over RabbitMQ. The
// payout stays initiated until a confirmation arrives on payment_events.
type AMQPPaymentRail struct {
	conn *RabbitMQConnection
}

func NewAMQPPaymentRail(conn *RabbitMQConnection) (*AMQPPaymentRail, error) {
	if err := conn.DeclareQueue(PayoutRequestsQueue); err != nil {
		return nil, err
	}
	return &AMQPPaymentRail{conn: conn}, nil
}

func (r *AMQPPaymentRail) Disburse(ctx context.Context, payout *models.Payout, policy *models.Policy) (*models.PaymentOutcome, error) {
	request := models.PayoutDisbursementRequest{
		PayoutID:      payout.ID.String(),
		PayoutNumber:  payout.PayoutNumber,
		ClaimID:       payout.ClaimID.String(),
		PolicyID:      payout.PolicyID,
		BusinessName:  policy.BusinessName,
		Amount:        payout.Amount,
		Currency:      payout.Currency,
		PaymentMethod: payout.PaymentMethod,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal disbursement request: %w", err)
	}
	if err := r.conn.PublishJSON(ctx, "", PayoutRequestsQueue, body, request.PayoutID); err != nil {
		return nil, fmt.Errorf("failed to publish disbursement request: %w", err)
	}

	slog.Info("Disbursement request sent", "payout_id", payout.ID, "queue", PayoutRequestsQueue, "amount", payout.Amount)
	return &models.PaymentOutcome{Status: models.PayoutInitiated}, nil
}
