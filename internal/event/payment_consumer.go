package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"claims-service/internal/models"
	"claims-service/internal/repository"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PaymentEventsQueue  = "payment_events"
	PayoutRequestsQueue = "payout_requests"
)

// PaymentConfirmationHandler settles a payout with the payment rail's answer.
type PaymentConfirmationHandler interface {
	ConfirmPayout(ctx context.Context, payoutID uuid.UUID, outcome *models.PaymentOutcome) (*models.Payout, error)
}

// PaymentConsumer consumes payout confirmations from RabbitMQ
type PaymentConsumer struct {
	conn    *RabbitMQConnection
	handler PaymentConfirmationHandler
}

func NewPaymentConsumer(conn *RabbitMQConnection, handler PaymentConfirmationHandler) *PaymentConsumer {
	return &PaymentConsumer{
		conn:    conn,
		handler: handler,
	}
}

// Start begins consuming payment events
func (c *PaymentConsumer) Start(ctx context.Context) error {
	if err := c.conn.DeclareQueue(PaymentEventsQueue); err != nil {
		return err
	}

	msgs, err := c.conn.Channel.Consume(
		PaymentEventsQueue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (we'll manually ack after processing)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	slog.Info("Payment consumer started", "queue", PaymentEventsQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Payment consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("Payment consumer channel closed")
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *PaymentConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	requeue, err := c.handle(ctx, msg.Body)
	if err != nil {
		slog.Error("failed to handle payment event", "requeue", requeue, "error", err)
		msg.Nack(false, requeue)
		return
	}
	msg.Ack(false)
}

// handle applies one message. requeue is true only for errors worth retrying.
func (c *PaymentConsumer) handle(ctx context.Context, body []byte) (requeue bool, err error) {
	var confirmation models.PayoutConfirmation
	if err := json.Unmarshal(body, &confirmation); err != nil {
		return false, err
	}

	payoutID, err := uuid.Parse(confirmation.PayoutID)
	if err != nil {
		return false, err
	}
	if !models.PayoutInitiated.CanTransitionTo(confirmation.Status) {
		return false, errors.New("payment event carries non-terminal status " + string(confirmation.Status))
	}

	slog.Info("Received payment event",
		"payout_id", payoutID,
		"status", confirmation.Status,
		"transaction_id", confirmation.TransactionID)

	if _, err := c.handler.ConfirmPayout(ctx, payoutID, confirmation.Outcome()); err != nil {
		return !errors.Is(err, repository.ErrNotFound), err
	}
	return false, nil
}
