package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"claims-service/internal/models"
)

const PushNotiQueue string = "push_noti_events"

// NotificationEventPushModel matches the push payload of the notification service.
type NotificationEventPushModel struct {
	LstUserIds []string       `json:"lstUserIds,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
}

func payoutCompletedNotification(policy *models.Policy, payout *models.Payout) NotificationEventPushModel {
	body := fmt.Sprintf("A payout of %.2f %s for policy %s has been sent by %s.",
		payout.Amount, payout.Currency, policy.PolicyNumber, payout.PaymentMethod)
	data := map[string]any{
		"payout_id":     payout.ID.String(),
		"payout_number": payout.PayoutNumber,
		"claim_id":      payout.ClaimID.String(),
		"policy_id":     policy.ID,
	}
	if payout.TransactionID != nil {
		data["transaction_id"] = *payout.TransactionID
	}
	return NotificationEventPushModel{
		LstUserIds: []string{policy.ID},
		Title:      "Outage payout completed",
		Body:       body,
		Data:       data,
	}
}

// NotificationPublisher publishes policyholder notifications to RabbitMQ
type NotificationPublisher struct {
	conn *RabbitMQConnection
}

func NewNotificationPublisher(conn *RabbitMQConnection) (*NotificationPublisher, error) {
	if err := conn.DeclareQueue(PushNotiQueue); err != nil {
		return nil, err
	}
	return &NotificationPublisher{conn: conn}, nil
}

func (p *NotificationPublisher) NotifyPayoutCompleted(ctx context.Context, policy *models.Policy, payout *models.Payout) error {
	notification := payoutCompletedNotification(policy, payout)
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	if err := p.conn.PublishJSON(ctx, "", PushNotiQueue, body, payout.ID.String()); err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}

	slog.Info("Notification event published",
		"queue", PushNotiQueue,
		"title", notification.Title,
		"policy_id", policy.ID,
		"payout_id", payout.ID)
	return nil
}

// LogNotifier only logs the notification; used when RabbitMQ is disabled.
type LogNotifier struct{}

func (LogNotifier) NotifyPayoutCompleted(_ context.Context, policy *models.Policy, payout *models.Payout) error {
	notification := payoutCompletedNotification(policy, payout)
	slog.Info("Policyholder notification (not sent, messaging disabled)",
		"policy_id", policy.ID,
		"title", notification.Title,
		"body", notification.Body)
	return nil
}
