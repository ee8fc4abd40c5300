package models

// ConfirmPayoutRequest is the payment rail callback body.
type ConfirmPayoutRequest struct {
	Status        PayoutStatus `json:"status" validate:"required,oneof=completed failed"`
	TransactionID string       `json:"transaction_id" validate:"required_if=Status completed"`
	FailureReason string       `json:"failure_reason" validate:"required_if=Status failed"`
}

type AuditLogQuery struct {
	After int64 `query:"after"`
	Limit int   `query:"limit"`
}

func (r *ConfirmPayoutRequest) Outcome() *PaymentOutcome {
	return &PaymentOutcome{Status: r.Status, TransactionID: r.TransactionID, Reason: r.FailureReason}
}
