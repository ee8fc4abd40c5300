package models

// PaymentOutcome is what a payment rail reports for one disbursement.
// Status PayoutInitiated means the rail accepted the request and will
// confirm later.
type PaymentOutcome struct {
	Status        PayoutStatus `json:"status"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// PayoutDisbursementRequest is sent to an asynchronous payment rail.
type PayoutDisbursementRequest struct {
	PayoutID      string  `json:"payout_id"`
	PayoutNumber  string  `json:"payout_number"`
	ClaimID       string  `json:"claim_id"`
	PolicyID      string  `json:"policy_id"`
	BusinessName  string  `json:"business_name"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
}

// PayoutConfirmation is the asynchronous answer of the payment rail.
type PayoutConfirmation struct {
	PayoutID      string       `json:"payout_id"`
	Status        PayoutStatus `json:"status"`
	TransactionID string       `json:"transaction_id"`
	FailureReason string       `json:"failure_reason"`
}

func (c *PayoutConfirmation) Outcome() *PaymentOutcome {
	return &PaymentOutcome{Status: c.Status, TransactionID: c.TransactionID, Reason: c.FailureReason}
}
