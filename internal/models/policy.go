package models

import "time"

// ============================================================================
// POLICY (read-only, owned by the record store)
// ============================================================================

type Policy struct {
	ID               string       `json:"id" db:"id" validate:"required"`
	PolicyNumber     string       `json:"policy_number" db:"policy_number"`
	BusinessName     string       `json:"business_name" db:"business_name"`
	BusinessType     string       `json:"business_type" db:"business_type"`
	Location         GeoJSONPoint `json:"location" db:"location" validate:"required"`
	PostalCode       string       `json:"postal_code" db:"postal_code"`
	ThresholdMinutes int          `json:"threshold_minutes" db:"threshold_minutes" validate:"gte=0"`
	HourlyRate       float64      `json:"hourly_rate" db:"hourly_rate" validate:"gte=0"`
	MaxPayout        float64      `json:"max_payout" db:"max_payout" validate:"gte=0"`
	Status           PolicyStatus `json:"status" db:"status" validate:"required,oneof=active expired suspended"`
	EffectiveDate    *time.Time   `json:"effective_date,omitempty" db:"effective_date"`
	ExpirationDate   *time.Time   `json:"expiration_date,omitempty" db:"expiration_date"`
	ContactEmail     *string      `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone     *string      `json:"contact_phone,omitempty" db:"contact_phone"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// CoversOutageAt reports whether the policy is active and inside its
// coverage window at t. Nil dates are open-ended.
func (p *Policy) CoversOutageAt(t time.Time) bool {
	if p.Status != PolicyActive {
		return false
	}
	if p.EffectiveDate != nil && p.EffectiveDate.After(t) {
		return false
	}
	if p.ExpirationDate != nil && p.ExpirationDate.Before(t) {
		return false
	}
	return true
}
