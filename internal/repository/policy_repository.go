package repository

import (
	"context"
	"fmt"

	"claims-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

const policyColumns = `
	id, policy_number, business_name, business_type,
	ST_AsEWKB(location::geometry) AS location,
	postal_code, threshold_minutes, hourly_rate, max_payout, status,
	effective_date, expiration_date, contact_email, contact_phone,
	created_at, updated_at`

type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	var policy models.Policy
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`

	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		return nil, wrapGetErr(err, "policy "+id)
	}
	return &policy, nil
}

// ListActiveByPostalCode returns active policies registered in postalCode.
func (r *PolicyRepository) ListActiveByPostalCode(ctx context.Context, postalCode string) ([]models.Policy, error) {
	var policies []models.Policy
	if postalCode == "" {
		return policies, nil
	}
	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE status = 'active' AND postal_code = $1`

	if err := r.db.SelectContext(ctx, &policies, query, postalCode); err != nil {
		return nil, fmt.Errorf("failed to list policies by postal code: %w", err)
	}
	return policies, nil
}

// ListActiveWithinBound returns active policies whose location falls inside
// the lon/lat bound. Callers refine with an exact distance check.
func (r *PolicyRepository) ListActiveWithinBound(ctx context.Context, bound orb.Bound) ([]models.Policy, error) {
	var policies []models.Policy
	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE status = 'active'
		  AND location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)`

	err := r.db.SelectContext(ctx, &policies, query,
		bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat())
	if err != nil {
		return nil, fmt.Errorf("failed to list policies within bound: %w", err)
	}
	return policies, nil
}
