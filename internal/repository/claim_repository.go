package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const claimColumns = `
	id, claim_number, policy_id, outage_event_id, status, excess_minutes,
	outage_start, outage_end, confidence_score, severity_multiplier,
	fraud_flags, reasoning, scored_by, payout_amount, filed_at,
	validated_at, approved_at, denied_at, paid_at, created_at, updated_at`

type ClaimRepository struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// CreateIfAbsent inserts claim unless one already exists for its
// (policy_id, outage_event_id). It returns the stored claim and whether this
// call created it.
func (r *ClaimRepository) CreateIfAbsent(ctx context.Context, claim *models.Claim) (*models.Claim, bool, error) {
	query := `
		INSERT INTO claims (
			id, claim_number, policy_id, outage_event_id, status, excess_minutes,
			outage_start, outage_end, fraud_flags, reasoning, filed_at, created_at, updated_at
		) VALUES (
			:id, :claim_number, :policy_id, :outage_event_id, :status, :excess_minutes,
			:outage_start, :outage_end, :fraud_flags, :reasoning, :filed_at, :created_at, :updated_at
		)
		ON CONFLICT ON CONSTRAINT uq_claims_policy_outage DO NOTHING
		RETURNING id`

	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare claim insert: %w", err)
	}
	defer stmt.Close()

	var insertedID uuid.UUID
	err = stmt.GetContext(ctx, &insertedID, claim)
	switch {
	case err == nil:
		return claim, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, getErr := r.GetByPolicyAndOutage(ctx, claim.PolicyID, claim.OutageEventID)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to load existing claim after conflict: %w", getErr)
		}
		return existing, false, nil
	case isUniqueViolation(err):
		return nil, false, fmt.Errorf("claim number %s: %w", claim.ClaimNumber, ErrDuplicate)
	default:
		return nil, false, fmt.Errorf("failed to create claim: %w", err)
	}
}

func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		return nil, wrapGetErr(err, "claim "+id.String())
	}
	return &claim, nil
}

func (r *ClaimRepository) GetByPolicyAndOutage(ctx context.Context, policyID, outageID string) (*models.Claim, error) {
	var claim models.Claim
	query := `SELECT ` + claimColumns + ` FROM claims WHERE policy_id = $1 AND outage_event_id = $2`

	if err := r.db.GetContext(ctx, &claim, query, policyID, outageID); err != nil {
		return nil, wrapGetErr(err, fmt.Sprintf("claim for policy %s outage %s", policyID, outageID))
	}
	return &claim, nil
}

// List retrieves claims with optional filters
func (r *ClaimRepository) List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	claims := []models.Claim{}
	query := `SELECT ` + claimColumns + ` FROM claims WHERE 1=1`

	args := []any{}
	argCount := 1

	if filter.PolicyID != "" {
		query += fmt.Sprintf(" AND policy_id = $%d", argCount)
		args = append(args, filter.PolicyID)
		argCount++
	}
	if filter.OutageEventID != "" {
		query += fmt.Sprintf(" AND outage_event_id = $%d", argCount)
		args = append(args, filter.OutageEventID)
		argCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
		argCount++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY filed_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

// ListOverlappingApproved returns approved or paid claims of policyID, other
// than excludeID, whose outage window intersects (start, end).
func (r *ClaimRepository) ListOverlappingApproved(ctx context.Context, policyID string, excludeID uuid.UUID, start, end time.Time) ([]models.Claim, error) {
	claims := []models.Claim{}
	query := `SELECT ` + claimColumns + `
		FROM claims
		WHERE policy_id = $1
		  AND id <> $2
		  AND status IN ('approved', 'paid')
		  AND outage_start < $4
		  AND outage_end > $3
		ORDER BY outage_start`

	if err := r.db.SelectContext(ctx, &claims, query, policyID, excludeID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list overlapping approved claims: %w", err)
	}
	return claims, nil
}

// MarkValidating moves a pending claim to validating. It reports false when
// the claim was no longer pending.
func (r *ClaimRepository) MarkValidating(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE claims SET status = 'validating', updated_at = $2 WHERE id = $1 AND status = 'pending'`
	return r.conditionalUpdate(ctx, query, id, at)
}

// RecordDecision writes the score and approve/deny outcome. Only a claim that
// is still pending or validating is updated; false means another writer
// decided first.
func (r *ClaimRepository) RecordDecision(ctx context.Context, claim *models.Claim) (bool, error) {
	query := `
		UPDATE claims SET
			status = $2,
			confidence_score = $3,
			severity_multiplier = $4,
			fraud_flags = $5,
			reasoning = $6,
			scored_by = $7,
			validated_at = $8,
			approved_at = $9,
			denied_at = $10,
			updated_at = $8
		WHERE id = $1 AND status IN ('pending', 'validating')`

	return r.conditionalUpdate(ctx, query,
		claim.ID,
		claim.Status,
		claim.ConfidenceScore,
		claim.SeverityMultiplier,
		claim.FraudFlags,
		claim.Reasoning,
		claim.ScoredBy,
		claim.ValidatedAt,
		claim.ApprovedAt,
		claim.DeniedAt,
	)
}

// SetPayoutAmount records the computed amount once.
func (r *ClaimRepository) SetPayoutAmount(ctx context.Context, id uuid.UUID, amount float64, at time.Time) error {
	query := `UPDATE claims SET payout_amount = $2, updated_at = $3 WHERE id = $1 AND payout_amount IS NULL`
	if _, err := r.conditionalUpdate(ctx, query, id, amount, at); err != nil {
		return fmt.Errorf("failed to set payout amount: %w", err)
	}
	return nil
}

func (r *ClaimRepository) conditionalUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	err := utils.ExecGuarded(ctx, r.db, query, args...)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
