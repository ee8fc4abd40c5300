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

const payoutColumns = `
	id, payout_number, claim_id, policy_id, amount, currency, payment_method,
	status, transaction_id, failure_reason, retry_eligible, initiated_at,
	dispatched_at, completed_at, failed_at, created_at, updated_at`

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) BeginTransaction() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// CreateIfAbsent inserts payout unless the claim already has one.
func (r *PayoutRepository) CreateIfAbsent(ctx context.Context, payout *models.Payout) (*models.Payout, bool, error) {
	query := `
		INSERT INTO payouts (
			id, payout_number, claim_id, policy_id, amount, currency, payment_method,
			status, retry_eligible, initiated_at, created_at, updated_at
		) VALUES (
			:id, :payout_number, :claim_id, :policy_id, :amount, :currency, :payment_method,
			:status, :retry_eligible, :initiated_at, :created_at, :updated_at
		)
		ON CONFLICT ON CONSTRAINT uq_payouts_claim DO NOTHING
		RETURNING id`

	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare payout insert: %w", err)
	}
	defer stmt.Close()

	var insertedID uuid.UUID
	err = stmt.GetContext(ctx, &insertedID, payout)
	switch {
	case err == nil:
		return payout, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, getErr := r.GetByClaimID(ctx, payout.ClaimID)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to load existing payout after conflict: %w", getErr)
		}
		return existing, false, nil
	case isUniqueViolation(err):
		return nil, false, fmt.Errorf("payout number %s: %w", payout.PayoutNumber, ErrDuplicate)
	default:
		return nil, false, fmt.Errorf("failed to create payout: %w", err)
	}
}

func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`

	if err := r.db.GetContext(ctx, &payout, query, id); err != nil {
		return nil, wrapGetErr(err, "payout "+id.String())
	}
	return &payout, nil
}

func (r *PayoutRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE claim_id = $1`

	if err := r.db.GetContext(ctx, &payout, query, claimID); err != nil {
		return nil, wrapGetErr(err, "payout for claim "+claimID.String())
	}
	return &payout, nil
}

// MarkDispatched claims the right to send the payout to the payment rail.
// Only the first caller gets true.
func (r *PayoutRepository) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE payouts SET dispatched_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'initiated' AND dispatched_at IS NULL`

	err := utils.ExecGuarded(ctx, r.db, query, id, at)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark payout dispatched: %w", err)
	}
	return true, nil
}

// Complete finalizes an initiated payout and moves its claim to paid in one
// transaction. It reports false when the payout was already terminal.
func (r *PayoutRepository) Complete(ctx context.Context, payout *models.Payout, transactionID string, at time.Time) (bool, error) {
	tx, err := r.BeginTransaction()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	updatePayout := `
		UPDATE payouts SET status = 'completed', transaction_id = $2,
			completed_at = $3, retry_eligible = FALSE, updated_at = $3
		WHERE id = $1 AND status = 'initiated'`

	err = utils.ExecGuarded(ctx, tx, updatePayout, payout.ID, transactionID, at)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to complete payout: %w", err)
	}

	updateClaim := `
		UPDATE claims SET status = 'paid', paid_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'approved'`
	if _, err = tx.ExecContext(ctx, updateClaim, payout.ClaimID, at); err != nil {
		return false, fmt.Errorf("failed to mark claim paid: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payout completion: %w", err)
	}
	return true, nil
}

// Fail finalizes an initiated payout as failed.
func (r *PayoutRepository) Fail(ctx context.Context, id uuid.UUID, reason string, retryEligible bool, at time.Time) (bool, error) {
	query := `
		UPDATE payouts SET status = 'failed', failure_reason = $2,
			retry_eligible = $3, failed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'initiated'`

	err := utils.ExecGuarded(ctx, r.db, query, id, reason, retryEligible, at)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark payout failed: %w", err)
	}
	return true, nil
}
