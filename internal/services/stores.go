package services

import (
	"context"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Record store contracts. The sqlx repositories implement them against
// Postgres; uniqueness of (policy_id, outage_event_id) and claim_id is
// enforced by the store, not by callers.

type PolicyStore interface {
	GetByID(ctx context.Context, id string) (*models.Policy, error)
	ListActiveByPostalCode(ctx context.Context, postalCode string) ([]models.Policy, error)
	ListActiveWithinBound(ctx context.Context, bound orb.Bound) ([]models.Policy, error)
}

type OutageStore interface {
	GetByID(ctx context.Context, id string) (*models.OutageEvent, error)
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]models.OutageEvent, error)
}

type WeatherStore interface {
	GetByOutageID(ctx context.Context, outageID string) (*models.WeatherObservation, error)
}

type ClaimStore interface {
	CreateIfAbsent(ctx context.Context, claim *models.Claim) (*models.Claim, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	GetByPolicyAndOutage(ctx context.Context, policyID, outageID string) (*models.Claim, error)
	List(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error)
	ListOverlappingApproved(ctx context.Context, policyID string, excludeID uuid.UUID, start, end time.Time) ([]models.Claim, error)
	MarkValidating(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	RecordDecision(ctx context.Context, claim *models.Claim) (bool, error)
	SetPayoutAmount(ctx context.Context, id uuid.UUID, amount float64, at time.Time) error
}

type PayoutStore interface {
	CreateIfAbsent(ctx context.Context, payout *models.Payout) (*models.Payout, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Complete(ctx context.Context, payout *models.Payout, transactionID string, at time.Time) (bool, error)
	Fail(ctx context.Context, id uuid.UUID, reason string, retryEligible bool, at time.Time) (bool, error)
}

type AuditLogStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	HasDelivered(ctx context.Context, eventType models.EventType, subject string) (bool, error)
	List(ctx context.Context, after int64, limit int) ([]models.AuditLogEntry, error)
}
