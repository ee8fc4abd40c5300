package services

import (
	"context"
	"testing"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinker struct {
	exists bool
}

func (l fakeLinker) FileExists(context.Context, string, string) (bool, error) {
	return l.exists, nil
}

func (l fakeLinker) GetPresignedURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	return "https://storage.local/" + bucket + "/" + object + "?sig=abc", nil
}

func TestClaimService_GetClaimDetail(t *testing.T) {
	p := newPipeline(t, nil)
	p.store.AddPolicy(newPolicy("BI-001", 120, 500, 10000))
	p.store.AddOutage(newOutage("OUT-A", 187))
	_, err := p.orchestrator.ProcessOutage(context.Background(), "OUT-A")
	require.NoError(t, err)

	claim := p.store.Claims()[0]
	svc := NewClaimService(p.store.ClaimStore(), p.store.PayoutStore(), p.store.AuditStore(), fakeLinker{exists: true}, "claim-evidence")

	detail, err := svc.GetClaimDetail(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.ID, detail.ID)
	require.NotNil(t, detail.Payout)
	assert.Equal(t, 558.33, detail.Payout.Amount)
	assert.Contains(t, detail.EvidenceURL, EvidenceObjectName(claim.ID))

	_, err = svc.GetClaimDetail(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClaimService_EvidenceURLOmittedWithoutArchive(t *testing.T) {
	p := newPipeline(t, nil)
	p.store.AddPolicy(newPolicy("BI-001", 120, 500, 10000))
	p.store.AddOutage(newOutage("OUT-A", 187))
	_, err := p.orchestrator.ProcessOutage(context.Background(), "OUT-A")
	require.NoError(t, err)

	svc := NewClaimService(p.store.ClaimStore(), p.store.PayoutStore(), p.store.AuditStore(), nil, "")
	detail, err := svc.GetClaimDetail(context.Background(), p.store.Claims()[0].ID)
	require.NoError(t, err)
	assert.Empty(t, detail.EvidenceURL)
}

func TestClaimService_ListsAndAuditPaging(t *testing.T) {
	p := newPipeline(t, nil)
	p.store.AddPolicy(newPolicy("BI-001", 120, 500, 10000))
	p.store.AddPolicy(newPolicy("BI-002", 300, 500, 10000))
	p.store.AddOutage(newOutage("OUT-A", 187))
	_, err := p.orchestrator.ProcessOutage(context.Background(), "OUT-A")
	require.NoError(t, err)

	svc := NewClaimService(p.store.ClaimStore(), p.store.PayoutStore(), p.store.AuditStore(), nil, "")
	ctx := context.Background()

	claims, err := svc.ListClaims(ctx, models.ClaimFilter{Status: models.ClaimPaid})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "BI-001", claims[0].PolicyID)

	payout, err := svc.GetPayoutByClaim(ctx, claims[0].ID)
	require.NoError(t, err)
	byID, err := svc.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, payout.ID, byID.ID)

	_, err = svc.GetPayout(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	page, err := svc.ListAuditLog(ctx, models.AuditLogQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := svc.ListAuditLog(ctx, models.AuditLogQuery{After: page[1].Sequence})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, models.EventPayoutProcessed, rest[0].EventType)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, defaultListLimit, clampLimit(-3))
	assert.Equal(t, 25, clampLimit(25))
	assert.Equal(t, maxListLimit, clampLimit(50_000))
}
