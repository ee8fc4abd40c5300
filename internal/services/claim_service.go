package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	evidenceURLTTL   = 15 * time.Minute
)

type EvidenceLinker interface {
	FileExists(ctx context.Context, bucketName, objectName string) (bool, error)
	GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error)
}

// ClaimDetail is a claim with its payout and a link to the archived decision.
type ClaimDetail struct {
	models.Claim
	Payout      *models.Payout `json:"payout,omitempty"`
	EvidenceURL string         `json:"evidence_url,omitempty"`
}

// ClaimService serves read access to claims, payouts and the audit log.
type ClaimService struct {
	claims   ClaimStore
	payouts  PayoutStore
	audit    AuditLogStore
	evidence EvidenceLinker
	bucket   string
}

func NewClaimService(claims ClaimStore, payouts PayoutStore, audit AuditLogStore, evidence EvidenceLinker, bucket string) *ClaimService {
	return &ClaimService{
		claims:   claims,
		payouts:  payouts,
		audit:    audit,
		evidence: evidence,
		bucket:   bucket,
	}
}

func (s *ClaimService) GetClaimDetail(ctx context.Context, claimID uuid.UUID) (*ClaimDetail, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}

	detail := &ClaimDetail{Claim: *claim}
	if claim.Status == models.ClaimApproved || claim.Status == models.ClaimPaid {
		if payout, err := s.payouts.GetByClaimID(ctx, claim.ID); err == nil {
			detail.Payout = payout
		}
	}
	if claim.Status.IsDecided() {
		detail.EvidenceURL = s.evidenceURL(ctx, claim.ID)
	}
	return detail, nil
}

func (s *ClaimService) evidenceURL(ctx context.Context, claimID uuid.UUID) string {
	if s.evidence == nil || s.bucket == "" {
		return ""
	}
	object := EvidenceObjectName(claimID)
	exists, err := s.evidence.FileExists(ctx, s.bucket, object)
	if err != nil || !exists {
		return ""
	}
	url, err := s.evidence.GetPresignedURL(ctx, s.bucket, object, evidenceURLTTL)
	if err != nil {
		slog.Warn("Failed to presign evidence URL", "claim_id", claimID, "error", err)
		return ""
	}
	return url
}

func (s *ClaimService) ListClaims(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	filter.Limit = clampLimit(filter.Limit)
	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

func (s *ClaimService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, fmt.Errorf("payout not found: %w", err)
	}
	return payout, nil
}

func (s *ClaimService) GetPayoutByClaim(ctx context.Context, claimID uuid.UUID) (*models.Payout, error) {
	payout, err := s.payouts.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("payout not found for claim %s: %w", claimID, err)
	}
	return payout, nil
}

// ListAuditLog pages the audit log by sequence.
func (s *ClaimService) ListAuditLog(ctx context.Context, query models.AuditLogQuery) ([]models.AuditLogEntry, error) {
	entries, err := s.audit.List(ctx, max(query.After, 0), clampLimit(query.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
