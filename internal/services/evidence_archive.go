package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
)

type ObjectUploader interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}

// EvidenceArchive stores the inputs and outcome of each claim decision in
// object storage. Failures are logged and never block the pipeline.
type EvidenceArchive struct {
	uploader ObjectUploader
	bucket   string
	timeout  time.Duration
}

type decisionEvidence struct {
	ClaimID     uuid.UUID                  `json:"claim_id"`
	ClaimNumber string                     `json:"claim_number"`
	Policy      *models.Policy             `json:"policy"`
	Outage      *models.OutageEvent        `json:"outage"`
	Weather     *models.WeatherObservation `json:"weather,omitempty"`
	Overlapping []string                   `json:"overlapping_claims,omitempty"`
	Result      *models.ScoreResult        `json:"result"`
	ArchivedAt  time.Time                  `json:"archived_at"`
}

func NewEvidenceArchive(uploader ObjectUploader, bucket string) *EvidenceArchive {
	return &EvidenceArchive{
		uploader: uploader,
		bucket:   bucket,
		timeout:  10 * time.Second,
	}
}

func EvidenceObjectName(claimID uuid.UUID) string {
	return fmt.Sprintf("claims/%s/decision.json", claimID)
}

func (a *EvidenceArchive) Bucket() string {
	if a == nil {
		return ""
	}
	return a.bucket
}

// StoreDecision archives one decision. A nil archive does nothing.
func (a *EvidenceArchive) StoreDecision(ctx context.Context, input *models.ScoreInput, result *models.ScoreResult) {
	if a == nil || a.uploader == nil {
		return
	}

	evidence := decisionEvidence{
		ClaimID:     input.Claim.ID,
		ClaimNumber: input.Claim.ClaimNumber,
		Policy:      input.Policy,
		Outage:      input.Outage,
		Weather:     input.Weather,
		Result:      result,
		ArchivedAt:  time.Now().UTC(),
	}
	for _, c := range input.OverlappingApproved {
		evidence.Overlapping = append(evidence.Overlapping, c.ClaimNumber)
	}

	body, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		slog.Warn("Failed to encode decision evidence", "claim_id", input.Claim.ID, "error", err)
		return
	}

	uploadCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	object := EvidenceObjectName(input.Claim.ID)
	if err := a.uploader.UploadBytes(uploadCtx, a.bucket, object, body, "application/json"); err != nil {
		slog.Warn("Failed to archive decision evidence", "claim_id", input.Claim.ID, "object", object, "error", err)
		return
	}
	slog.Info("Decision evidence archived", "claim_id", input.Claim.ID, "bucket", a.bucket, "object", object)
}
