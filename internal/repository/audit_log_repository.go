package repository

import (
	"context"
	"fmt"

	"claims-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// AuditLogRepository only ever inserts; the table rejects updates and deletes.
type AuditLogRepository struct {
	db *sqlx.DB
}

func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append inserts entry and fills in its sequence and created_at.
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (
			event_id, event_type, subject, event_time, data_summary, status, sink, error
		) VALUES (
			:event_id, :event_type, :subject, :event_time, :data_summary, :status, :sink, :error
		)
		RETURNING sequence, created_at`

	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer stmt.Close()

	if err := stmt.QueryRowxContext(ctx, entry).Scan(&entry.Sequence, &entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}
	return nil
}

// HasDelivered reports whether an attempt for (eventType, subject) was
// recorded as published or local_only.
func (r *AuditLogRepository) HasDelivered(ctx context.Context, eventType models.EventType, subject string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM audit_log
			WHERE event_type = $1 AND subject = $2 AND status IN ('published', 'local_only')
		)`

	if err := r.db.GetContext(ctx, &exists, query, eventType, subject); err != nil {
		return false, fmt.Errorf("failed to check audit log: %w", err)
	}
	return exists, nil
}

// List returns entries with sequence greater than after, in sequence order.
func (r *AuditLogRepository) List(ctx context.Context, after int64, limit int) ([]models.AuditLogEntry, error) {
	entries := []models.AuditLogEntry{}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
		SELECT sequence, event_id, event_type, subject, event_time, data_summary,
		       status, sink, error, created_at
		FROM audit_log
		WHERE sequence > $1
		ORDER BY sequence ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &entries, query, after, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
