package repository

import (
	"context"
	"fmt"
	"time"

	"claims-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const outageColumns = `
	id, utility_name, ST_AsEWKB(location::geometry) AS location, postal_code,
	start_time, end_time, duration_minutes, affected_customers,
	cause, reported_cause, status, created_at, updated_at`

type OutageRepository struct {
	db *sqlx.DB
}

func NewOutageRepository(db *sqlx.DB) *OutageRepository {
	return &OutageRepository{db: db}
}

func (r *OutageRepository) GetByID(ctx context.Context, id string) (*models.OutageEvent, error) {
	var outage models.OutageEvent
	query := `SELECT ` + outageColumns + ` FROM outage_events WHERE id = $1`

	if err := r.db.GetContext(ctx, &outage, query, id); err != nil {
		return nil, wrapGetErr(err, "outage "+id)
	}
	return &outage, nil
}

// ListUpdatedSince returns outages touched at or after since, oldest first.
func (r *OutageRepository) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]models.OutageEvent, error) {
	var outages []models.OutageEvent
	query := `SELECT ` + outageColumns + `
		FROM outage_events
		WHERE updated_at >= $1
		ORDER BY updated_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &outages, query, since, limit); err != nil {
		return nil, fmt.Errorf("failed to list outages updated since %s: %w", since.Format(time.RFC3339), err)
	}
	return outages, nil
}
