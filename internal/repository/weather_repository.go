package repository

import (
	"context"

	"claims-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type WeatherRepository struct {
	db *sqlx.DB
}

func NewWeatherRepository(db *sqlx.DB) *WeatherRepository {
	return &WeatherRepository{db: db}
}

// GetByOutageID returns ErrNotFound when the outage has no observation.
func (r *WeatherRepository) GetByOutageID(ctx context.Context, outageID string) (*models.WeatherObservation, error) {
	var obs models.WeatherObservation
	query := `
		SELECT id, outage_event_id, observed_at, wind_speed_mph, wind_gust_mph,
		       precipitation_inches, severe_weather_alert, alert_type,
		       lightning_strikes, created_at, updated_at
		FROM weather_observations
		WHERE outage_event_id = $1`

	if err := r.db.GetContext(ctx, &obs, query, outageID); err != nil {
		return nil, wrapGetErr(err, "weather for outage "+outageID)
	}
	return &obs, nil
}
