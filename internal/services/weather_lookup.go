package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claims-service/internal/database/redis"
	"claims-service/internal/models"
	"claims-service/internal/repository"
)

type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// cachedWeather also records misses so absent observations are not
// re-queried on every run.
type cachedWeather struct {
	Found       bool                       `json:"found"`
	Observation *models.WeatherObservation `json:"observation,omitempty"`
}

// WeatherLookup fetches the optional weather observation of an outage under a
// timeout. Any failure yields nil: missing weather only costs confidence.
type WeatherLookup struct {
	store   WeatherStore
	cache   JSONCache
	ttl     time.Duration
	timeout time.Duration
}

func NewWeatherLookup(store WeatherStore, cache JSONCache, ttl, timeout time.Duration) *WeatherLookup {
	return &WeatherLookup{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
	}
}

func weatherCacheKey(outageID string) string {
	return "weather:outage:" + outageID
}

func (w *WeatherLookup) ForOutage(ctx context.Context, outageID string) *models.WeatherObservation {
	if w == nil || w.store == nil {
		return nil
	}

	lookupCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if w.cache != nil {
		var cached cachedWeather
		err := w.cache.GetJSON(lookupCtx, weatherCacheKey(outageID), &cached)
		switch {
		case err == nil:
			return cached.Observation
		case !errors.Is(err, redis.ErrCacheMiss):
			slog.Warn("Weather cache read failed", "outage_id", outageID, "error", err)
		}
	}

	obs, err := w.store.GetByOutageID(lookupCtx, outageID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		obs = nil
	case err != nil:
		slog.Warn("Weather lookup failed, continuing without weather data", "outage_id", outageID, "error", err)
		return nil
	}

	if w.cache != nil {
		entry := cachedWeather{Found: obs != nil, Observation: obs}
		if err := w.cache.SetJSON(lookupCtx, weatherCacheKey(outageID), entry, w.ttl); err != nil {
			slog.Warn("Weather cache write failed", "outage_id", outageID, "error", err)
		}
	}
	return obs
}
