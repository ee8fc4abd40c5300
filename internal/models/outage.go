package models

import (
	"math"
	"time"
)

// ============================================================================
// OUTAGE EVENT & WEATHER (produced upstream)
// ============================================================================

type OutageEvent struct {
	ID                string       `json:"id" db:"id" validate:"required"`
	UtilityName       string       `json:"utility_name" db:"utility_name"`
	Location          GeoJSONPoint `json:"location" db:"location" validate:"required"`
	PostalCode        string       `json:"postal_code" db:"postal_code"`
	StartTime         time.Time    `json:"start_time" db:"start_time" validate:"required"`
	EndTime           *time.Time   `json:"end_time,omitempty" db:"end_time"`
	DurationMinutes   *int         `json:"duration_minutes,omitempty" db:"duration_minutes" validate:"omitempty,gte=0"`
	AffectedCustomers *int         `json:"affected_customers,omitempty" db:"affected_customers" validate:"omitempty,gte=0"`
	Cause             *string      `json:"cause,omitempty" db:"cause"`
	ReportedCause     *string      `json:"reported_cause,omitempty" db:"reported_cause"`
	Status            OutageStatus `json:"status" db:"status" validate:"required,oneof=active resolved investigating"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// Duration returns the outage length in whole minutes. It is derived from
// end-start when the end is known and falls back to the recorded
// duration_minutes otherwise. ok is false when neither is available.
func (o *OutageEvent) Duration() (minutes int, ok bool) {
	if o.EndTime != nil {
		return int(o.EndTime.Sub(o.StartTime) / time.Minute), true
	}
	if o.DurationMinutes != nil {
		return *o.DurationMinutes, true
	}
	return 0, false
}

// maxSpanMinutes is the longest whole-minute span a time.Duration can hold.
const maxSpanMinutes = math.MaxInt64 / int64(time.Minute)

// Span returns the outage length as a time.Duration. Recorded durations too
// large for a time.Duration saturate instead of wrapping negative.
func (o *OutageEvent) Span() time.Duration {
	minutes, _ := o.Duration()
	if int64(minutes) > maxSpanMinutes {
		return time.Duration(maxSpanMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

// Window returns the outage interval. For an outage with unknown duration
// the end equals the start.
func (o *OutageEvent) Window() (start, end time.Time) {
	return o.StartTime, o.StartTime.Add(o.Span())
}

// IsFinalized reports whether the outage is resolved and its duration fixed.
func (o *OutageEvent) IsFinalized() bool {
	_, ok := o.Duration()
	return o.Status == OutageResolved && ok
}

func (o *OutageEvent) IsPlannedMaintenance() bool {
	return o.ReportedCause != nil && *o.ReportedCause == ReportedCausePlannedMaintenance
}

type WeatherObservation struct {
	ID                  string     `json:"id" db:"id"`
	OutageEventID       string     `json:"outage_event_id" db:"outage_event_id"`
	ObservedAt          time.Time  `json:"observed_at" db:"observed_at"`
	WindSpeedMPH        float64    `json:"wind_speed_mph" db:"wind_speed_mph"`
	WindGustMPH         *float64   `json:"wind_gust_mph,omitempty" db:"wind_gust_mph"`
	PrecipitationInches float64    `json:"precipitation_inches" db:"precipitation_inches"`
	SevereWeatherAlert  bool       `json:"severe_weather_alert" db:"severe_weather_alert"`
	AlertType           *string    `json:"alert_type,omitempty" db:"alert_type"`
	LightningStrikes    *int       `json:"lightning_strikes,omitempty" db:"lightning_strikes"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
