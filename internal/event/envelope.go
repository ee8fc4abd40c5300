package event

import (
	"time"

	"claims-service/internal/models"

	"github.com/google/uuid"
)

const DataVersion = "1.0"

// Envelope is the wire form of one domain event.
type Envelope struct {
	EventID     uuid.UUID        `json:"event_id"`
	EventType   models.EventType `json:"event_type"`
	Subject     string           `json:"subject"`
	Data        any              `json:"data"`
	EventTime   time.Time        `json:"event_time"`
	DataVersion string           `json:"data_version"`
}

func NewEnvelope(eventType models.EventType, subject string, data any, at time.Time) *Envelope {
	return &Envelope{
		EventID:     uuid.New(),
		EventType:   eventType,
		Subject:     subject,
		Data:        data,
		EventTime:   at.UTC(),
		DataVersion: DataVersion,
	}
}
