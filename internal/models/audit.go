package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is one publish attempt. Rows are append-only.
type AuditLogEntry struct {
	Sequence    int64         `json:"sequence" db:"sequence"`
	EventID     uuid.UUID     `json:"event_id" db:"event_id"`
	EventType   EventType     `json:"event_type" db:"event_type"`
	Subject     string        `json:"subject" db:"subject"`
	EventTime   time.Time     `json:"event_time" db:"event_time"`
	DataSummary string        `json:"data_summary" db:"data_summary"`
	Status      PublishStatus `json:"status" db:"status"`
	Sink        string        `json:"sink" db:"sink"`
	Error       *string       `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
