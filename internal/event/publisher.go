package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/utils"
)

const (
	dataSummaryLimit = 500
	localSinkName    = "local"
)

// Sink delivers an envelope to an external consumer.
type Sink interface {
	Name() string
	Send(ctx context.Context, envelope *Envelope) error
}

type AuditLog interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	HasDelivered(ctx context.Context, eventType models.EventType, subject string) (bool, error)
}

// Publisher sends domain events to the configured sink and records every
// attempt in the audit log. A nil sink records events as local_only.
type Publisher struct {
	sink  Sink
	audit AuditLog
	now   func() time.Time
}

func NewPublisher(sink Sink, audit AuditLog) *Publisher {
	return &Publisher{
		sink:  sink,
		audit: audit,
		now:   time.Now,
	}
}

// Publish makes one delivery attempt and appends exactly one audit row for
// it. It never returns an error: sink failures end up as status failed.
func (p *Publisher) Publish(ctx context.Context, eventType models.EventType, subject string, data any) *models.AuditLogEntry {
	envelope := NewEnvelope(eventType, subject, data, p.now())

	entry := &models.AuditLogEntry{
		EventID:     envelope.EventID,
		EventType:   eventType,
		Subject:     subject,
		EventTime:   envelope.EventTime,
		DataSummary: summarize(data),
	}

	if p.sink == nil {
		entry.Status = models.PublishLocalOnly
		entry.Sink = localSinkName
		slog.Info("Event recorded locally",
			"event_id", envelope.EventID,
			"event_type", eventType,
			"subject", subject,
			"data", entry.DataSummary)
	} else {
		entry.Sink = p.sink.Name()
		if err := p.sink.Send(ctx, envelope); err != nil {
			msg := err.Error()
			entry.Status = models.PublishFailed
			entry.Error = &msg
			slog.Warn("Event delivery failed, recorded in audit log",
				"event_id", envelope.EventID,
				"event_type", eventType,
				"subject", subject,
				"sink", entry.Sink,
				"error", err)
		} else {
			entry.Status = models.PublishPublished
			slog.Info("Event published",
				"event_id", envelope.EventID,
				"event_type", eventType,
				"subject", subject,
				"sink", entry.Sink)
		}
	}

	// the audit row must be written even when the caller is cancelled
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.audit.Append(auditCtx, entry); err != nil {
		slog.Error("Failed to append audit log entry",
			"event_id", envelope.EventID,
			"event_type", eventType,
			"subject", subject,
			"status", entry.Status,
			"error", err)
	}
	return entry
}

// PublishOnce publishes unless the audit log already holds a published or
// local_only row for (eventType, subject). It returns nil when skipped.
func (p *Publisher) PublishOnce(ctx context.Context, eventType models.EventType, subject string, data any) *models.AuditLogEntry {
	delivered, err := p.audit.HasDelivered(ctx, eventType, subject)
	if err != nil {
		slog.Warn("Audit log check failed, publishing anyway", "event_type", eventType, "subject", subject, "error", err)
	}
	if delivered {
		slog.Debug("Event already delivered, skipping", "event_type", eventType, "subject", subject)
		return nil
	}
	return p.Publish(ctx, eventType, subject, data)
}

func summarize(data any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return utils.Truncate(fmt.Sprintf("%v", data), dataSummaryLimit)
	}
	return utils.Truncate(string(raw), dataSummaryLimit)
}
