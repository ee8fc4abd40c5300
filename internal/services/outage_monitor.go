package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/worker"

	"github.com/robfig/cron/v3"
)

const monitorScanLimit = 500

type OutageProcessor interface {
	ProcessOutageEvent(ctx context.Context, outage *models.OutageEvent) (*models.OutageReport, error)
}

// OutageMonitor periodically picks up recently updated outages and queues one
// pipeline run per outage on the working pool.
type OutageMonitor struct {
	outages   OutageStore
	processor OutageProcessor
	pool      worker.Pool
	lookback  time.Duration
	inFlight  sync.Map
	cron      *cron.Cron
	now       func() time.Time
}

func NewOutageMonitor(outages OutageStore, processor OutageProcessor, pool worker.Pool, lookback time.Duration) *OutageMonitor {
	return &OutageMonitor{
		outages:   outages,
		processor: processor,
		pool:      pool,
		lookback:  lookback,
		now:       time.Now,
	}
}

// Start schedules Scan on the cron spec. The pool must be started separately.
func (m *OutageMonitor) Start(ctx context.Context, schedule string) error {
	m.cron = cron.New()
	_, err := m.cron.AddFunc(schedule, func() {
		if _, err := m.Scan(ctx); err != nil {
			slog.Error("Outage scan failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", schedule, err)
	}
	m.cron.Start()
	slog.Info("Outage monitor started", "schedule", schedule, "lookback", m.lookback.String(), "pool", m.pool.GetName())
	return nil
}

func (m *OutageMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	slog.Info("Outage monitor stopped")
}

// Scan queues every outage updated within the lookback window that is not
// already queued. It returns the number of outages submitted.
func (m *OutageMonitor) Scan(ctx context.Context) (int, error) {
	since := m.now().UTC().Add(-m.lookback)
	outages, err := m.outages.ListUpdatedSince(ctx, since, monitorScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list outages updated since %s: %w", since.Format(time.RFC3339), err)
	}

	submitted := 0
	for i := range outages {
		outage := outages[i]
		if _, busy := m.inFlight.LoadOrStore(outage.ID, struct{}{}); busy {
			continue
		}

		task := worker.Task{
			ID: "outage-" + outage.ID,
			Run: func(ctx context.Context) error {
				defer m.inFlight.Delete(outage.ID)
				_, err := m.processor.ProcessOutageEvent(ctx, &outage)
				return err
			},
		}
		if !m.pool.TrySubmit(task) {
			m.inFlight.Delete(outage.ID)
			slog.Warn("Working pool full, outage deferred to next scan", "outage_id", outage.ID, "pool", m.pool.GetName())
			continue
		}
		submitted++
	}

	slog.Info("Outage scan complete", "found", len(outages), "submitted", submitted, "since", since)
	return submitted, nil
}
