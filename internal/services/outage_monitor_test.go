package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/testutil"
	"claims-service/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queuedPool struct {
	mu    sync.Mutex
	tasks []worker.Task
	full  bool
}

func (p *queuedPool) Start(_ context.Context, wg *sync.WaitGroup) { wg.Done() }
func (p *queuedPool) GetName() string                             { return "test-pool" }

func (p *queuedPool) TrySubmit(task worker.Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full {
		return false
	}
	p.tasks = append(p.tasks, task)
	return true
}

// drain runs every queued task and returns their IDs.
func (p *queuedPool) drain(ctx context.Context) []string {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		_ = task.Run(ctx)
		ids = append(ids, task.ID)
	}
	return ids
}

type recordingProcessor struct {
	mu      sync.Mutex
	outages []string
}

func (r *recordingProcessor) ProcessOutageEvent(_ context.Context, outage *models.OutageEvent) (*models.OutageReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outages = append(r.outages, outage.ID)
	return &models.OutageReport{OutageID: outage.ID}, nil
}

func newMonitorFixture(t *testing.T) (*OutageMonitor, *queuedPool, *recordingProcessor) {
	t.Helper()
	now := outageStart.Add(24 * time.Hour)

	store := testutil.NewStore()
	recent := newOutage("OUT-RECENT", 187)
	recent.UpdatedAt = now.Add(-time.Hour)
	store.AddOutage(recent)

	live := newOutage("OUT-LIVE", 0)
	live.EndTime = nil
	live.Status = models.OutageActive
	live.UpdatedAt = now.Add(-10 * time.Minute)
	store.AddOutage(live)

	stale := newOutage("OUT-STALE", 187)
	stale.UpdatedAt = now.Add(-96 * time.Hour)
	store.AddOutage(stale)

	pool := &queuedPool{}
	processor := &recordingProcessor{}
	monitor := NewOutageMonitor(store.OutageStore(), processor, pool, 72*time.Hour)
	monitor.now = func() time.Time { return now }
	return monitor, pool, processor
}

func TestOutageMonitor_ScanQueuesRecentOutagesOnce(t *testing.T) {
	monitor, pool, processor := newMonitorFixture(t)
	ctx := context.Background()

	submitted, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)

	// still queued: not submitted again
	submitted, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, submitted)

	assert.Equal(t, []string{"outage-OUT-RECENT", "outage-OUT-LIVE"}, pool.drain(ctx))
	assert.Equal(t, []string{"OUT-RECENT", "OUT-LIVE"}, processor.outages)

	submitted, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, submitted, "finished outages are picked up by the next scan")
}

func TestOutageMonitor_FullPoolDefersToNextScan(t *testing.T) {
	monitor, pool, _ := newMonitorFixture(t)
	ctx := context.Background()

	pool.full = true
	submitted, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, submitted)

	pool.full = false
	submitted, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)
}

func TestOutageMonitor_RejectsBadSchedule(t *testing.T) {
	monitor, _, _ := newMonitorFixture(t)
	err := monitor.Start(context.Background(), "every now and then")
	assert.Error(t, err)
}
