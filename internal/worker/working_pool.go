package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type WorkingPool struct {
	Name       string
	NumWorkers int
	jobChan    chan Task
	closed     atomic.Bool
	mu         sync.RWMutex

	succeeded atomic.Int64
	failed    atomic.Int64
}

type PoolStats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
}

func NewWorkingPool(name string, numWorkers int, queueSize int) *WorkingPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &WorkingPool{
		Name:       name,
		NumWorkers: numWorkers,
		jobChan:    make(chan Task, queueSize),
	}
}

func (p *WorkingPool) GetName() string {
	return p.Name
}

// TrySubmit queues task without blocking. It returns false when the queue is
// full or the pool has shut down.
func (p *WorkingPool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return false
	}
	select {
	case p.jobChan <- task:
		return true
	default:
		return false
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done() // Tell manager we are done

	var workerWg sync.WaitGroup

	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	// Wait for the manager to signal shutdown
	<-ctx.Done()

	slog.Info("Working pool shutdown signaled, closing job channel", "pool", p.Name)
	p.mu.Lock()
	p.closed.Store(true)
	close(p.jobChan) // no more jobs are coming
	p.mu.Unlock()

	workerWg.Wait()
	slog.Info("Working pool stopped", "pool", p.Name)
}

// worker is the internal goroutine for a single worker
func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	for {
		select {
		case task, ok := <-p.jobChan:
			if !ok {
				return
			}
			p.safeExecution(ctx, task, id)

		case <-ctx.Done():
			// Exit immediately, even if the job channel is not drained.
			return
		}
	}
}

func (p *WorkingPool) Stats() PoolStats {
	return PoolStats{
		Name:      p.Name,
		Workers:   p.NumWorkers,
		Queued:    len(p.jobChan),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, task Task, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", task.ID, r)
			slog.Error("Panic recovered in pool task", "pool", p.Name, "worker", workerID, "task_id", task.ID, "panic", r)
		}
		if err != nil {
			p.failed.Add(1)
		} else {
			p.succeeded.Add(1)
		}
	}()

	if err = task.Run(ctx); err != nil {
		slog.Error("Pool task failed", "pool", p.Name, "worker", workerID, "task_id", task.ID, "error", err)
	}
	return err
}
