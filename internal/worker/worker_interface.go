package worker

import (
	"context"
	"sync"
)

type (
	Job func(ctx context.Context) error

	// Task is a Job with an identifier used in logs.
	Task struct {
		ID  string
		Run Job
	}

	Pool interface {
		Start(ctx context.Context, managerWg *sync.WaitGroup)
		TrySubmit(task Task) bool
		GetName() string
	}
)
