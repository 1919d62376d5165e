package task

import (
	"context"
	"sync"
	"time"
)

// RepeatingTask executes a task in a specific interval asynchronously
type RepeatingTask struct {
	task     func(ctx context.Context)
	interval time.Duration

	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRepeating creates a new repeating asynchronous task.
// The context passed to the task is cancelled once the task is stopped.
func NewRepeating(task func(ctx context.Context), interval time.Duration) *RepeatingTask {
	return &RepeatingTask{
		task:     task,
		interval: interval,
	}
}

// Start starts the repeating task.
// If the task is already running, this is a no-op.
func (task *RepeatingTask) Start() {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	if task.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	task.cancel = cancel
	task.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(task.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				task.task(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Running reports whether the task is currently running
func (task *RepeatingTask) Running() bool {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	return task.cancel != nil
}

// Stop stops the repeating task and waits for a currently executing run to finish.
// If the task is not running, this is a no-op.
// forceExec defines whether to execute the task one last time just before the task shuts down.
func (task *RepeatingTask) Stop(forceExec bool) {
	task.mtx.Lock()
	cancel, done := task.cancel, task.done
	task.cancel, task.done = nil, nil
	task.mtx.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	if forceExec {
		task.task(context.Background())
	}
}
