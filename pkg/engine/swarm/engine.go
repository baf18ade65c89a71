// Package swarm runs batches of independent tasks on an AIMD-governed
// worker pool.
package swarm

import (
	"context"
	"sync"
	"time"
)

// Task represents a unit of work for the swarm.
type Task func(ctx context.Context) error

// Engine manages the worker pool and concurrency.
type Engine struct {
	// IsThrottled classifies task errors that should halve concurrency.
	IsThrottled func(error) bool

	aimd   *AIMD
	mu     sync.Mutex
	cond   *sync.Cond
	active int
	stats  Stats
}

// Stats holds runtime statistics for the engine.
type Stats struct {
	ActiveWorkers  int
	Concurrency    int
	TasksCompleted int64
	TasksFailed    int64
	Throttled      int64
}

// NewEngine creates an engine allowing up to maxWorkers concurrent tasks.
// It starts at half capacity.
func NewEngine(maxWorkers int) *Engine {
	e := &Engine{aimd: NewAIMD((maxWorkers+1)/2, 1, maxWorkers)}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// AIMD exposes the concurrency controller for tuning.
func (e *Engine) AIMD() *AIMD { return e.aimd }

// Run executes tasks and blocks until every started task returns. The
// returned slice holds each task's error at the task's index. Tasks not
// started because ctx ended get ctx.Err().
func (e *Engine) Run(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	e.mu.Lock()
	for i, task := range tasks {
		for e.active >= e.aimd.GetConcurrency() {
			e.cond.Wait()
		}
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}

		e.active++
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()

			start := time.Now()
			err := task(ctx)
			throttled := err != nil && e.IsThrottled != nil && e.IsThrottled(err)
			e.aimd.Feedback(time.Since(start), throttled)
			errs[i] = err

			e.mu.Lock()
			e.active--
			e.stats.TasksCompleted++
			if err != nil {
				e.stats.TasksFailed++
			}
			if throttled {
				e.stats.Throttled++
			}
			e.cond.Broadcast()
			e.mu.Unlock()
		}(i, task)
	}
	e.mu.Unlock()

	wg.Wait()
	return errs
}

// GetStats returns current engine stats.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.ActiveWorkers = e.active
	s.Concurrency = e.aimd.GetConcurrency()
	return s
}
