package swarm

import (
	"sync"
	"time"
)

// AIMD adapts worker concurrency: additive increase while calls are fast,
// multiplicative decrease when the upstream throttles.
type AIMD struct {
	mu          sync.Mutex
	concurrency int
	minWorkers  int
	maxWorkers  int
	lastChange  time.Time

	// Cooldown is the minimum time between two adjustments.
	Cooldown time.Duration
	// Healthy is the latency under which concurrency grows.
	Healthy time.Duration
	// Increase is the additive step.
	Increase int
}

func NewAIMD(start, min, max int) *AIMD {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if start < min {
		start = min
	}
	if start > max {
		start = max
	}
	return &AIMD{
		concurrency: start,
		minWorkers:  min,
		maxWorkers:  max,
		lastChange:  time.Now(),
		Cooldown:    100 * time.Millisecond,
		Healthy:     500 * time.Millisecond,
		Increase:    1,
	}
}

func (a *AIMD) GetConcurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.concurrency
}

func (a *AIMD) Feedback(lat time.Duration, throttled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	// dampen oscillation
	if now.Sub(a.lastChange) < a.Cooldown {
		return
	}

	if throttled {
		a.concurrency = a.concurrency / 2
		if a.concurrency < a.minWorkers {
			a.concurrency = a.minWorkers
		}
		a.lastChange = now
		return
	}

	if lat < a.Healthy {
		a.concurrency += a.Increase
		if a.concurrency > a.maxWorkers {
			a.concurrency = a.maxWorkers
		}
		a.lastChange = now
	}
}
