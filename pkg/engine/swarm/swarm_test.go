package swarm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIMD_Feedback(t *testing.T) {
	aimd := NewAIMD(10, 5, 20)
	aimd.Increase = 5
	aimd.Healthy = 100 * time.Millisecond

	assert.Equal(t, 10, aimd.GetConcurrency())

	// Feedback is damped for 100ms after the last change.
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(50*time.Millisecond, false)
	assert.Equal(t, 15, aimd.GetConcurrency())

	aimd.Feedback(50*time.Millisecond, false)
	assert.Equal(t, 15, aimd.GetConcurrency(), "change inside cooldown must be ignored")

	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	assert.Equal(t, 7, aimd.GetConcurrency())

	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	time.Sleep(110 * time.Millisecond)
	aimd.Feedback(500*time.Millisecond, true)
	assert.Equal(t, 5, aimd.GetConcurrency())

	aimd.Cooldown = 0
	for i := 0; i < 10; i++ {
		aimd.Feedback(time.Millisecond, false)
	}
	assert.Equal(t, 20, aimd.GetConcurrency())
}

func TestNewAIMDClamps(t *testing.T) {
	a := NewAIMD(0, 0, 0)
	assert.Equal(t, 1, a.GetConcurrency())
	assert.Equal(t, 3, NewAIMD(9, 1, 3).GetConcurrency())
}

func TestRunKeepsErrorsByIndex(t *testing.T) {
	e := NewEngine(4)
	boom := errors.New("boom")

	var tasks []Task
	for i := 0; i < 20; i++ {
		i := i
		tasks = append(tasks, func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			if i%5 == 0 {
				return boom
			}
			return nil
		})
	}

	errs := e.Run(context.Background(), tasks)
	require.Len(t, errs, 20)
	for i, err := range errs {
		if i%5 == 0 {
			assert.ErrorIs(t, err, boom)
		} else {
			assert.NoError(t, err)
		}
	}

	s := e.GetStats()
	assert.Equal(t, int64(20), s.TasksCompleted)
	assert.Equal(t, int64(4), s.TasksFailed)
	assert.Equal(t, 0, s.ActiveWorkers)
}

func TestRunRespectsConcurrency(t *testing.T) {
	e := NewEngine(3)
	e.AIMD().Cooldown = 0

	var running, peak int32
	var tasks []Task
	for i := 0; i < 30; i++ {
		tasks = append(tasks, func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}

	e.Run(context.Background(), tasks)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&peak)), 3)
}

func TestRunThrottleHalvesConcurrency(t *testing.T) {
	throttle := errors.New("slow down")
	e := NewEngine(8)
	e.AIMD().Cooldown = 0
	e.IsThrottled = func(err error) bool { return errors.Is(err, throttle) }

	before := e.GetStats().Concurrency
	e.Run(context.Background(), []Task{func(ctx context.Context) error { return throttle }})

	s := e.GetStats()
	assert.Equal(t, before/2, s.Concurrency)
	assert.Equal(t, int64(1), s.Throttled)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	errs := NewEngine(2).Run(ctx, []Task{func(ctx context.Context) error { called = true; return nil }})
	assert.False(t, called)
	assert.ErrorIs(t, errs[0], context.Canceled)
}
