package poll

import (
	"context"
	"sync"
	"time"
)

// Scheduler drives an adapter's periodic poll. Besides the regular interval
// it accepts one-shot kicks, used by the command layer to confirm a write
// shortly after it completes instead of trusting an optimistic local update.
type Scheduler struct {
	interval time.Duration
	fn       func(ctx context.Context)
	kick     chan struct{}

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler invoking fn every interval.
func NewScheduler(interval time.Duration, fn func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		interval: interval,
		fn:       fn,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. The first poll fires immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// KickAfter schedules one extra poll d from now, coalescing with any kick
// already pending.
func (s *Scheduler) KickAfter(d time.Duration) {
	time.AfterFunc(d, func() {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	})
}

// Stop terminates the poll loop and waits for an in-progress poll to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.fn(ctx)
		case <-s.kick:
			s.fn(ctx)
		}
	}
}
