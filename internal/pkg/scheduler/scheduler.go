// Package scheduler runs a job on a fixed interval in the background.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler invokes a job on every tick. A tick that arrives while the
// previous run is still busy is skipped.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job

	ticker   *time.Ticker
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	inFlight atomic.Bool
	skipped  atomic.Int64
}

// New creates a stopped scheduler.
func New(name string, interval time.Duration, job Job) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{name: name, interval: interval, job: job}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx, s.ticker, s.stopCh)

	log.Infof("[Scheduler] %s started (interval: %s)", s.name, s.interval)
}

// Stop halts ticking and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Infof("[Scheduler] %s stopping...", s.name)
	s.ticker.Stop()
	close(s.stopCh)
	s.cancel()
	s.running = false

	s.wg.Wait()
	log.Infof("[Scheduler] %s stopped", s.name)
}

// IsRunning reports whether the scheduler is ticking.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Skipped returns how many ticks were dropped because a run was in flight.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) loop(ctx context.Context, ticker *time.Ticker, stopCh <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		log.Warnf("[Scheduler] %s tick skipped, previous run still in progress", s.name)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		if err := s.RunOnce(ctx); err != nil {
			log.Errorf("[Scheduler] %s run failed: %v", s.name, err)
		}
	}()
}

// RunOnce invokes the job synchronously, converting a panic into an error.
func (s *Scheduler) RunOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.job(ctx)
}
