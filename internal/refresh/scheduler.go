// Package refresh re-aggregates calendar sources on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calview/internal/log"
)

// Refresher is the piece of work run on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Scheduler runs a Refresher on a standard five-field cron spec. Ticks that
// arrive while a refresh is still running are skipped.
type Scheduler struct {
	cron    *cron.Cron
	target  Refresher
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates spec and prepares a stopped scheduler. timeout
// bounds each run; zero means one minute.
func NewScheduler(spec string, loc *time.Location, timeout time.Duration, target Refresher) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{cron: c, target: target, timeout: timeout}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking. Runs are cancelled when ctx is.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	appLog.Info("refresh scheduler started", "next", s.Next())
}

// Stop halts the schedule and waits for a running refresh to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	appLog.Info("refresh scheduler stopped")
}

// Next reports the next scheduled run, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.target.Refresh(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err, "elapsed", time.Since(start).String())
		return
	}
	appLog.Debug("scheduled refresh done", "elapsed", time.Since(start).String())
}
