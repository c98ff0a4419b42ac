package syncsched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

var ErrAlreadyRunning = errors.New("syncsched: run already in progress")

// Job is one background-sync run.
type Job func(ctx context.Context) error

// Locker guards a run across processes sharing a state dir.
type Locker interface {
	Acquire(owner string, ttl time.Duration) (bool, error)
	Release(owner string) error
}

// Scheduler fires Job on a cron schedule.
type Scheduler struct {
	cron  string
	job   Job
	lock  Locker
	owner string
	ttl   time.Duration

	// after is swapped in tests.
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cron string, job Job, lock Locker) (*Scheduler, error) {
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("syncsched: invalid cron %q", cron)
	}
	return &Scheduler{
		cron:  cron,
		job:   job,
		lock:  lock,
		owner: fmt.Sprintf("edge-%d", timeutil.Now().UnixNano()),
		ttl:   5 * time.Minute,
		after: time.After,
	}, nil
}

// Start launches the schedule loop. Stop ends it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	logger.Info("sync_schedule_enabled", "cron", s.cron)
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		next, err := gronx.NextTickAfter(s.cron, timeutil.Now(), false)
		if err != nil {
			logger.Error("sync_nexttick_failed", "cron", s.cron, "error", err)
			select {
			case <-s.after(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-s.after(time.Until(next)):
			if err := s.RunImmediate(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				logger.Error("sync_run_error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunImmediate runs the job now unless a run is already active here or,
// through the lock, in another process.
func (s *Scheduler) RunImmediate(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.lock != nil {
		ok, err := s.lock.Acquire(s.owner, s.ttl)
		if err != nil {
			return fmt.Errorf("acquire sync lease: %w", err)
		}
		if !ok {
			logger.Info("sync_skipped_lease_held")
			return nil
		}
		defer func() {
			if err := s.lock.Release(s.owner); err != nil {
				logger.Warn("sync_lease_release_failed", "error", err)
			}
		}()
	}

	start := timeutil.Now()
	logger.Info("sync_run_start", "owner", s.owner)
	err := s.job(ctx)
	logger.Info("sync_run_done", "took", time.Since(start).String(), "ok", err == nil)
	return err
}
