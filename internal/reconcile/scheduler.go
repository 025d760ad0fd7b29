// Package reconcile runs the expiry sweep on a schedule.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"booking-engine/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrLockHeld means another sweep holds the lock and this tick was skipped.
var ErrLockHeld = errors.New("sweep lock held elsewhere")

// Sweeper runs one reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

// Scheduler drives a Sweeper every interval. Overlapping ticks inside one
// process are skipped by the cron chain, and across processes by the Lock.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	lock     Lock
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. A nil lock means a process-local one.
func NewScheduler(sweeper Sweeper, lock Lock, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if lock == nil {
		lock = &LocalLock{}
	}
	logger = logger.With().Str("component", "reconcile-scheduler").Logger()
	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper:  sweeper,
		lock:     lock,
		interval: interval,
		logger:   logger,
	}
}

// Start registers the sweep and begins ticking. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval < time.Second {
		return fmt.Errorf("reconcile interval must be at least 1s, got %s", s.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrLockHeld) && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("sweep failed")
		}
	}))
	s.cron.Start()

	s.logger.Info().Dur("interval", s.interval).Msg("reconcile scheduler started")
	return nil
}

// Stop cancels any running sweep and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("reconcile scheduler stopped")
}

// RunOnce executes one guarded sweep synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) (*service.SweepReport, error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		s.logger.Debug().Msg("sweep lock held, skipping tick")
		return nil, ErrLockHeld
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	start := time.Now()
	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return report, err
	}

	s.logger.Debug().
		Dur("took", time.Since(start)).
		Int("cancelled", len(report.Cancelled)).
		Msg("sweep tick complete")
	return report, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
