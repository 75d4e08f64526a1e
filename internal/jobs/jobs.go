// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cleaner purges expired authentication state
type Cleaner interface {
	CleanupExpired(ctx context.Context) error
}

// Pruner forgets idle rate limiter entries
type Pruner interface {
	Prune(idle time.Duration) int
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a scheduler that logs job failures and recovers from panics
func NewScheduler(logger *zap.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	return &Scheduler{cron: c, logger: logger}
}

// AddCleanup purges expired sessions and login codes on schedule (for example "@hourly")
func (s *Scheduler) AddCleanup(schedule string, cleaner Cleaner) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := cleaner.CleanupExpired(ctx); err != nil {
			s.logger.Error("scheduled cleanup failed", zap.Error(err))
		}
	})
	return err
}

// AddPrune forgets rate limiter entries idle for longer than idle
func (s *Scheduler) AddPrune(schedule string, idle time.Duration, pruners ...Pruner) error {
	_, err := s.cron.AddFunc(schedule, func() {
		removed := 0
		for _, p := range pruners {
			removed += p.Prune(idle)
		}
		if removed > 0 {
			s.logger.Debug("pruned rate limiter entries", zap.Int("removed", removed))
		}
	})
	return err
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

// Entries returns the number of scheduled jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
