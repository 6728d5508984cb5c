// Package jobs runs the periodic maintenance tasks of the directory service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cron schedules, evaluated in UTC.
const (
	UsageResetSchedule   = "0 0 1 * *"
	TokenCleanupSchedule = "0 3 * * *"
)

// RevokedTokenRetention is how long revoked refresh tokens are kept so that
// reuse can still be detected.
const RevokedTokenRetention = 7 * 24 * time.Hour

// Store defines the data access the jobs need.
type Store interface {
	ResetMonthlyUsage(ctx context.Context) (int64, error)
	CleanupExpiredRefreshTokens(ctx context.Context, revokedBefore time.Time) (int64, error)
}

// Scheduler runs the monthly usage reset and the daily token cleanup.
type Scheduler struct {
	store   Store
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger.With().Str("component", "jobs").Logger(),
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("job scheduler already running")
	}
	if _, err := s.cron.AddFunc(UsageResetSchedule, func() { s.RunUsageReset(context.Background()) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(TokenCleanupSchedule, func() { s.RunTokenCleanup(context.Background()) }); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("usage_reset", UsageResetSchedule).
		Str("token_cleanup", TokenCleanupSchedule).
		Msg("job scheduler started")
	return nil
}

// Stop stops the scheduler. The returned context is done when running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.logger.Info().Msg("stopping job scheduler")
	return s.cron.Stop()
}

// RunUsageReset zeroes every user's monthly search counter.
func (s *Scheduler) RunUsageReset(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.store.ResetMonthlyUsage(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("monthly usage reset failed")
		return 0, err
	}
	s.logger.Info().Int64("users", n).Msg("monthly usage reset completed")
	return n, nil
}

// RunTokenCleanup deletes expired refresh tokens and revoked ones older than
// RevokedTokenRetention.
func (s *Scheduler) RunTokenCleanup(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.store.CleanupExpiredRefreshTokens(ctx, s.now().Add(-RevokedTokenRetention))
	if err != nil {
		s.logger.Error().Err(err).Msg("refresh token cleanup failed")
		return 0, err
	}
	s.logger.Info().Int64("deleted_rows", n).Msg("refresh token cleanup completed")
	return n, nil
}

// Job names accepted by RunNow.
const (
	JobUsageReset   = "usage-reset"
	JobTokenCleanup = "token-cleanup"
)

// ErrUnknownJob is returned by RunNow for a name it does not know.
var ErrUnknownJob = errors.New("unknown job")

// RunNow runs the named job immediately, outside the cron schedule, and
// returns the number of affected rows.
func (s *Scheduler) RunNow(ctx context.Context, job string) (int64, error) {
	switch job {
	case JobUsageReset:
		return s.RunUsageReset(ctx)
	case JobTokenCleanup:
		return s.RunTokenCleanup(ctx)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
}
