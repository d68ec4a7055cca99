package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron specs, evaluated in UTC.
const (
	WeeklyRewardsSpec = "5 0 * * 1"
	AuditCleanupSpec  = "0 3 * * *"
)

const jobTimeout = 30 * time.Minute

// Scheduler runs Jobs on their cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *zap.Logger
}

// New creates a Scheduler. Overlapping runs of the same job are skipped.
func New(jobs *Jobs, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:   jobs,
		logger: logger,
	}
}

// Start registers the jobs and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(WeeklyRewardsSpec, s.weeklyRewards); err != nil {
		return fmt.Errorf("failed to schedule weekly rewards: %w", err)
	}
	if _, err := s.cron.AddFunc(AuditCleanupSpec, s.auditCleanup); err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, jobs still running")
	}
}

func (s *Scheduler) weeklyRewards() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.jobs.IssueWeeklyRewards(ctx); err != nil {
		s.logger.Error("weekly rewards job failed", zap.Error(err))
	}
}

func (s *Scheduler) auditCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.jobs.CleanupAuditLogs(ctx, 0); err != nil {
		s.logger.Error("audit cleanup job failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
