// Package scheduler runs the bridge's background maintenance jobs on cron
// schedules: the auth-recovery probe and the daily API usage counter reset.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/config"
)

// KeyValidator probes whether the provider accepts the configured API key.
type KeyValidator interface {
	ValidateKey(ctx context.Context) error
}

// UsageResetter zeroes the per-day request counter.
type UsageResetter interface {
	ResetDailyUsage() uint64
}

// PollControl is the slice of the coordinator the scheduler drives.
type PollControl interface {
	Halted() bool
	Resume()
}

// Scheduler wraps a cron runner with the two maintenance jobs.
type Scheduler struct {
	cron         *cron.Cron
	validator    KeyValidator
	usage        UsageResetter
	coordinator  PollControl
	probeTimeout time.Duration
	logger       *logrus.Logger
}

// New builds the scheduler from config. Cron expressions use the
// seconds-precision format; jobs skip if a previous run is still going and
// recover from panics.
func New(cfg config.SchedulerConfig, validator KeyValidator, usage UsageResetter, coordinator PollControl, logger *logrus.Logger) (*Scheduler, error) {
	timezone := time.UTC
	if cfg.Timezone != "" {
		tz, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.WithError(err).Warnf("Invalid timezone %s, using UTC", cfg.Timezone)
		} else {
			timezone = tz
		}
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(timezone),
			cron.WithSeconds(),
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
		validator:    validator,
		usage:        usage,
		coordinator:  coordinator,
		probeTimeout: 10 * time.Second,
		logger:       logger,
	}

	if _, err := s.cron.AddFunc(cfg.AuthProbeCron, s.runAuthProbe); err != nil {
		return nil, fmt.Errorf("invalid auth probe schedule %q: %w", cfg.AuthProbeCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.UsageResetCron, s.runUsageReset); err != nil {
		return nil, fmt.Errorf("invalid usage reset schedule %q: %w", cfg.UsageResetCron, err)
	}

	return s, nil
}

// Start begins running the scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started")
}

// Stop halts scheduling and waits briefly for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("Timeout waiting for maintenance jobs to complete")
	}
	s.logger.Info("Maintenance scheduler stopped")
}

// runAuthProbe re-validates the API key while polling is halted and resumes
// the schedule once the provider accepts it again.
func (s *Scheduler) runAuthProbe() {
	if !s.coordinator.Halted() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.probeTimeout)
	defer cancel()

	if err := s.validator.ValidateKey(ctx); err != nil {
		s.logger.WithError(err).Debug("Auth probe failed, polling stays halted")
		return
	}

	s.logger.Info("Credentials recovered, resuming polling")
	s.coordinator.Resume()
}

// runUsageReset zeroes the daily request counter.
func (s *Scheduler) runUsageReset() {
	count := s.usage.ResetDailyUsage()
	s.logger.WithField("requests", count).Info("Daily API usage counter reset")
}
