// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs such as pruning the
// audit log.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule prunes once a day at midnight.
const DefaultSchedule = "@daily"

// Pruner deletes audit log entries older than a given age.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler prunes the audit log on a cron schedule.
type Scheduler struct {
	pruner    Pruner
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a scheduler that keeps retention worth of audit entries.
func New(pruner Pruner, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pruner:    pruner,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
	}
}

// ValidateSchedule checks a standard five-field cron expression or descriptor
// such as @daily or @every 6h.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return errors.New("schedule is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Start registers the prune job on spec and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("failed to prune audit log", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", spec, "retention", s.retention)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce prunes entries older than the retention period.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.pruner.DeleteOlderThan(ctx, s.retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned audit log", "deleted", n, "retention", s.retention)
	}
	return n, nil
}
