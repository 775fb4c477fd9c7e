// Package automation advances monthly execution records on calendar
// boundaries. Runs are best effort: failures are retried, then logged and
// dropped.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/robfig/cron/v3"
)

// Tracker is the part of the execution tracker automation drives.
type Tracker interface {
	Record(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error)
	StartTracking(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error)
	MarkComplete(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error)
}

// Report describes what a single run did.
type Report struct {
	Month     string
	Started   bool
	Completed bool
	Failed    bool
}

// Scheduler checks the calendar and triggers execution transitions.
type Scheduler struct {
	tracker  Tracker
	now      func() time.Time
	retry    service.RetryOptions
	settings config.AutomationSettings
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock used by Start.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRetryOptions overrides the retry policy. MaxAttempts from settings
// still applies when opts leaves it zero.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(s *Scheduler) {
		attempts := s.retry.MaxAttempts
		s.retry = opts
		if s.retry.MaxAttempts <= 0 {
			s.retry.MaxAttempts = attempts
		}
	}
}

// NewScheduler creates a scheduler.
func NewScheduler(tracker Tracker, settings config.AutomationSettings, opts ...Option) *Scheduler {
	s := &Scheduler{
		tracker:  tracker,
		settings: settings,
		now:      time.Now,
		retry: service.RetryOptions{
			MaxAttempts:  settings.MaxAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs the calendar checks for now. Calendar days are taken in
// UTC so they agree with month labels.
//
// On the first day of a month with auto start enabled, a draft or missing
// record is moved to executing. On the last day with auto complete enabled,
// an executing record is closed. Errors never escape.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) Report {
	now = now.UTC()
	report := Report{Month: model.MonthLabel(now)}

	if s.settings.AutoStart && isFirstDay(now) {
		started, err := s.startIfDraft(ctx, report.Month)
		if err != nil {
			report.Failed = true
			slog.Error("automatic start failed", "month", report.Month, "error", err)
		}
		report.Started = started
	}

	if s.settings.AutoComplete && isLastDay(now) {
		completed, err := s.completeIfExecuting(ctx, report.Month)
		if err != nil {
			report.Failed = true
			slog.Error("automatic completion failed", "month", report.Month, "error", err)
		}
		report.Completed = completed
	}

	return report
}

func (s *Scheduler) startIfDraft(ctx context.Context, month string) (bool, error) {
	var started bool
	err := common.WithRetry(ctx, func() error {
		record, err := s.tracker.Record(ctx, month)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to load record: %w", err)
		case record.Status != model.ExecutionDraft:
			slog.Debug("month not in draft, skipping automatic start", "month", month, "status", record.Status)
			return nil
		}

		if _, err := s.tracker.StartTracking(ctx, month); err != nil {
			return err
		}
		started = true
		return nil
	}, s.retry)
	if started {
		slog.Info("automatically started tracking", "month", month)
	}
	return started, err
}

func (s *Scheduler) completeIfExecuting(ctx context.Context, month string) (bool, error) {
	var completed bool
	err := common.WithRetry(ctx, func() error {
		record, err := s.tracker.Record(ctx, month)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load record: %w", err)
		}
		if record.Status != model.ExecutionExecuting {
			slog.Debug("month not executing, skipping automatic completion", "month", month, "status", record.Status)
			return nil
		}

		if _, err := s.tracker.MarkComplete(ctx, month); err != nil {
			return err
		}
		completed = true
		return nil
	}, s.retry)
	if completed {
		slog.Info("automatically closed month", "month", month)
	}
	return completed, err
}

// Start runs the checks on the configured cron schedule, evaluated in UTC,
// and blocks until ctx is done. One check runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.settings.Schedule, func() {
		s.RunOnce(ctx, s.now())
	}); err != nil {
		return fmt.Errorf("%w: automation schedule %q: %w", common.ErrInvalidConfig, s.settings.Schedule, err)
	}

	s.RunOnce(ctx, s.now())

	c.Start()
	slog.Info("automation scheduler started", "schedule", s.settings.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("automation scheduler stopped")
	return nil
}

// ValidateSchedule reports whether spec is a valid five-field cron spec.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: automation schedule %q: %w", common.ErrInvalidConfig, spec, err)
	}
	return nil
}

func isFirstDay(t time.Time) bool {
	return t.Day() == 1
}

func isLastDay(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}
