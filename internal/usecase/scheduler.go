package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

// PipelineFactory builds a pipeline with fresh fetch state for one run.
type PipelineFactory func(ctx context.Context) (*Pipeline, func(), error)

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	factory  PipelineFactory
	settings domain.Settings
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, factory PipelineFactory, settings domain.Settings, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, factory: factory, settings: settings, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.factory == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.runOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	if ctx.Err() != nil {
		return
	}

	pipeline, release, err := s.factory(ctx)
	if err != nil {
		s.logger.Error("scheduled run skipped", "trigger", trigger, "error", err)
		return
	}
	if release != nil {
		defer release()
	}

	summary, err := pipeline.Run(ctx, s.settings)
	if err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "run_id", summary.RunID, "error", err)
		return
	}
	s.logger.Info("scheduled run done", "trigger", trigger, "run_id", summary.RunID,
		"processed", summary.Processed, "duration", summary.Duration)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
