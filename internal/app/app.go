package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gamescorer/internal/config"
	"gamescorer/internal/domain"
	"gamescorer/internal/infrastructure/export"
	"gamescorer/internal/infrastructure/lock"
	"gamescorer/internal/infrastructure/observer"
	"gamescorer/internal/infrastructure/parser"
	"gamescorer/internal/infrastructure/scheduler"
	"gamescorer/internal/infrastructure/steam"
	"gamescorer/internal/infrastructure/storage"
	"gamescorer/internal/logging"
	"gamescorer/internal/ports"
	"gamescorer/internal/scoring"
	"gamescorer/internal/usecase"
)

const (
	stopTimeout = 30 * time.Second
	eventBuffer = 1024
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	observer ports.Observer
	events   *observer.Channel
	drained  chan struct{}
	now      func() time.Time

	steamOpts []steam.Option
}

// Option customises an Application.
type Option func(*Application)

// WithSteamOptions passes extra options to every Steam client the application builds.
func WithSteamOptions(opts ...steam.Option) Option {
	return func(a *Application) {
		a.steamOpts = append(a.steamOpts, opts...)
	}
}

// WithClock overrides the wall clock used by pipelines.
func WithClock(now func() time.Time) Option {
	return func(a *Application) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an application. Progress events go to out and to the logger.
func New(cfg config.Config, baseLogger *slog.Logger, out io.Writer, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if out == nil {
		out = io.Discard
	}

	// Console output is buffered; a full buffer drops events instead of blocking.
	events := observer.NewChannel(eventBuffer)
	a := &Application{
		cfg:    cfg,
		logger: baseLogger,
		observer: observer.Multi{
			events,
			observer.NewLog(baseLogger.With("component", "events")),
		},
		events:  events,
		drained: make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	console := observer.NewConsole(out)
	go func() {
		defer close(a.drained)
		events.Pump(console)
	}()
	return a, nil
}

// Close flushes pending console events. It is safe to call more than once.
func (a *Application) Close() {
	a.events.Close()
	<-a.drained
	if dropped := a.events.Dropped(); dropped > 0 {
		a.logger.Warn("console events dropped", "count", dropped)
	}
}

// Settings returns the run settings from configuration.
func (a *Application) Settings() domain.Settings {
	return a.cfg.Run.Settings()
}

// Run performs a single pipeline execution under the database lock.
func (a *Application) Run(ctx context.Context, settings domain.Settings) (usecase.RunSummary, error) {
	pipeline, release, err := a.openPipeline(ctx)
	if err != nil {
		return usecase.RunSummary{}, err
	}
	defer release()

	return pipeline.Run(ctx, settings)
}

// Export scores stored games and writes the CSV without touching the catalog.
func (a *Application) Export(ctx context.Context) (string, int, error) {
	repo, err := a.openStore(ctx)
	if err != nil {
		return "", 0, err
	}
	defer a.closeStore(repo)

	pipeline := a.readPipeline(repo)
	return pipeline.Export(ctx)
}

// Status reports counters over the persisted games and exclusions.
func (a *Application) Status(ctx context.Context) (domain.StoreStats, error) {
	repo, err := a.openStore(ctx)
	if err != nil {
		return domain.StoreStats{}, err
	}
	defer a.closeStore(repo)

	return repo.Stats(ctx)
}

// Top returns the n best scored games. n <= 0 returns all of them.
func (a *Application) Top(ctx context.Context, n int) ([]domain.ScoredGame, error) {
	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer a.closeStore(repo)

	scored, err := a.readPipeline(repo).Scores(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.TopN(scored, n), nil
}

// Schedule runs the pipeline on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context, settings domain.Settings) error {
	driver := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"),
	)
	sched := usecase.NewScheduler(driver, a.openPipeline, settings, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler running",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"next_run", driver.Next(),
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// openPipeline builds a fully wired pipeline for one run. Each call gets a fresh
// Steam client, so backoff state never leaks between runs. The returned release
// func closes the store and drops the run lock.
func (a *Application) openPipeline(ctx context.Context) (*usecase.Pipeline, func(), error) {
	runLock := lock.ForDatabase(a.cfg.Database.Path)
	if err := runLock.Acquire(); err != nil {
		return nil, nil, err
	}

	repo, err := a.openStore(ctx)
	if err != nil {
		a.releaseLock(runLock)
		return nil, nil, err
	}

	opts := append([]steam.Option{steam.WithLogger(a.logger.With("component", "steam"))}, a.steamOpts...)
	client, err := steam.New(a.cfg.Steam, a.observer, opts...)
	if err != nil {
		a.closeStore(repo)
		a.releaseLock(runLock)
		return nil, nil, fmt.Errorf("create steam client: %w", err)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:      client,
		Extractor:    parser.NewReviewParser(),
		Repository:   repo,
		Exporter:     export.NewCSVFile(a.cfg.Export.Path),
		Observer:     a.observer,
		Logger:       a.logger.With("component", "pipeline"),
		FlushEvery:   a.cfg.Run.FlushEvery,
		ReviewFilter: a.cfg.Steam.ReviewFilter,
		Now:          a.now,
	})

	release := func() {
		a.closeStore(repo)
		a.releaseLock(runLock)
	}
	return pipeline, release, nil
}

func (a *Application) readPipeline(repo *storage.SQLiteRepository) *usecase.Pipeline {
	return usecase.NewPipeline(usecase.PipelineDeps{
		Repository: repo,
		Exporter:   export.NewCSVFile(a.cfg.Export.Path),
		Observer:   a.observer,
		Logger:     a.logger.With("component", "pipeline"),
		Now:        a.now,
	})
}

func (a *Application) openStore(ctx context.Context) (*storage.SQLiteRepository, error) {
	repo, err := storage.Open(ctx, a.cfg.Database.Path, a.logger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return repo, nil
}

func (a *Application) closeStore(repo *storage.SQLiteRepository) {
	if err := repo.Close(); err != nil {
		a.logger.Warn("close database failed", "path", repo.Path(), "error", err)
	}
}

func (a *Application) releaseLock(l *lock.RunLock) {
	if err := l.Release(); err != nil {
		a.logger.Warn("release lock failed", "path", l.Path(), "error", err)
	}
}
