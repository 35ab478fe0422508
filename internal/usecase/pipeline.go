package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

const (
	defaultFlushEvery   = 10
	defaultReviewFilter = "all"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Fetcher      ports.CatalogFetcher
	Extractor    ports.ReviewExtractor
	Repository   ports.GameRepository
	Exporter     ports.ScoreExporter
	Observer     ports.Observer
	Logger       *slog.Logger
	FlushEvery   int
	ReviewFilter string
	Now          func() time.Time
}

// Pipeline implements the catalog ingestion and scoring workflow. A Pipeline owns
// a single fetcher and must not run concurrently with itself.
type Pipeline struct {
	fetcher      ports.CatalogFetcher
	extractor    ports.ReviewExtractor
	repository   ports.GameRepository
	exporter     ports.ScoreExporter
	observer     ports.Observer
	logger       *slog.Logger
	flushEvery   int
	reviewFilter string
	now          func() time.Time
}

// RunSummary reports what a single run did.
type RunSummary struct {
	RunID            string
	CatalogSize      int
	Selected         int
	Processed        int
	GamesSaved       int
	NonGame          int
	NoDetails        int
	NotEnoughReviews int
	Redirects        int
	Removed          int
	Checkpoints      int // periodic progress points, one per flushEvery entries
	Flushes          int // non-empty batches written; empty checkpoints write nothing
	Exported         int
	ExportPath       string
	Duration         time.Duration
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		fetcher:      deps.Fetcher,
		extractor:    deps.Extractor,
		repository:   deps.Repository,
		exporter:     deps.Exporter,
		observer:     deps.Observer,
		logger:       deps.Logger,
		flushEvery:   deps.FlushEvery,
		reviewFilter: deps.ReviewFilter,
		now:          deps.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.flushEvery <= 0 {
		p.flushEvery = defaultFlushEvery
	}
	if p.reviewFilter == "" {
		p.reviewFilter = defaultReviewFilter
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run processes the catalog when any processing setting is enabled, then exports
// scores when requested. Cancellation returns context.Canceled after the last
// completed flush; work since that flush is discarded.
func (p *Pipeline) Run(ctx context.Context, settings domain.Settings) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	started := p.now()
	logger := p.logger.With("run_id", summary.RunID)

	fail := func(err error) (RunSummary, error) {
		summary.Duration = p.now().Sub(started)
		return p.finishWithError(summary, logger, err)
	}

	p.info("START", "Steam Data Processing")
	logger.Info("run started", "settings", fmt.Sprintf("%+v", settings))

	if settings.ProcessingRequested() {
		if err := p.process(ctx, settings, &summary, logger); err != nil {
			return fail(err)
		}
		p.info("PROCESS", "Processed successfully")
	}

	if settings.CreateExport {
		path, count, err := p.Export(ctx)
		if err != nil {
			return fail(err)
		}
		summary.ExportPath = path
		summary.Exported = count
		p.info("EXPORT", "Exported successfully")
	}

	summary.Duration = p.now().Sub(started)
	p.notify(domain.LevelSuccess, "PROCESS", "Finished.")
	logger.Info("run finished",
		"processed", summary.Processed,
		"games_saved", summary.GamesSaved,
		"flushes", summary.Flushes,
		"exported", summary.Exported,
	)
	return summary, nil
}

func (p *Pipeline) finishWithError(summary RunSummary, logger *slog.Logger, err error) (RunSummary, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.notify(domain.LevelCancelled, "CANCELLED", "Processing was stopped by user.")
		logger.Warn("run cancelled", "processed", summary.Processed, "flushes", summary.Flushes)
		return summary, err
	}
	p.notify(domain.LevelError, "ERROR", err.Error())
	logger.Error("run failed", "error", err)
	return summary, err
}

func (p *Pipeline) process(ctx context.Context, settings domain.Settings, summary *RunSummary, logger *slog.Logger) error {
	if p.fetcher == nil || p.repository == nil {
		return errors.New("pipeline: processing requires a fetcher and a repository")
	}

	p.info("FETCH", "Retrieving all Steam apps...")
	catalog, err := p.fetcher.FetchCatalog(ctx)
	if err != nil {
		return err
	}
	catalog = domain.NormalizeCatalog(catalog)
	summary.CatalogSize = len(catalog)
	p.info("DATA", fmt.Sprintf("Found %d total apps in Steam catalog", len(catalog)))

	exclusions, games, err := p.repository.LoadExisting(ctx)
	if err != nil {
		return fmt.Errorf("load existing: %w", err)
	}
	p.info("CACHE", fmt.Sprintf("Loaded %d existing games and %d excluded apps", len(games), len(exclusions)))

	work := Reconcile(catalog, exclusions, games, settings, p.now())
	summary.Selected = len(work)
	p.info("DATA", fmt.Sprintf("Filtered %d total apps to process", len(work)))

	state := newRunState(exclusions, games)
	processStart := p.now()

	for _, entry := range work {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.processEntry(ctx, entry, settings, state, summary); err != nil {
			return err
		}
		summary.Processed++

		if summary.Processed%p.flushEvery == 0 {
			if err := p.flush(ctx, state, summary, logger); err != nil {
				return err
			}
			summary.Checkpoints++
			p.notify(domain.LevelProgress, "PROGRESS", fmt.Sprintf("Processed %d/%d apps (%s)",
				summary.Processed, len(work), formatElapsed(p.now().Sub(processStart))))
		}
	}

	return p.flush(ctx, state, summary, logger)
}

func (p *Pipeline) flush(ctx context.Context, state *runState, summary *RunSummary, logger *slog.Logger) error {
	if state.batch.Empty() {
		return nil
	}
	batch := state.take()
	if err := p.repository.SaveBatch(ctx, batch, p.now().UTC()); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	summary.Flushes++
	summary.GamesSaved += len(batch.GamesToUpsert)
	logger.Debug("batch flushed",
		"games", len(batch.GamesToUpsert),
		"exclusions", len(batch.ExclusionsToUpsert),
		"exclusions_removed", len(batch.ExclusionsToRemove),
		"games_removed", len(batch.GamesToRemove),
	)
	return nil
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (p *Pipeline) notify(level domain.EventLevel, tag, message string) {
	if p.observer == nil {
		return
	}
	p.observer.Notify(domain.Event{Time: p.now(), Level: level, Tag: tag, Message: message})
}

func (p *Pipeline) info(tag, message string) {
	p.notify(domain.LevelInfo, tag, message)
}

func (p *Pipeline) warn(tag, message string) {
	p.notify(domain.LevelWarning, tag, message)
}
