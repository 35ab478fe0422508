package ports

import (
	"context"
	"time"

	"gamescorer/internal/domain"
)

// CatalogFetcher pulls remote catalog data. Network failures never surface as errors:
// absent payloads come back as nil/zero values, errors signal cancellation only.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]domain.CatalogEntry, error)
	FetchDetails(ctx context.Context, id int64) (*domain.AppDetails, error)
	FetchReviewCounts(ctx context.Context, id int64, filter string) (domain.ReviewCounts, error)
	FetchStorePage(ctx context.Context, id int64) (string, error)
}

// ReviewExtractor recovers recent/all review summaries from a store page payload.
type ReviewExtractor interface {
	ExtractReviewSummaries(page string) (recent, all domain.ReviewSummary, err error)
}

// GameRepository is the transactional store of games and exclusions.
type GameRepository interface {
	LoadExisting(ctx context.Context) (map[int64]domain.ExclusionRecord, map[int64]time.Time, error)
	SaveBatch(ctx context.Context, batch domain.ProcessedBatch, at time.Time) error
	LoadAllGames(ctx context.Context) ([]domain.GameRecord, error)
}

// StatsReader exposes aggregate counters over persisted state.
type StatsReader interface {
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// Observer receives ordered progress notifications. Implementations must not block
// the caller indefinitely.
type Observer interface {
	Notify(event domain.Event)
}

// ScoreExporter writes scored games to an export artifact and returns its location.
type ScoreExporter interface {
	Export(ctx context.Context, games []domain.ScoredGame) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
