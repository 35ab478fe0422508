package domain

import (
	"sort"
	"time"
)

// CatalogEntry is a single app listed in the remote catalog.
type CatalogEntry struct {
	ID   int64
	Name string
}

// NormalizeCatalog drops duplicate ids (first occurrence wins) and sorts by id.
func NormalizeCatalog(entries []CatalogEntry) []CatalogEntry {
	seen := make(map[int64]struct{}, len(entries))
	result := make([]CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// AppDetails is the subset of the store detail payload the pipeline relies on.
type AppDetails struct {
	CanonicalID int64
	Type        string
	Name        string
	ReleaseDate string
	Genres      []string
}

// IsGame reports whether the details declare the "game" kind.
func (d AppDetails) IsGame() bool {
	return d.Type == "game"
}

// ReviewCounts holds the aggregate positive/negative totals for an app.
type ReviewCounts struct {
	Positive int
	Negative int
}

// Total returns positive plus negative reviews.
func (c ReviewCounts) Total() int {
	return c.Positive + c.Negative
}

// ReviewSummary is a sentiment label with the total count parsed from the store page.
type ReviewSummary struct {
	Label      string
	TotalCount int
}

// GameRecord is a persisted, scorable game.
type GameRecord struct {
	ID                  int64
	Name                string
	ReleaseDate         time.Time
	Genres              string
	RecentReviewLabel   string
	AllReviewLabel      string
	PositiveReviewCount int
	NegativeReviewCount int
	LastFetched         time.Time
}

// TotalReviews returns the aggregate review count stored for the game.
func (g GameRecord) TotalReviews() int {
	return g.PositiveReviewCount + g.NegativeReviewCount
}

// ExclusionRecord marks an app id that must not be treated as a scorable game.
type ExclusionRecord struct {
	ID               int64
	ExcludedDate     time.Time
	IsNonGame        bool
	NoDetails        bool
	NotEnoughReviews bool
}

// Reason returns a short label for the dominant exclusion flag.
func (e ExclusionRecord) Reason() string {
	switch {
	case e.IsNonGame:
		return "non-game"
	case e.NoDetails:
		return "no details"
	case e.NotEnoughReviews:
		return "not enough reviews"
	default:
		return "unspecified"
	}
}

// ProcessedBatch accumulates classification results between flushes.
type ProcessedBatch struct {
	GamesToUpsert      []GameRecord
	ExclusionsToUpsert []ExclusionRecord
	ExclusionsToRemove []int64
	GamesToRemove      []int64
}

// Empty reports whether the batch carries no work.
func (b *ProcessedBatch) Empty() bool {
	return len(b.GamesToUpsert) == 0 &&
		len(b.ExclusionsToUpsert) == 0 &&
		len(b.ExclusionsToRemove) == 0 &&
		len(b.GamesToRemove) == 0
}

// ScoredGame is the export-time view of a GameRecord.
type ScoredGame struct {
	ID                int64
	Name              string
	Genres            string
	RecentScore       int
	AllScore          int
	YearScore         int
	TotalReviewsScore int
	TotalScore        int
}

// Settings drive which catalog entries a run processes and whether it exports.
type Settings struct {
	ReviewThreshold                 int
	DaysIgnored                     int
	AddNew                          bool
	UpdateExisting                  bool
	UpdateExcludedByAppDetails      bool
	UpdateExcludedByReviewThreshold bool
	CreateExport                    bool
}

// ProcessingRequested reports whether any setting asks for catalog processing.
func (s Settings) ProcessingRequested() bool {
	return s.AddNew || s.UpdateExisting || s.UpdateExcludedByAppDetails || s.UpdateExcludedByReviewThreshold
}

// StoreStats summarises persisted state.
type StoreStats struct {
	Games            int
	Excluded         int
	NonGame          int
	NoDetails        int
	NotEnoughReviews int
}
