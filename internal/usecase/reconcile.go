package usecase

import (
	"time"

	"gamescorer/internal/domain"
)

// Reconcile returns, in catalog order, the entries that need (re)processing given
// the persisted exclusions, the last fetch time of stored games and the run settings.
func Reconcile(catalog []domain.CatalogEntry, exclusions map[int64]domain.ExclusionRecord, games map[int64]time.Time, settings domain.Settings, now time.Time) []domain.CatalogEntry {
	staleAfter := time.Duration(settings.DaysIgnored) * 24 * time.Hour

	selected := make([]domain.CatalogEntry, 0, len(catalog))
	for _, entry := range catalog {
		if needsProcessing(entry.ID, exclusions, games, settings, now, staleAfter) {
			selected = append(selected, entry)
		}
	}
	return selected
}

func needsProcessing(id int64, exclusions map[int64]domain.ExclusionRecord, games map[int64]time.Time, settings domain.Settings, now time.Time, staleAfter time.Duration) bool {
	if excluded, ok := exclusions[id]; ok {
		switch {
		case excluded.IsNonGame:
			return false
		case excluded.NotEnoughReviews && !settings.UpdateExcludedByReviewThreshold:
			return false
		case excluded.NoDetails && !settings.UpdateExcludedByAppDetails:
			return false
		case now.Sub(excluded.ExcludedDate) < staleAfter:
			return false
		default:
			return true
		}
	}

	if lastFetched, ok := games[id]; ok {
		return settings.UpdateExisting && now.Sub(lastFetched) >= staleAfter
	}

	return settings.AddNew
}
