package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gamescorer/internal/domain"
)

// runState tracks persisted state as it evolves during a run, plus the batch
// accumulated since the last flush.
type runState struct {
	exclusions map[int64]domain.ExclusionRecord
	games      map[int64]time.Time
	batch      domain.ProcessedBatch
}

func newRunState(exclusions map[int64]domain.ExclusionRecord, games map[int64]time.Time) *runState {
	state := &runState{
		exclusions: make(map[int64]domain.ExclusionRecord, len(exclusions)),
		games:      make(map[int64]time.Time, len(games)),
	}
	for id, rec := range exclusions {
		state.exclusions[id] = rec
	}
	for id, fetched := range games {
		state.games[id] = fetched
	}
	return state
}

// take hands over the pending batch and starts a new one.
func (s *runState) take() domain.ProcessedBatch {
	batch := s.batch
	s.batch = domain.ProcessedBatch{}
	return batch
}

func (s *runState) tracked(id int64) bool {
	_, ok := s.games[id]
	return ok
}

// exclude records an exclusion for id. A stored game under the same id is dropped
// so an id never ends up both excluded and scored.
func (s *runState) exclude(rec domain.ExclusionRecord) {
	s.batch.ExclusionsToUpsert = append(s.batch.ExclusionsToUpsert, rec)
	s.exclusions[rec.ID] = rec
	if s.tracked(rec.ID) {
		s.batch.GamesToUpsert = slices.DeleteFunc(s.batch.GamesToUpsert, func(g domain.GameRecord) bool { return g.ID == rec.ID })
		s.batch.GamesToRemove = append(s.batch.GamesToRemove, rec.ID)
		delete(s.games, rec.ID)
	}
}

// addGame records a game and lifts any exclusion held by its id. It reports
// whether an exclusion was lifted.
func (s *runState) addGame(game domain.GameRecord) bool {
	s.batch.GamesToUpsert = append(s.batch.GamesToUpsert, game)
	s.batch.GamesToRemove = slices.DeleteFunc(s.batch.GamesToRemove, func(id int64) bool { return id == game.ID })
	s.games[game.ID] = game.LastFetched

	if _, excluded := s.exclusions[game.ID]; !excluded {
		return false
	}
	s.batch.ExclusionsToUpsert = slices.DeleteFunc(s.batch.ExclusionsToUpsert, func(e domain.ExclusionRecord) bool { return e.ID == game.ID })
	s.batch.ExclusionsToRemove = append(s.batch.ExclusionsToRemove, game.ID)
	delete(s.exclusions, game.ID)
	return true
}

// processEntry classifies one catalog entry into the pending batch. It returns an
// error only when ctx is done.
func (p *Pipeline) processEntry(ctx context.Context, entry domain.CatalogEntry, settings domain.Settings, state *runState, summary *RunSummary) error {
	id := entry.ID
	p.info("PROCESS", fmt.Sprintf("AppID %d (%s)", id, entry.Name))

	details, err := p.fetcher.FetchDetails(ctx, id)
	if err != nil {
		return err
	}

	if details == nil {
		p.warn("WARNING", fmt.Sprintf("Failed to fetch details for AppID %d", id))
		if state.tracked(id) {
			p.warn("WARNING", fmt.Sprintf("Keeping stored game %d until details are available", id))
			return nil
		}
		p.warn("EXCLUDE", fmt.Sprintf("AppID %d (no details)", id))
		state.exclude(domain.ExclusionRecord{ID: id, NoDetails: true})
		summary.NoDetails++
		return nil
	}

	if !details.IsGame() || strings.TrimSpace(details.ReleaseDate) == "" {
		nonGame := !details.IsGame()
		if !nonGame && state.tracked(id) {
			p.warn("WARNING", fmt.Sprintf("Keeping stored game %d despite missing release date", id))
			return nil
		}
		reason := "non-game"
		if !nonGame {
			reason = "invalid release date"
		}
		p.info("EXCLUDE", fmt.Sprintf("AppID %d (%s)", id, reason))
		state.exclude(domain.ExclusionRecord{ID: id, IsNonGame: nonGame, NoDetails: !nonGame})
		if nonGame {
			summary.NonGame++
		} else {
			summary.NoDetails++
		}
		return nil
	}

	p.info("REVIEWS", fmt.Sprintf("Fetching review data for %s (%d)", details.Name, id))
	counts, err := p.fetcher.FetchReviewCounts(ctx, id, p.reviewFilter)
	if err != nil {
		return err
	}
	page, err := p.fetcher.FetchStorePage(ctx, id)
	if err != nil {
		return err
	}

	var recent, all domain.ReviewSummary
	if p.extractor != nil && page != "" {
		recent, all, err = p.extractor.ExtractReviewSummaries(page)
		if err != nil {
			p.warn("WARNING", fmt.Sprintf("Could not read review summaries for AppID %d: %v", id, err))
		}
	}

	canonical := details.CanonicalID
	total := counts.Total()
	if total <= settings.ReviewThreshold && !state.tracked(id) && !state.tracked(canonical) {
		p.warn("EXCLUDE", fmt.Sprintf("AppID %d (only %d total reviews)", id, total))
		state.exclude(domain.ExclusionRecord{ID: id, NotEnoughReviews: true})
		summary.NotEnoughReviews++
		return nil
	}

	game, genresFound, dateParsed := buildGameRecord(*details, counts, recent, all, p.now())
	if !genresFound {
		p.warn("WARNING", fmt.Sprintf("No genres found for %s", details.Name))
	}
	if !dateParsed {
		p.warn("WARNING", fmt.Sprintf("Failed to parse release date for %s: %s", details.Name, details.ReleaseDate))
	}

	if state.addGame(game) {
		summary.Removed++
	}
	p.notify(domain.LevelSuccess, "ADDED", fmt.Sprintf("%s (%d) with %d reviews", game.Name, game.ID, total))

	if canonical != id {
		p.warn("EXCLUDE", fmt.Sprintf("REDIRECT %d -> %d", id, canonical))
		state.exclude(domain.ExclusionRecord{ID: id, IsNonGame: true})
		summary.Redirects++
	}

	return nil
}
