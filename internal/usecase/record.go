package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"gamescorer/internal/domain"
)

const unknownGenres = "Unknown"

// releaseLayouts covers the date formats the store emits across locales.
var releaseLayouts = []string{
	"2 Jan, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"2 January, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	"2006",
}

var yearExpr = regexp.MustCompile(`\d{4}`)

// parseReleaseDate reads the leading token of raw (text before the first "-").
// Unparseable tokens fall back to January 1 of the first four-digit run, and
// to the zero time when there is none. ok is false only for the zero fallback.
func parseReleaseDate(raw string) (release time.Time, ok bool) {
	token := strings.TrimSpace(strings.SplitN(raw, "-", 2)[0])
	if token != "" {
		for _, layout := range releaseLayouts {
			if parsed, err := time.Parse(layout, token); err == nil {
				return parsed, true
			}
		}
		if parsed, err := dateparse.ParseIn(token, time.UTC); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	if match := yearExpr.FindString(raw); match != "" {
		if year, err := strconv.Atoi(match); err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// joinGenres renders genres as a display string; ok is false when none were given.
func joinGenres(genres []string) (joined string, ok bool) {
	if len(genres) == 0 {
		return unknownGenres, false
	}
	return strings.Join(genres, ", "), true
}

// reviewLabels lets each label stand in for the other when one is missing.
func reviewLabels(recent, all domain.ReviewSummary) (string, string) {
	recentLabel, allLabel := recent.Label, all.Label
	if recentLabel == "" {
		recentLabel = allLabel
	}
	if allLabel == "" {
		allLabel = recentLabel
	}
	return recentLabel, allLabel
}

// buildGameRecord assembles the persisted record keyed by the canonical id.
func buildGameRecord(details domain.AppDetails, counts domain.ReviewCounts, recent, all domain.ReviewSummary, fetched time.Time) (record domain.GameRecord, genresFound, dateParsed bool) {
	genres, genresFound := joinGenres(details.Genres)
	release, dateParsed := parseReleaseDate(details.ReleaseDate)
	recentLabel, allLabel := reviewLabels(recent, all)

	record = domain.GameRecord{
		ID:                  details.CanonicalID,
		Name:                details.Name,
		ReleaseDate:         release,
		Genres:              genres,
		RecentReviewLabel:   recentLabel,
		AllReviewLabel:      allLabel,
		PositiveReviewCount: counts.Positive,
		NegativeReviewCount: counts.Negative,
		LastFetched:         fetched.UTC(),
	}
	return record, genresFound, dateParsed
}
