// Package scoring turns stored games into deterministic quality scores.
package scoring

import (
	"sort"
	"strings"

	"gamescorer/internal/domain"
)

// reviewScores is the nine-point sentiment scale keyed by lower-cased label.
var reviewScores = map[string]int{
	"overwhelmingly positive": 10,
	"very positive":           9,
	"positive":                8,
	"mostly positive":         6,
	"mixed":                   4,
	"mostly negative":         3,
	"negative":                2,
	"very negative":           1,
	"overwhelmingly negative": 0,
}

// Score computes every component of a game's score for the given calendar year.
func Score(game domain.GameRecord, currentYear int) domain.ScoredGame {
	scored := domain.ScoredGame{
		ID:                game.ID,
		Name:              game.Name,
		Genres:            game.Genres,
		RecentScore:       ReviewScore(game.RecentReviewLabel),
		AllScore:          ReviewScore(game.AllReviewLabel),
		YearScore:         YearScore(game.ReleaseDate.Year(), currentYear),
		TotalReviewsScore: TotalReviewsScore(game.TotalReviews()),
	}
	scored.TotalScore = scored.RecentScore + scored.AllScore + scored.YearScore + scored.TotalReviewsScore
	return scored
}

// ScoreAll scores games in their given order.
func ScoreAll(games []domain.GameRecord, currentYear int) []domain.ScoredGame {
	scored := make([]domain.ScoredGame, 0, len(games))
	for _, game := range games {
		scored = append(scored, Score(game, currentYear))
	}
	return scored
}

// YearScore rewards recent releases: 8 for the current year, one less per year of age.
func YearScore(releaseYear, currentYear int) int {
	return max(8-(currentYear-releaseYear), 0)
}

// TotalReviewsScore maps a review volume to its step score.
func TotalReviewsScore(total int) int {
	switch {
	case total < 2500:
		return 0
	case total < 5000:
		return 1
	case total < 10000:
		return 4
	case total < 20000:
		return 6
	case total < 30000:
		return 8
	default:
		return 10 + min((total-30000)/10000, 7)
	}
}

// ReviewScore matches a sentiment label case-insensitively; unknown labels score 0.
func ReviewScore(label string) int {
	return reviewScores[strings.ToLower(label)]
}

// TopN returns the n highest scored games, ties broken by id. n <= 0 returns all.
func TopN(scored []domain.ScoredGame, n int) []domain.ScoredGame {
	ranked := make([]domain.ScoredGame, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].ID < ranked[j].ID
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
