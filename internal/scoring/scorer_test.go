package scoring

import (
	"testing"
	"time"

	"gamescorer/internal/domain"
)

func TestTotalReviewsScoreBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total int
		want  int
	}{
		{0, 0},
		{2499, 0},
		{2500, 1},
		{4999, 1},
		{5000, 4},
		{9999, 4},
		{10000, 6},
		{19999, 6},
		{20000, 8},
		{29999, 8},
		{30000, 10},
		{39999, 10},
		{40000, 11},
		{100000, 17},
		{110000, 17},
		{5000000, 17},
	}

	for _, tc := range cases {
		if got := TotalReviewsScore(tc.total); got != tc.want {
			t.Fatalf("TotalReviewsScore(%d) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestTotalReviewsScoreMonotonic(t *testing.T) {
	t.Parallel()

	prev := TotalReviewsScore(0)
	for total := 0; total <= 200000; total += 250 {
		got := TotalReviewsScore(total)
		if got < prev {
			t.Fatalf("score decreased at %d: %d < %d", total, got, prev)
		}
		prev = got
	}
}

func TestYearScore(t *testing.T) {
	t.Parallel()

	const current = 2025
	cases := []struct {
		release int
		want    int
	}{
		{current, 8},
		{current - 1, 7},
		{current - 7, 1},
		{current - 8, 0},
		{current - 20, 0},
		{1, 0},
	}
	for _, tc := range cases {
		if got := YearScore(tc.release, current); got != tc.want {
			t.Fatalf("YearScore(%d, %d) = %d, want %d", tc.release, current, got, tc.want)
		}
	}
}

func TestReviewScore(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"Overwhelmingly Positive": 10,
		"very positive":           9,
		"POSITIVE":                8,
		"Mostly Positive":         6,
		"Mixed":                   4,
		"Mostly Negative":         3,
		"Negative":                2,
		"Very Negative":           1,
		"Overwhelmingly Negative": 0,
		"":                        0,
		"3 user reviews":          0,
		"Very  Positive":          0,
	}
	for label, want := range cases {
		if got := ReviewScore(label); got != want {
			t.Fatalf("ReviewScore(%q) = %d, want %d", label, got, want)
		}
	}
}

func TestScoreSumsComponents(t *testing.T) {
	t.Parallel()

	game := domain.GameRecord{
		ID:                  42,
		Name:                "Portal",
		Genres:              "Puzzle",
		ReleaseDate:         time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC),
		RecentReviewLabel:   "Very Positive",
		AllReviewLabel:      "Overwhelmingly Positive",
		PositiveReviewCount: 35000,
		NegativeReviewCount: 5000,
	}

	got := Score(game, 2025)
	want := domain.ScoredGame{
		ID:                42,
		Name:              "Portal",
		Genres:            "Puzzle",
		RecentScore:       9,
		AllScore:          10,
		YearScore:         4,
		TotalReviewsScore: 11,
		TotalScore:        34,
	}
	if got != want {
		t.Fatalf("Score mismatch:\nwant %#v\ngot  %#v", want, got)
	}
}

func TestScoreSentinelReleaseDate(t *testing.T) {
	t.Parallel()

	got := Score(domain.GameRecord{ID: 1}, 2025)
	if got.YearScore != 0 || got.TotalScore != 0 {
		t.Fatalf("expected zero score for empty record, got %#v", got)
	}
}

func TestTopN(t *testing.T) {
	t.Parallel()

	scored := []domain.ScoredGame{
		{ID: 3, TotalScore: 10},
		{ID: 1, TotalScore: 20},
		{ID: 2, TotalScore: 10},
		{ID: 4, TotalScore: 5},
	}

	top := TopN(scored, 3)
	if len(top) != 3 || top[0].ID != 1 || top[1].ID != 2 || top[2].ID != 3 {
		t.Fatalf("unexpected ranking: %#v", top)
	}
	if scored[0].ID != 3 {
		t.Fatal("TopN must not reorder its input")
	}
	if all := TopN(scored, 0); len(all) != 4 {
		t.Fatalf("expected all games for n=0, got %d", len(all))
	}
}
