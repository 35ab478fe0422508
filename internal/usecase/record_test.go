package usecase

import (
	"testing"
	"time"

	"gamescorer/internal/domain"
)

func TestParseReleaseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw    string
		want   time.Time
		wantOK bool
	}{
		{raw: "10 Oct, 2007", want: time.Date(2007, time.October, 10, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "Oct 10, 2007", want: time.Date(2007, time.October, 10, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "3 Mar 2020", want: time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "Nov 2019", want: time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "2021", want: time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "14 Feb, 2018 - early access", want: time.Date(2018, time.February, 14, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "2020-05-06", want: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "-2023", want: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{raw: "Coming soon", want: time.Time{}, wantOK: false},
		{raw: "", want: time.Time{}, wantOK: false},
	}

	for _, tc := range cases {
		got, ok := parseReleaseDate(tc.raw)
		if ok != tc.wantOK || !got.Equal(tc.want) {
			t.Fatalf("parseReleaseDate(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestJoinGenres(t *testing.T) {
	t.Parallel()

	if got, ok := joinGenres([]string{"Action", "Indie"}); got != "Action, Indie" || !ok {
		t.Fatalf("unexpected join: %q, %v", got, ok)
	}
	if got, ok := joinGenres(nil); got != "Unknown" || ok {
		t.Fatalf("expected Unknown fallback, got %q, %v", got, ok)
	}
}

func TestReviewLabelsFallBackToEachOther(t *testing.T) {
	t.Parallel()

	recent, all := reviewLabels(domain.ReviewSummary{}, domain.ReviewSummary{Label: "Mixed"})
	if recent != "Mixed" || all != "Mixed" {
		t.Fatalf("expected recent to borrow all label, got %q / %q", recent, all)
	}
	recent, all = reviewLabels(domain.ReviewSummary{Label: "Positive"}, domain.ReviewSummary{})
	if recent != "Positive" || all != "Positive" {
		t.Fatalf("expected all to borrow recent label, got %q / %q", recent, all)
	}
	recent, all = reviewLabels(domain.ReviewSummary{}, domain.ReviewSummary{})
	if recent != "" || all != "" {
		t.Fatalf("expected empty labels, got %q / %q", recent, all)
	}
}

func TestBuildGameRecordUsesCanonicalID(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	details := domain.AppDetails{CanonicalID: 20, Type: "game", Name: "Twenty", ReleaseDate: "1 Jan, 2015"}

	record, genresFound, dateParsed := buildGameRecord(details, domain.ReviewCounts{Positive: 80, Negative: 20},
		domain.ReviewSummary{Label: "Very Positive"}, domain.ReviewSummary{Label: "Mostly Positive"}, fetched)

	if record.ID != 20 || record.Name != "Twenty" || record.TotalReviews() != 100 {
		t.Fatalf("unexpected record: %#v", record)
	}
	if record.Genres != "Unknown" || genresFound {
		t.Fatalf("expected Unknown genres, got %q", record.Genres)
	}
	if !dateParsed || record.ReleaseDate.Year() != 2015 {
		t.Fatalf("unexpected release date %v", record.ReleaseDate)
	}
	if !record.LastFetched.Equal(fetched) {
		t.Fatalf("unexpected last fetched %v", record.LastFetched)
	}
}
