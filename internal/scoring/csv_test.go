package scoring

import (
	"bytes"
	"errors"
	"testing"

	"gamescorer/internal/domain"
)

func TestFormatRowQuotesNameAndGenres(t *testing.T) {
	t.Parallel()

	game := domain.ScoredGame{
		ID:                10,
		Name:              `Ann"a`,
		Genres:            "Action, Indie",
		RecentScore:       5,
		AllScore:          6,
		YearScore:         7,
		TotalReviewsScore: 8,
		TotalScore:        26,
	}

	want := `10,"Ann""a","Action, Indie",5,6,7,8,26`
	if got := FormatRow(game); got != want {
		t.Fatalf("FormatRow = %q, want %q", got, want)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	games := []domain.ScoredGame{
		{ID: 1, Name: "A", Genres: "Unknown", TotalScore: 0},
		{ID: 2, Name: "", Genres: "RPG", YearScore: 8, TotalScore: 8},
	}
	if err := WriteCSV(&buf, games); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	want := CSVHeader + "\n" +
		`1,"A","Unknown",0,0,0,0,0` + "\n" +
		`2,"","RPG",0,0,8,0,8` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}
	if buf.String() != CSVHeader+"\n" {
		t.Fatalf("unexpected csv: %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVPropagatesWriteErrors(t *testing.T) {
	t.Parallel()

	if err := WriteCSV(failingWriter{}, []domain.ScoredGame{{ID: 1}}); err == nil {
		t.Fatal("expected write error")
	}
}
