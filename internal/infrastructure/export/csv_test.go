package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamescorer/internal/domain"
	"gamescorer/internal/scoring"
)

func TestExportWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exporter := NewCSVFile(filepath.Join(dir, "out", "game_scores.csv"))

	path, err := exporter.Export(context.Background(), []domain.ScoredGame{
		{ID: 10, Name: `Ann"a`, Genres: "Action, Indie", RecentScore: 5, AllScore: 6, YearScore: 7, TotalReviewsScore: 8, TotalScore: 26},
	})
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := scoring.CSVHeader + "\n" + `10,"Ann""a","Action, Indie",5,6,7,8,26` + "\n"
	if string(raw) != want {
		t.Fatalf("unexpected export:\n%s", raw)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestExportReplacesExistingFile(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "game_scores.csv")
	if err := os.WriteFile(target, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := NewCSVFile(target).Export(context.Background(), nil); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.Contains(string(raw), "stale") {
		t.Fatalf("expected file to be replaced, got %q", raw)
	}
}

func TestExportHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := filepath.Join(t.TempDir(), "game_scores.csv")
	if _, err := NewCSVFile(target).Export(ctx, nil); err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected no file, stat err=%v", err)
	}
}

func TestExportRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := (&CSVFile{}).Export(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
