package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gamescorer/internal/config"
	"gamescorer/internal/domain"
	"gamescorer/internal/infrastructure/lock"
	"gamescorer/internal/logging"
	"gamescorer/internal/infrastructure/steam"
	"gamescorer/internal/scoring"
)

const storePage = `<html><body><div id="userReviews">
<div class="user_reviews_summary_row" data-tooltip-html="95% of the 120 user reviews in the last 30 days are positive.">
  <div class="subtitle column">Recent Reviews:</div>
  <span class="game_review_summary positive">Very Positive</span>
</div>
<div class="user_reviews_summary_row" data-tooltip-html="90% of the 1,000 user reviews for this game are positive.">
  <div class="subtitle column all">All Reviews:</div>
  <span class="game_review_summary positive">Very Positive</span>
</div>
</div></body></html>`

func newFakeSteam(t *testing.T) *httptest.Server {
	t.Helper()

	details := map[string]string{
		"10": `{"10":{"success":true,"data":{"type":"game","name":"Alpha","steam_appid":10,"release_date":{"date":"1 Jan, 2024"},"genres":[{"id":"1","description":"Action"}]}}}`,
		"20": `{"20":{"success":true,"data":{"type":"dlc","name":"Alpha Soundtrack","steam_appid":20,"release_date":{"date":"1 Jan, 2024"}}}}`,
		"30": `{"30":{"success":true,"data":{"type":"game","name":"Gamma","steam_appid":30,"release_date":{"date":"5 Mar, 2023"}}}}`,
	}
	reviews := map[string]string{
		"10": `{"success":1,"query_summary":{"total_positive":900,"total_negative":100}}`,
		"30": `{"success":1,"query_summary":{"total_positive":3,"total_negative":1}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"applist":{"apps":[{"appid":10,"name":"Alpha"},{"appid":20,"name":"Alpha Soundtrack"},{"appid":30,"name":"Gamma"},{"appid":10,"name":"Alpha"}]}}`)
	})
	mux.HandleFunc("/api/appdetails", func(w http.ResponseWriter, r *http.Request) {
		body, ok := details[r.URL.Query().Get("appids")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/appreviews/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := reviews[strings.TrimPrefix(r.URL.Path, "/appreviews/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/app/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, storePage)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, base string) config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "steam_data.db")
	cfg.Export.Path = filepath.Join(dir, "out", "game_scores.csv")
	cfg.Steam.CatalogURL = base + "/catalog"
	cfg.Steam.DetailsURL = base + "/api/appdetails"
	cfg.Steam.ReviewsURL = base + "/appreviews"
	cfg.Steam.StoreURL = base + "/app"
	cfg.Steam.MaxRetries = 1
	cfg.Steam.InitialDelay = time.Millisecond
	cfg.Steam.MaxDelay = time.Millisecond
	cfg.Steam.JitterMin = 0
	cfg.Steam.JitterMax = 0
	return cfg
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestApp(t *testing.T, cfg config.Config, out *bytes.Buffer) *Application {
	t.Helper()

	now := func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }
	application, err := New(cfg, logging.Discard(), out,
		WithSteamOptions(steam.WithSleeper(noSleep)),
		WithClock(now),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(application.Close)
	return application
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Database.Path = ""
	if _, err := New(cfg, logging.Discard(), nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunProcessesCatalogAndExports(t *testing.T) {
	t.Parallel()

	srv := newFakeSteam(t)
	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer
	application := newTestApp(t, cfg, &out)

	settings := domain.Settings{ReviewThreshold: 100, DaysIgnored: 7, AddNew: true, CreateExport: true}
	summary, err := application.Run(context.Background(), settings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.CatalogSize != 3 || summary.Processed != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.NonGame != 1 || summary.NotEnoughReviews != 1 || summary.GamesSaved != 1 {
		t.Fatalf("unexpected classification: %+v", summary)
	}
	if summary.Exported != 1 || summary.ExportPath == "" {
		t.Fatalf("expected one exported row, got %+v", summary)
	}

	raw, err := os.ReadFile(summary.ExportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || lines[0] != scoring.CSVHeader || !strings.HasPrefix(lines[1], `10,"Alpha","Action",`) {
		t.Fatalf("unexpected export:\n%s", raw)
	}

	stats, err := application.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := domain.StoreStats{Games: 1, Excluded: 2, NonGame: 1, NotEnoughReviews: 1}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	top, err := application.Top(context.Background(), 5)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 || top[0].ID != 10 || top[0].AllScore == 0 {
		t.Fatalf("unexpected top list: %+v", top)
	}

	application.Close()
	if !strings.Contains(out.String(), "[ADDED] Alpha (10)") {
		t.Fatalf("expected console progress, got:\n%s", out.String())
	}
}

func TestSecondRunSkipsFreshEntries(t *testing.T) {
	t.Parallel()

	srv := newFakeSteam(t)
	cfg := testConfig(t, srv.URL)
	var out bytes.Buffer
	application := newTestApp(t, cfg, &out)

	settings := domain.Settings{ReviewThreshold: 100, DaysIgnored: 7, AddNew: true, UpdateExisting: true}
	if _, err := application.Run(context.Background(), settings); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := application.Run(context.Background(), settings)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Selected != 0 || summary.Processed != 0 {
		t.Fatalf("expected nothing to process, got %+v", summary)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	t.Parallel()

	srv := newFakeSteam(t)
	cfg := testConfig(t, srv.URL)
	application := newTestApp(t, cfg, &bytes.Buffer{})

	held := lock.ForDatabase(cfg.Database.Path)
	if err := held.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	_, err := application.Run(context.Background(), domain.Settings{AddNew: true})
	if !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestExportWithoutProcessing(t *testing.T) {
	t.Parallel()

	srv := newFakeSteam(t)
	cfg := testConfig(t, srv.URL)
	application := newTestApp(t, cfg, &bytes.Buffer{})

	path, count, err := application.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty export, got %d rows", count)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.TrimSpace(string(raw)) != scoring.CSVHeader {
		t.Fatalf("expected header only, got %q", raw)
	}
}
