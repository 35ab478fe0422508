package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

// timestampLayout matches the round-trip format existing databases were written with.
const timestampLayout = "2006-01-02T15:04:05.0000000Z07:00"

var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteRepository persists games and exclusions into a local SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var (
	_ ports.GameRepository = (*SQLiteRepository)(nil)
	_ ports.StatsReader    = (*SQLiteRepository)(nil)
)

// Open connects to (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{db: db, path: path, logger: logger}, nil
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Path returns the database file location.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// LoadExisting returns every exclusion and the last fetch time of every game.
// Rows with an unreadable timestamp stay tracked with the zero time, so they
// count as stale instead of looking unknown.
func (r *SQLiteRepository) LoadExisting(ctx context.Context) (map[int64]domain.ExclusionRecord, map[int64]time.Time, error) {
	exclusions, err := r.loadExclusions(ctx)
	if err != nil {
		return nil, nil, err
	}

	query, args, err := sq.Select("AppId", "LastFetched").From("Games").ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build games query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := make(map[int64]time.Time)
	for rows.Next() {
		var (
			id      int64
			fetched sql.NullString
		)
		if err := rows.Scan(&id, &fetched); err != nil {
			return nil, nil, fmt.Errorf("scan game: %w", err)
		}
		at, ok := parseTimestamp(fetched.String)
		if !ok {
			r.logger.Warn("game has unreadable LastFetched, treating as stale", "app_id", id, "value", fetched.String)
			at = time.Time{}
		}
		games[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("games iteration: %w", err)
	}

	return exclusions, games, nil
}

func (r *SQLiteRepository) loadExclusions(ctx context.Context) (map[int64]domain.ExclusionRecord, error) {
	query, args, err := sq.Select("AppId", "ExcludedDate", "IsNonGame", "NoDetails", "NotEnoughReviews").
		From("ExcludedApps").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build exclusions query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]domain.ExclusionRecord)
	for rows.Next() {
		var (
			id                          int64
			excludedDate                sql.NullString
			nonGame, noDetails, reviews sql.NullInt64
		)
		if err := rows.Scan(&id, &excludedDate, &nonGame, &noDetails, &reviews); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		at, ok := parseTimestamp(excludedDate.String)
		if !ok {
			r.logger.Warn("exclusion has unreadable ExcludedDate, treating as stale", "app_id", id, "value", excludedDate.String)
			at = time.Time{}
		}
		result[id] = domain.ExclusionRecord{
			ID:               id,
			ExcludedDate:     at,
			IsNonGame:        nonGame.Int64 == 1,
			NoDetails:        noDetails.Int64 == 1,
			NotEnoughReviews: reviews.Int64 == 1,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exclusions iteration: %w", err)
	}
	return result, nil
}

// SaveBatch applies a processed batch in one transaction. Order inside the
// transaction: drop graduated exclusions, upsert exclusions, upsert games, drop
// games reclassified as non-games. Any failure rolls the whole batch back.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, batch domain.ProcessedBatch, at time.Time) error {
	if batch.Empty() {
		return nil
	}

	statements, err := batchStatements(batch, at)
	if err != nil {
		return err
	}

	return retryOnBusy(ctx, func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range statements {
				if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
					return fmt.Errorf("%s: %w", stmt.what, err)
				}
			}
			return nil
		})
	})
}

type statement struct {
	what  string
	query string
	args  []any
}

type pendingStatement struct {
	what    string
	builder sq.Sqlizer
}

func batchStatements(batch domain.ProcessedBatch, at time.Time) ([]statement, error) {
	var pending []pendingStatement

	if len(batch.ExclusionsToRemove) > 0 {
		pending = append(pending, pendingStatement{
			what:    "delete exclusions",
			builder: sq.Delete("ExcludedApps").Where(sq.Eq{"AppId": batch.ExclusionsToRemove}),
		})
	}

	if len(batch.ExclusionsToUpsert) > 0 {
		insert := sq.Insert("ExcludedApps").
			Columns("AppId", "IsNonGame", "NoDetails", "NotEnoughReviews", "ExcludedDate")
		for _, ex := range lastByID(batch.ExclusionsToUpsert, func(e domain.ExclusionRecord) int64 { return e.ID }) {
			insert = insert.Values(ex.ID, boolToInt(ex.IsNonGame), boolToInt(ex.NoDetails), boolToInt(ex.NotEnoughReviews), formatTimestamp(at))
		}
		pending = append(pending, pendingStatement{
			what: "upsert exclusions",
			builder: insert.Suffix(`ON CONFLICT(AppId) DO UPDATE SET
				IsNonGame = excluded.IsNonGame,
				NoDetails = excluded.NoDetails,
				NotEnoughReviews = excluded.NotEnoughReviews,
				ExcludedDate = excluded.ExcludedDate`),
		})
	}

	if len(batch.GamesToUpsert) > 0 {
		insert := sq.Insert("Games").
			Columns("AppId", "Name", "ReleaseDate", "Genres", "RecentReviews", "AllReviews",
				"PositiveAllReviews", "NegativeAllReviews", "LastFetched")
		for _, g := range lastByID(batch.GamesToUpsert, func(g domain.GameRecord) int64 { return g.ID }) {
			insert = insert.Values(g.ID, g.Name, formatTimestamp(g.ReleaseDate), g.Genres,
				g.RecentReviewLabel, g.AllReviewLabel, g.PositiveReviewCount, g.NegativeReviewCount,
				formatTimestamp(g.LastFetched))
		}
		pending = append(pending, pendingStatement{
			what: "upsert games",
			builder: insert.Suffix(`ON CONFLICT(AppId) DO UPDATE SET
				Name = excluded.Name,
				ReleaseDate = excluded.ReleaseDate,
				Genres = excluded.Genres,
				RecentReviews = excluded.RecentReviews,
				AllReviews = excluded.AllReviews,
				PositiveAllReviews = excluded.PositiveAllReviews,
				NegativeAllReviews = excluded.NegativeAllReviews,
				LastFetched = excluded.LastFetched`),
		})
	}

	if len(batch.GamesToRemove) > 0 {
		pending = append(pending, pendingStatement{
			what:    "delete games",
			builder: sq.Delete("Games").Where(sq.Eq{"AppId": batch.GamesToRemove}),
		})
	}

	statements := make([]statement, 0, len(pending))
	for _, p := range pending {
		query, args, err := p.builder.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", p.what, err)
		}
		statements = append(statements, statement{what: p.what, query: query, args: args})
	}
	return statements, nil
}

// LoadAllGames returns every stored game ordered by id. Malformed rows are skipped.
func (r *SQLiteRepository) LoadAllGames(ctx context.Context) ([]domain.GameRecord, error) {
	query, args, err := sq.Select("AppId", "Name", "ReleaseDate", "Genres", "RecentReviews", "AllReviews",
		"PositiveAllReviews", "NegativeAllReviews", "LastFetched").
		From("Games").
		OrderBy("AppId").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build games query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []domain.GameRecord
	for rows.Next() {
		var (
			id                                 int64
			name, release, genres, recent, all sql.NullString
			positive, negative                 sql.NullInt64
			fetched                            sql.NullString
		)
		if err := rows.Scan(&id, &name, &release, &genres, &recent, &all, &positive, &negative, &fetched); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}

		releaseDate, ok := parseTimestamp(release.String)
		if !ok {
			r.logger.Warn("skip game with unreadable ReleaseDate", "app_id", id, "value", release.String)
			continue
		}
		lastFetched, ok := parseTimestamp(fetched.String)
		if !ok {
			r.logger.Warn("skip game with unreadable LastFetched", "app_id", id, "value", fetched.String)
			continue
		}

		games = append(games, domain.GameRecord{
			ID:                  id,
			Name:                name.String,
			ReleaseDate:         releaseDate,
			Genres:              genres.String,
			RecentReviewLabel:   recent.String,
			AllReviewLabel:      all.String,
			PositiveReviewCount: int(positive.Int64),
			NegativeReviewCount: int(negative.Int64),
			LastFetched:         lastFetched,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("games iteration: %w", err)
	}

	return games, nil
}

// Stats counts stored games and exclusions per reason.
func (r *SQLiteRepository) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats

	query, args, err := sq.Select("COUNT(*)").From("Games").ToSql()
	if err != nil {
		return stats, fmt.Errorf("build games count: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.Games); err != nil {
		return stats, fmt.Errorf("count games: %w", err)
	}

	query, args, err = sq.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN IsNonGame = 1 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN NoDetails = 1 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN NotEnoughReviews = 1 THEN 1 ELSE 0 END), 0)",
	).From("ExcludedApps").ToSql()
	if err != nil {
		return stats, fmt.Errorf("build exclusion counts: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&stats.Excluded, &stats.NonGame, &stats.NoDetails, &stats.NotEnoughReviews); err != nil {
		return stats, fmt.Errorf("count exclusions: %w", err)
	}

	return stats, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range readLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// lastByID keeps the last record per id, in first-seen order. An upsert statement
// may not touch the same row twice.
func lastByID[T any](records []T, id func(T) int64) []T {
	index := make(map[int64]int, len(records))
	result := make([]T, 0, len(records))
	for _, rec := range records {
		if i, ok := index[id(rec)]; ok {
			result[i] = rec
			continue
		}
		index[id(rec)] = len(result)
		result = append(result, rec)
	}
	return result
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
