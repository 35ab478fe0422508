package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"gamescorer/internal/config"
	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

const (
	// ageGateCookie lets store pages of age-restricted apps render their review rows.
	ageGateCookie = "birthtime"
	ageGateValue  = "283993201"

	maxErrorBody = 1024
)

// Client implements ports.CatalogFetcher over the Steam web API and store pages.
// A Client owns its backoff state; build a fresh one per pipeline run.
type Client struct {
	catalogURL string
	detailsURL string
	reviewsURL string
	storeURL   string
	userAgent  string

	httpClient *http.Client
	backoff    *Backoff
	maxRetries int
	sleep      Sleeper
	observer   ports.Observer
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.CatalogFetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The age-gate cookie jar is
// attached when the supplied client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}
		clone := *client
		if clone.Jar == nil && c.httpClient != nil {
			clone.Jar = c.httpClient.Jar
		}
		c.httpClient = &clone
	}
}

// WithSleeper replaces the backoff wait (tests use it to avoid real sleeps).
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithBackoff replaces the backoff state.
func WithBackoff(backoff *Backoff) Option {
	return func(c *Client) {
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Steam client from configuration.
func New(cfg config.SteamConfig, observer ports.Observer, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.CatalogURL) == "" || strings.TrimSpace(cfg.DetailsURL) == "" ||
		strings.TrimSpace(cfg.ReviewsURL) == "" || strings.TrimSpace(cfg.StoreURL) == "" {
		return nil, errors.New("steam endpoints must all be configured")
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	storeURL, err := url.Parse(strings.TrimRight(cfg.StoreURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	jar.SetCookies(storeURL, []*http.Cookie{{Name: ageGateCookie, Value: ageGateValue, Path: "/"}})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		catalogURL: strings.TrimSpace(cfg.CatalogURL),
		detailsURL: strings.TrimSpace(cfg.DetailsURL),
		reviewsURL: strings.TrimRight(strings.TrimSpace(cfg.ReviewsURL), "/"),
		storeURL:   strings.TrimRight(strings.TrimSpace(cfg.StoreURL), "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		backoff:    NewBackoff(cfg.InitialDelay, cfg.MaxDelay, cfg.JitterMin, cfg.JitterMax),
		maxRetries: cfg.MaxRetries,
		sleep:      sleepContext,
		observer:   observer,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchCatalog downloads the full app list. Unlike the per-app calls, an
// unavailable catalog is an error: a run cannot proceed without it.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	err := c.withRetry(ctx, "catalog", func(ctx context.Context, attempt int) error {
		body, err := c.get(ctx, c.catalogURL)
		if err != nil {
			return err
		}
		entries, err = decodeCatalog(body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return entries, nil
}

// FetchDetails returns the detail record for id, or nil when it is unavailable.
func (c *Client) FetchDetails(ctx context.Context, id int64) (*domain.AppDetails, error) {
	endpoint, err := withQuery(c.detailsURL, url.Values{"appids": {strconv.FormatInt(id, 10)}})
	if err != nil {
		return nil, err
	}

	var details *domain.AppDetails
	err = c.withRetry(ctx, fmt.Sprintf("AppID %d details fetch", id), func(ctx context.Context, attempt int) error {
		c.infof("Fetching details for AppID %d (attempt %d)", id, attempt)
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		parsed, err := decodeDetails(body, id)
		if err != nil {
			return err
		}
		if parsed == nil {
			c.notify(domain.LevelWarning, "WARNING", fmt.Sprintf("Empty response for AppID %d", id))
		}
		details = parsed
		return nil
	})
	if err := absentOnUnavailable(err); err != nil {
		return nil, err
	}
	return details, nil
}

// FetchReviewCounts returns aggregate review totals; zero-filled when unavailable.
func (c *Client) FetchReviewCounts(ctx context.Context, id int64, filter string) (domain.ReviewCounts, error) {
	endpoint, err := withQuery(fmt.Sprintf("%s/%d", c.reviewsURL, id), url.Values{
		"json":         {"1"},
		"filter":       {filter},
		"num_per_page": {"0"},
	})
	if err != nil {
		return domain.ReviewCounts{}, err
	}

	var counts domain.ReviewCounts
	err = c.withRetry(ctx, fmt.Sprintf("AppID %d %s reviews", id, filter), func(ctx context.Context, attempt int) error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		counts, err = decodeReviewCounts(body)
		return err
	})
	if err := absentOnUnavailable(err); err != nil {
		return domain.ReviewCounts{}, err
	}
	return counts, nil
}

// FetchStorePage returns the store page HTML, or an empty string when unavailable.
func (c *Client) FetchStorePage(ctx context.Context, id int64) (string, error) {
	endpoint := fmt.Sprintf("%s/%d", c.storeURL, id)

	var page string
	err := c.withRetry(ctx, fmt.Sprintf("store page for %d", id), func(ctx context.Context, attempt int) error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		page = string(body)
		return nil
	})
	if err := absentOnUnavailable(err); err != nil {
		return "", err
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		c.logger.Debug("request failed", "url", endpoint, "latency", latency, "error", err)
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request done", "url", endpoint, "status", resp.StatusCode, "latency", latency)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

type appListResponse struct {
	AppList struct {
		Apps []catalogApp `json:"apps"`
	} `json:"applist"`
}

type catalogApp struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

func decodeCatalog(body []byte) ([]domain.CatalogEntry, error) {
	var apps []catalogApp
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &apps); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
	} else {
		var payload appListResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		apps = payload.AppList.Apps
	}

	entries := make([]domain.CatalogEntry, 0, len(apps))
	for _, app := range apps {
		entries = append(entries, domain.CatalogEntry{ID: app.AppID, Name: app.Name})
	}
	return entries, nil
}

type appDetailsEnvelope struct {
	Success bool            `json:"success"`
	Data    *appDetailsData `json:"data"`
}

type appDetailsData struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	SteamAppID  int64  `json:"steam_appid"`
	ReleaseDate *struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Genres []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	} `json:"genres"`
}

// decodeDetails returns nil details (and no error) when the payload carries no
// usable data for id.
func decodeDetails(body []byte, id int64) (*domain.AppDetails, error) {
	var payload map[string]appDetailsEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}

	envelope, ok := payload[strconv.FormatInt(id, 10)]
	if !ok || !envelope.Success || envelope.Data == nil {
		return nil, nil
	}

	data := envelope.Data
	details := &domain.AppDetails{
		CanonicalID: data.SteamAppID,
		Type:        data.Type,
		Name:        data.Name,
	}
	if details.CanonicalID == 0 {
		details.CanonicalID = id
	}
	if data.ReleaseDate != nil {
		details.ReleaseDate = data.ReleaseDate.Date
	}
	for _, genre := range data.Genres {
		if desc := strings.TrimSpace(genre.Description); desc != "" {
			details.Genres = append(details.Genres, desc)
		}
	}
	return details, nil
}

type reviewResponse struct {
	QuerySummary *struct {
		TotalPositive int `json:"total_positive"`
		TotalNegative int `json:"total_negative"`
	} `json:"query_summary"`
}

func decodeReviewCounts(body []byte) (domain.ReviewCounts, error) {
	var payload reviewResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ReviewCounts{}, fmt.Errorf("decode reviews: %w", err)
	}
	if payload.QuerySummary == nil {
		return domain.ReviewCounts{}, nil
	}
	return domain.ReviewCounts{
		Positive: max(payload.QuerySummary.TotalPositive, 0),
		Negative: max(payload.QuerySummary.TotalNegative, 0),
	}, nil
}

func withQuery(base string, params url.Values) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", base, err)
	}
	query := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			query.Set(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) notify(level domain.EventLevel, tag, message string) {
	if c.observer == nil {
		return
	}
	c.observer.Notify(domain.Event{Time: c.now(), Level: level, Tag: tag, Message: message})
}

func (c *Client) infof(format string, args ...any) {
	c.notify(domain.LevelInfo, "API", fmt.Sprintf(format, args...))
}

func (c *Client) warnf(format string, args ...any) {
	c.notify(domain.LevelWarning, "WARNING", fmt.Sprintf(format, args...))
}

func (c *Client) errorf(format string, args ...any) {
	c.notify(domain.LevelError, "ERROR", fmt.Sprintf(format, args...))
}
