package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gamescorer/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "GAMESCORER_CONFIG"
	databasePathEnv = "GAMESCORER_DB_PATH"
	exportPathEnv   = "GAMESCORER_EXPORT_PATH"
	logLevelEnv     = "GAMESCORER_LOG_LEVEL"
	userAgentEnv    = "GAMESCORER_USER_AGENT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Steam     SteamConfig     `yaml:"steam"`
	Run       RunConfig       `yaml:"run"`
	Export    ExportConfig    `yaml:"export"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig points at the SQLite file holding games and exclusions.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SteamConfig describes the remote endpoints and the retry policy used to reach them.
type SteamConfig struct {
	CatalogURL     string        `yaml:"catalogUrl"`
	DetailsURL     string        `yaml:"detailsUrl"`
	ReviewsURL     string        `yaml:"reviewsUrl"`
	StoreURL       string        `yaml:"storeUrl"`
	UserAgent      string        `yaml:"userAgent"`
	ReviewFilter   string        `yaml:"reviewFilter"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	InitialDelay   time.Duration `yaml:"initialDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	MaxRetries     int           `yaml:"maxRetries"`
	JitterMin      time.Duration `yaml:"jitterMin"`
	JitterMax      time.Duration `yaml:"jitterMax"`
}

// RunConfig mirrors domain.Settings plus the flush cadence.
type RunConfig struct {
	ReviewThreshold                 int  `yaml:"reviewThreshold"`
	DaysIgnored                     int  `yaml:"daysIgnored"`
	AddNew                          bool `yaml:"addNew"`
	UpdateExisting                  bool `yaml:"updateExisting"`
	UpdateExcludedByAppDetails      bool `yaml:"updateExcludedByAppDetails"`
	UpdateExcludedByReviewThreshold bool `yaml:"updateExcludedByReviewThreshold"`
	CreateExport                    bool `yaml:"createExport"`
	FlushEvery                      int  `yaml:"flushEvery"`
}

// Settings converts the run section into pipeline settings.
func (r RunConfig) Settings() domain.Settings {
	return domain.Settings{
		ReviewThreshold:                 r.ReviewThreshold,
		DaysIgnored:                     r.DaysIgnored,
		AddNew:                          r.AddNew,
		UpdateExisting:                  r.UpdateExisting,
		UpdateExcludedByAppDetails:      r.UpdateExcludedByAppDetails,
		UpdateExcludedByReviewThreshold: r.UpdateExcludedByReviewThreshold,
		CreateExport:                    r.CreateExport,
	}
}

// ExportConfig sets where the scored CSV lands.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when recurring runs fire.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path wins over the GAMESCORER_CONFIG variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg fileConfig
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// fileConfig uses pointers for run values so an explicit false or 0 in the file
// can be told apart from an omitted key.
type fileConfig struct {
	Database  DatabaseConfig  `yaml:"database"`
	Steam     SteamConfig     `yaml:"steam"`
	Run       fileRunConfig   `yaml:"run"`
	Export    ExportConfig    `yaml:"export"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type fileRunConfig struct {
	ReviewThreshold                 *int  `yaml:"reviewThreshold"`
	DaysIgnored                     *int  `yaml:"daysIgnored"`
	AddNew                          *bool `yaml:"addNew"`
	UpdateExisting                  *bool `yaml:"updateExisting"`
	UpdateExcludedByAppDetails      *bool `yaml:"updateExcludedByAppDetails"`
	UpdateExcludedByReviewThreshold *bool `yaml:"updateExcludedByReviewThreshold"`
	CreateExport                    *bool `yaml:"createExport"`
	FlushEvery                      *int  `yaml:"flushEvery"`
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(exportPathEnv); v != "" {
		c.Export.Path = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(userAgentEnv); v != "" {
		c.Steam.UserAgent = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base Config, override fileConfig) Config {
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	base.Steam = mergeSteam(base.Steam, override.Steam)
	base.Run = mergeRun(base.Run, override.Run)

	if override.Export.Path != "" {
		base.Export.Path = override.Export.Path
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func mergeSteam(base, override SteamConfig) SteamConfig {
	if override.CatalogURL != "" {
		base.CatalogURL = override.CatalogURL
	}
	if override.DetailsURL != "" {
		base.DetailsURL = override.DetailsURL
	}
	if override.ReviewsURL != "" {
		base.ReviewsURL = override.ReviewsURL
	}
	if override.StoreURL != "" {
		base.StoreURL = override.StoreURL
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	if override.ReviewFilter != "" {
		base.ReviewFilter = strings.TrimSpace(override.ReviewFilter)
	}
	if override.RequestTimeout != 0 {
		base.RequestTimeout = override.RequestTimeout
	}
	if override.InitialDelay != 0 {
		base.InitialDelay = override.InitialDelay
	}
	if override.MaxDelay != 0 {
		base.MaxDelay = override.MaxDelay
	}
	if override.MaxRetries != 0 {
		base.MaxRetries = override.MaxRetries
	}
	if override.JitterMin != 0 {
		base.JitterMin = override.JitterMin
	}
	if override.JitterMax != 0 {
		base.JitterMax = override.JitterMax
	}
	return base
}

func mergeRun(base RunConfig, override fileRunConfig) RunConfig {
	if override.ReviewThreshold != nil {
		base.ReviewThreshold = *override.ReviewThreshold
	}
	if override.DaysIgnored != nil {
		base.DaysIgnored = *override.DaysIgnored
	}
	if override.AddNew != nil {
		base.AddNew = *override.AddNew
	}
	if override.UpdateExisting != nil {
		base.UpdateExisting = *override.UpdateExisting
	}
	if override.UpdateExcludedByAppDetails != nil {
		base.UpdateExcludedByAppDetails = *override.UpdateExcludedByAppDetails
	}
	if override.UpdateExcludedByReviewThreshold != nil {
		base.UpdateExcludedByReviewThreshold = *override.UpdateExcludedByReviewThreshold
	}
	if override.CreateExport != nil {
		base.CreateExport = *override.CreateExport
	}
	if override.FlushEvery != nil {
		base.FlushEvery = *override.FlushEvery
	}
	return base
}

// Default returns the built-in configuration without file or env input.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: "steam_data.db"},
		Steam: SteamConfig{
			CatalogURL:     "https://api.steampowered.com/ISteamApps/GetAppList/v2/",
			DetailsURL:     "https://store.steampowered.com/api/appdetails",
			ReviewsURL:     "https://store.steampowered.com/appreviews",
			StoreURL:       "https://store.steampowered.com/app",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			ReviewFilter:   "all",
			RequestTimeout: 30 * time.Second,
			InitialDelay:   5 * time.Second,
			MaxDelay:       20 * time.Second,
			MaxRetries:     100,
			JitterMin:      500 * time.Millisecond,
			JitterMax:      1000 * time.Millisecond,
		},
		Run: RunConfig{
			ReviewThreshold: 100,
			DaysIgnored:     7,
			AddNew:          true,
			CreateExport:    true,
			FlushEvery:      10,
		},
		Export:    ExportConfig{Path: "game_scores.csv"},
		Scheduler: SchedulerConfig{CronExpression: "0 4 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info"},
	}
}
