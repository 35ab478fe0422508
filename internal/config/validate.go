package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateSteam(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must be set")
	}
	if c.Run.CreateExport && strings.TrimSpace(c.Export.Path) == "" {
		return errors.New("export.path must be set when run.createExport is true")
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.ReviewThreshold < 0 {
		return fmt.Errorf("run.reviewThreshold must be >= 0, got %d", c.Run.ReviewThreshold)
	}
	if c.Run.DaysIgnored < 0 {
		return fmt.Errorf("run.daysIgnored must be >= 0, got %d", c.Run.DaysIgnored)
	}
	if c.Run.FlushEvery < 1 {
		return fmt.Errorf("run.flushEvery must be >= 1, got %d", c.Run.FlushEvery)
	}
	return nil
}

func (c *Config) validateSteam() error {
	s := c.Steam
	urls := map[string]string{
		"steam.catalogUrl": s.CatalogURL,
		"steam.detailsUrl": s.DetailsURL,
		"steam.reviewsUrl": s.ReviewsURL,
		"steam.storeUrl":   s.StoreURL,
	}
	for key, value := range urls {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if s.MaxRetries < 0 {
		return errors.New("steam.maxRetries must be >= 0")
	}
	if s.InitialDelay <= 0 {
		return errors.New("steam.initialDelay must be positive")
	}
	if s.MaxDelay < s.InitialDelay {
		return errors.New("steam.maxDelay must be >= steam.initialDelay")
	}
	if s.JitterMin < 0 || s.JitterMax < s.JitterMin {
		return errors.New("steam jitter window must satisfy 0 <= jitterMin <= jitterMax")
	}
	if s.RequestTimeout <= 0 {
		return errors.New("steam.requestTimeout must be positive")
	}
	return nil
}
