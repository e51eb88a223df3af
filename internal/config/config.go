// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/evfeat/internal/domain/feature"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ConfigureURL is the external tool each feature's configure action opens.
	ConfigureURL string `koanf:"configure_url"`

	// Store selects and configures the remote feature store.
	Store Store `koanf:"store"`

	// Features overrides the built-in feature catalog. Order is display order.
	Features []feature.Definition `koanf:"features"`
}

// Store configures the remote feature store client.
type Store struct {
	// Driver is "airtable" or "memory".
	Driver string `koanf:"driver"`

	// BaseURL is the Airtable API root.
	BaseURL string `koanf:"base_url"`

	// BaseID and APIKey identify the Airtable base and access token.
	BaseID string `koanf:"base_id"`
	APIKey string `koanf:"api_key"`

	// Table holds one row per (event_id, feature_key).
	Table string `koanf:"table"`

	// TimeoutMS bounds each fetch; 0 disables the bound.
	TimeoutMS int `koanf:"timeout_ms"`

	// PageSize is the number of rows per Airtable page (1..100).
	PageSize int `koanf:"page_size"`

	// Seed rows served by the memory driver.
	Seed []SeedRecord `koanf:"seed"`
}

// SeedRecord is one row of the memory driver.
type SeedRecord struct {
	RecordID   string `koanf:"record_id"`
	EventID    int64  `koanf:"event_id"`
	FeatureKey string `koanf:"feature_key"`
	Enabled    bool   `koanf:"enabled"`
}

// Timeout returns the fetch timeout as a duration.
func (s Store) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Records converts the seed rows to feature records.
func (s Store) Records() []feature.Record {
	out := make([]feature.Record, len(s.Seed))
	for i, r := range s.Seed {
		id := r.RecordID
		if id == "" {
			id = fmt.Sprintf("seed%d", i+1)
		}
		out[i] = feature.Record{RecordID: id, EventID: r.EventID, FeatureKey: r.FeatureKey, Enabled: r.Enabled}
	}
	return out
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		Addr:         ":9080",
		ConfigureURL: feature.DefaultConfigureURL,
		Store: Store{
			Driver:    "memory",
			BaseURL:   "https://api.airtable.com",
			Table:     "event_features",
			TimeoutMS: 10_000,
			PageSize:  100,
		},
	}
}

// Catalog builds the feature catalog, falling back to the built-in one when
// no features are configured.
func (c *Config) Catalog() (*feature.Catalog, error) {
	if len(c.Features) == 0 {
		return feature.DefaultCatalog(), nil
	}
	cat, err := feature.NewCatalog(c.Features...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cat, nil
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store.TimeoutMS < 0:
		return fmt.Errorf("%w: store.timeout_ms must not be negative", ErrInvalidConfig)
	case c.Store.PageSize < 1 || c.Store.PageSize > 100:
		return fmt.Errorf("%w: store.page_size must be between 1 and 100", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case "airtable":
		if c.Store.BaseID == "" || c.Store.APIKey == "" {
			return fmt.Errorf("%w: store.base_id and store.api_key are required for the airtable driver", ErrInvalidConfig)
		}
		if c.Store.Table == "" {
			return fmt.Errorf("%w: store.table must not be empty", ErrInvalidConfig)
		}
	case "memory":
		for i, r := range c.Store.Seed {
			if r.EventID < 0 {
				return fmt.Errorf("%w: store.seed[%d] has a negative event_id", ErrInvalidConfig, i)
			}
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if _, err := feature.ConfigureURL(c.ConfigureURL, feature.UnspecifiedEventID, "probe"); err != nil {
		return fmt.Errorf("%w: configure_url: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}
