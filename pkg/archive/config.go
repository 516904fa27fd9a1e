package archive

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPageSize is the category listing page size.
	DefaultPageSize = 10
	// DefaultSearchLimit bounds search result size.
	DefaultSearchLimit = 30
	// DefaultRecentLimit bounds the recent-items view.
	DefaultRecentLimit = 20
	// DefaultFavoritesLimit bounds the favorites view.
	DefaultFavoritesLimit = 30
)

// Config controls store and submission behavior.
type Config struct {
	PageSize        int           // Items per category page. Default 10.
	SearchLimit     int           // Max search results. Default 30.
	RecentLimit     int           // Max recent items. Default 20.
	FavoritesLimit  int           // Max favorites listed. Default 30.
	RetentionDays   int           // Days trashed records survive before purge. Default 30.
	BindingTTL      time.Duration // Sticky category binding lifetime. Default 10m.
	DefaultCategory string        // Catch-all category. Default "Other".
	PayloadDir      string        // Directory for retained payload copies; empty disables retention.
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize:        DefaultPageSize,
		SearchLimit:     DefaultSearchLimit,
		RecentLimit:     DefaultRecentLimit,
		FavoritesLimit:  DefaultFavoritesLimit,
		RetentionDays:   30,
		BindingTTL:      10 * time.Minute,
		DefaultCategory: "Other",
	}
}

// ConfigFromEnv loads config from environment variables.
// ARCHIVE_PAGE_SIZE, ARCHIVE_SEARCH_LIMIT, ARCHIVE_RECENT_LIMIT,
// ARCHIVE_FAVORITES_LIMIT, ARCHIVE_RETENTION_DAYS,
// ARCHIVE_BINDING_TTL_MINUTES, ARCHIVE_DEFAULT_CATEGORY, ARCHIVE_PAYLOAD_DIR
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ARCHIVE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}

	if v := os.Getenv("ARCHIVE_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchLimit = n
		}
	}

	if v := os.Getenv("ARCHIVE_RECENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecentLimit = n
		}
	}

	if v := os.Getenv("ARCHIVE_FAVORITES_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FavoritesLimit = n
		}
	}

	if v := os.Getenv("ARCHIVE_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}

	if v := os.Getenv("ARCHIVE_BINDING_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BindingTTL = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("ARCHIVE_DEFAULT_CATEGORY"); v != "" {
		cfg.DefaultCategory = v
	}

	if v := os.Getenv("ARCHIVE_PAYLOAD_DIR"); v != "" {
		cfg.PayloadDir = v
	}

	return cfg
}
