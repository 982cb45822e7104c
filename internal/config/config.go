package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Study    StudyConfig    `mapstructure:"study"`
}

// DatabaseConfig selects and configures the card store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" for the on-device store or "postgres" for a server.
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	// URL is a file path or ":memory:" for sqlite, a connection URL for postgres.
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	// AutoMigrate applies pending migrations whenever the store is opened.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// CacheConfig holds the maximum ages tolerated for cached aggregates.
type CacheConfig struct {
	DueCountTTL   time.Duration `mapstructure:"due_count_ttl"   validate:"gte=0"`
	DailyQueueTTL time.Duration `mapstructure:"daily_queue_ttl" validate:"gte=0"`
	StatsTTL      time.Duration `mapstructure:"stats_ttl"       validate:"gte=0"`
}

// StudyConfig holds session limits and the learner's calendar.
type StudyConfig struct {
	MaxNew    int `mapstructure:"max_new"    validate:"gte=0"`
	MaxReview int `mapstructure:"max_review" validate:"gte=0"`
	// Timezone decides where calendar days begin for streaks and daily
	// queues: an IANA name, "UTC", "Local" or an offset such as "UTC+3".
	Timezone       string `mapstructure:"timezone"         validate:"required"`
	SecondsPerCard int    `mapstructure:"seconds_per_card" validate:"gt=0"`
}
