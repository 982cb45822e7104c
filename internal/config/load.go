package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phrazzld/scry-study/internal/calendar"
)

// EnvPrefix is prepended to every configuration key looked up in the
// environment, e.g. SCRY_DATABASE_URL for database.url.
const EnvPrefix = "SCRY"

// setDefaults registers a value for every key so that AutomaticEnv can
// override nested keys during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "scry.db")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cache.due_count_ttl", "1m")
	v.SetDefault("cache.daily_queue_ttl", "5m")
	v.SetDefault("cache.stats_ttl", "10m")

	v.SetDefault("study.max_new", 10)
	v.SetDefault("study.max_review", 50)
	v.SetDefault("study.timezone", "Local")
	v.SetDefault("study.seconds_per_card", 30)
}

// Load reads configuration from a .env file in the working directory (if
// any), the YAML file at configFile (or config.yaml in . or ./config when
// configFile is empty), and SCRY_* environment variables, which take
// precedence. The result is validated before it is returned.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and that the study timezone resolves.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := calendar.LoadLocation(c.Study.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: study.timezone: %w", err)
	}
	return nil
}
