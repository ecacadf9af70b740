package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Lock      LockConfig      `mapstructure:"lock"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// FetchConfig holds feed-ingestion settings
type FetchConfig struct {
	GroupSize     int           `mapstructure:"group_size"`     // sources per orchestrator group
	FeedTimeout   time.Duration `mapstructure:"feed_timeout"`   // per-feed network timeout
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"` // per-page image scrape timeout
	ScrapeImages  bool          `mapstructure:"scrape_images"`  // disable to skip image backfill
}

// LockConfig holds ingestion-lock settings
type LockConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // how long a holder may keep the lock
}

// RetentionConfig holds article retention settings
type RetentionConfig struct {
	Days         int `mapstructure:"days"`          // delete articles older than this
	ArticleFloor int `mapstructure:"article_floor"` // never trim the corpus below this
}

// SchedulerConfig holds cron settings for the background daemon
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	FetchCron   string `mapstructure:"fetch_cron"`
	CleanupCron string `mapstructure:"cleanup_cron"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".techisy"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("TECHISY")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("server.port", "TECHISY_SERVER_PORT")
	v.BindEnv("database.dsn", "TECHISY_DATABASE_DSN")
	v.BindEnv("fetch.group_size", "TECHISY_FETCH_GROUP_SIZE")
	v.BindEnv("lock.ttl", "TECHISY_LOCK_TTL")
	v.BindEnv("retention.days", "TECHISY_RETENTION_DAYS")
	v.BindEnv("retention.article_floor", "TECHISY_RETENTION_ARTICLE_FLOOR")
	v.BindEnv("scheduler.enabled", "TECHISY_SCHEDULER_ENABLED")
	v.BindEnv("scheduler.fetch_cron", "TECHISY_SCHEDULER_FETCH_CRON")
	v.BindEnv("logging.level", "TECHISY_LOGGING_LEVEL")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/techisy.db")

	// Fetch defaults
	v.SetDefault("fetch.group_size", 3)
	v.SetDefault("fetch.feed_timeout", "5s")
	v.SetDefault("fetch.scrape_timeout", "5s")
	v.SetDefault("fetch.scrape_images", true)

	// Lock defaults
	v.SetDefault("lock.ttl", "5m")

	// Retention defaults
	v.SetDefault("retention.days", 7)
	v.SetDefault("retention.article_floor", 100)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.fetch_cron", "*/30 * * * *") // Every 30 minutes
	v.SetDefault("scheduler.cleanup_cron", "0 3 * * *")  // 3am daily

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Fetch.GroupSize < 1 {
		return fmt.Errorf("fetch.group_size must be at least 1")
	}
	if c.Retention.Days < 1 {
		return fmt.Errorf("retention.days must be at least 1")
	}
	return nil
}
