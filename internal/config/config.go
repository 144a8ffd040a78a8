// Package config loads the platform configuration from the environment
// with sensible defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for both the importer and the API
// server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Importer ImporterConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ImporterConfig holds the import pipeline settings. The four worker
// counts size the download, parse/merge, aggregation and write pools
// independently because their bottlenecks differ.
type ImporterConfig struct {
	RootURL            string
	DownloadWorkers    int
	MergeWorkers       int
	AggregationWorkers int
	WriteWorkers       int
	BatchSize          int
	DownloadTimeout    time.Duration
	// Schedule enables periodic re-imports when non-zero. Safe because
	// persistence is idempotent under the natural keys.
	Schedule time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from CLIMATE_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("climate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "climate")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "climate")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")

	v.SetDefault("importer.root_url", "https://opendata.dwd.de/climate_environment/CDC/observations_germany/climate/hourly")
	v.SetDefault("importer.download_workers", 4)
	v.SetDefault("importer.merge_workers", 0) // 0 = GOMAXPROCS
	v.SetDefault("importer.aggregation_workers", 0)
	v.SetDefault("importer.write_workers", 4)
	v.SetDefault("importer.batch_size", 1000)
	v.SetDefault("importer.download_timeout", "2m")
	v.SetDefault("importer.schedule", "0")

	v.SetDefault("logging.level", "info")

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetInt("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			Database:        v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db.conn_max_idle_time"),
		},
		Importer: ImporterConfig{
			RootURL:            v.GetString("importer.root_url"),
			DownloadWorkers:    v.GetInt("importer.download_workers"),
			MergeWorkers:       v.GetInt("importer.merge_workers"),
			AggregationWorkers: v.GetInt("importer.aggregation_workers"),
			WriteWorkers:       v.GetInt("importer.write_workers"),
			BatchSize:          v.GetInt("importer.batch_size"),
			DownloadTimeout:    v.GetDuration("importer.download_timeout"),
			Schedule:           v.GetDuration("importer.schedule"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("logging.level"),
		},
	}

	return cfg, nil
}

// Validate checks the configuration for values the platform cannot
// run with.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Importer.RootURL == "" {
		return fmt.Errorf("importer root url must not be empty")
	}
	if c.Importer.DownloadWorkers <= 0 {
		return fmt.Errorf("importer download workers must be positive")
	}
	if c.Importer.BatchSize <= 0 {
		return fmt.Errorf("importer batch size must be positive")
	}
	return nil
}
