//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesync.
// Configuration is loaded from config files and CLI flags. Connection strings
// and API keys left empty here are resolved later by the secrets provider.
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Supported source drivers.
const (
	DriverPostgres  = "pgx"
	DriverSnowflake = "snowflake"
)

// Config holds all configuration for pgedge-salesync.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `mapstructure:"log_format"`

	// Source holds the upstream SAP raw data store settings.
	Source SourceConfig `mapstructure:"source"`

	// Warehouse holds the analytical (processed) store settings.
	Warehouse WarehouseConfig `mapstructure:"warehouse"`

	// Search holds the search index service settings.
	Search SearchConfig `mapstructure:"search"`

	// Insights holds insight generation settings.
	Insights InsightsConfig `mapstructure:"insights"`

	// Server holds the HTTP server settings for the serve command.
	Server ServerConfig `mapstructure:"server"`

	// Schedule holds cron expressions for the serve command.
	Schedule ScheduleConfig `mapstructure:"schedule"`

	// Secrets controls credential lookup.
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// SourceConfig describes where raw SAP ECC and BW rows are read from.
type SourceConfig struct {
	// Driver is the database/sql driver: pgx or snowflake.
	Driver string `mapstructure:"driver"`

	// Connection is the DSN for the raw data store.
	Connection string `mapstructure:"connection"`

	// WindowDays is the trailing window of processed_at read per run.
	WindowDays int `mapstructure:"window_days"`
}

// WarehouseConfig describes the analytical PostgreSQL database.
type WarehouseConfig struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// MaxConns caps the connection pool size.
	MaxConns int `mapstructure:"max_conns"`
}

// SearchConfig describes the search index service.
type SearchConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	IndexName  string `mapstructure:"index_name"`
	APIVersion string `mapstructure:"api_version"`

	// BatchSize is the number of documents per upload request.
	BatchSize int `mapstructure:"batch_size"`

	// SalesDays limits indexed sales to those created in the last N days.
	SalesDays int `mapstructure:"sales_days"`
}

// InsightsConfig holds insight generation settings.
type InsightsConfig struct {
	// Days is the trailing window of sales analysed.
	Days int `mapstructure:"days"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ScheduleConfig holds cron expressions (with a seconds field) per job.
// An empty expression disables that job's timer.
type ScheduleConfig struct {
	ETL      string `mapstructure:"etl"`
	Index    string `mapstructure:"index"`
	Insights string `mapstructure:"insights"`
}

// SecretsConfig controls the credential vault fallback.
type SecretsConfig struct {
	// UseKeyring enables the OS keyring as the last lookup step.
	UseKeyring bool `mapstructure:"use_keyring"`

	// KeyringService is the keyring service name secrets are stored under.
	KeyringService string `mapstructure:"keyring_service"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Source: SourceConfig{
			Driver:     DriverPostgres,
			WindowDays: 7,
		},
		Warehouse: WarehouseConfig{
			MaxConns: 10,
		},
		Search: SearchConfig{
			IndexName:  "sap-data-index",
			APIVersion: "2023-11-01",
			BatchSize:  1000,
			SalesDays:  30,
		},
		Insights: InsightsConfig{
			Days: 30,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Schedule: ScheduleConfig{
			ETL:      "0 0 2 * * *",  // daily 02:00
			Index:    "0 30 2 * * *", // daily 02:30
			Insights: "0 0 3 * * *",  // daily 03:00
		},
		Secrets: SecretsConfig{
			UseKeyring:     true,
			KeyringService: "pgedge-salesync",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesync.yaml
// 3. ~/.config/pgedge-salesync/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-salesync")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesync"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'console' or 'json'")
	}
	return nil
}

// ValidateETL checks configuration required to run the ETL job.
func (c *Config) ValidateETL() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Source.Driver != DriverPostgres && c.Source.Driver != DriverSnowflake {
		return fmt.Errorf("source.driver must be '%s' or '%s'", DriverPostgres, DriverSnowflake)
	}
	if c.Source.WindowDays < 1 {
		return fmt.Errorf("source.window_days must be at least 1")
	}
	if c.Warehouse.MaxConns < 1 {
		return fmt.Errorf("warehouse.max_conns must be at least 1")
	}
	return nil
}

// ValidateIndex checks configuration required to run the index job.
func (c *Config) ValidateIndex() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Search.IndexName == "" {
		return fmt.Errorf("search.index_name is required")
	}
	if c.Search.BatchSize < 1 {
		return fmt.Errorf("search.batch_size must be at least 1")
	}
	if c.Search.SalesDays < 1 {
		return fmt.Errorf("search.sales_days must be at least 1")
	}
	return nil
}

// ValidateInsights checks configuration required to run the insights job.
func (c *Config) ValidateInsights() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Insights.Days < 1 {
		return fmt.Errorf("insights.days must be at least 1")
	}
	return nil
}

// ValidateServe checks configuration required by the serve command, which
// hosts all three jobs.
func (c *Config) ValidateServe() error {
	if err := c.ValidateETL(); err != nil {
		return err
	}
	if err := c.ValidateIndex(); err != nil {
		return err
	}
	if err := c.ValidateInsights(); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"etl":      c.Schedule.ETL,
		"index":    c.Schedule.Index,
		"insights": c.Schedule.Insights,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s is invalid: %w", name, err)
		}
	}
	return nil
}
