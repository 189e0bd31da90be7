// Package config provides configuration management for the race reels worker.
package config

import (
	"fmt"
	"time"
)

// Ledger backends
const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendDynamoDB = "dynamodb"
	LedgerBackendSQLite   = "sqlite"
)

// Storage backends
const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Ledger     LedgerConfig     `mapstructure:"ledger" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	DynamoDB   DynamoDBConfig   `mapstructure:"dynamodb"`
	Source     SourceConfig     `mapstructure:"source" validate:"required"`
	Extractor  ExtractorConfig  `mapstructure:"extractor" validate:"required"`
	Compositor CompositorConfig `mapstructure:"compositor" validate:"required"`
	Scratch    ScratchConfig    `mapstructure:"scratch"`
	Status     StatusConfig     `mapstructure:"status"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// StorageConfig represents the blob store configuration
type StorageConfig struct {
	Backend      string `mapstructure:"backend" validate:"required,oneof=s3 local"`
	Bucket       string `mapstructure:"bucket" validate:"required"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	LocalRoot    string `mapstructure:"local_root"`
	// Static credentials for S3-compatible endpoints; the default chain is used when empty
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	// Per-operation timeout in seconds
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// LedgerConfig selects the sighting and status ledger backend
type LedgerConfig struct {
	Backend string `mapstructure:"backend" validate:"required,ledgerbackend"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// SQLiteConfig represents the local SQLite ledger configuration
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// DynamoDBConfig represents the DynamoDB ledger configuration
type DynamoDBConfig struct {
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint" validate:"omitempty,url"`
	SightingTable string `mapstructure:"sighting_table"`
	EventIndex    string `mapstructure:"event_index"`
	StatusTable   string `mapstructure:"status_table"`
}

// SourceConfig represents the remote document source configuration
type SourceConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"required,url"`
	AccessToken string `mapstructure:"access_token"`
}

// ExtractorConfig represents the OCR service configuration
type ExtractorConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// CompositorConfig represents the video compositor configuration
type CompositorConfig struct {
	FFmpegPath string   `mapstructure:"ffmpeg_path" validate:"required"`
	ExtraArgs  []string `mapstructure:"extra_args"`
}

// ScratchConfig represents local scratch storage configuration
type ScratchConfig struct {
	Root          string `mapstructure:"root"`
	MaxAgeMinutes int    `mapstructure:"max_age_minutes" validate:"gte=0"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// StatusConfig represents ingestion status bookkeeping
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HTTPConfig represents outbound HTTP client configuration
type HTTPConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
}

// ServerConfig represents the HTTP trigger server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig controls AWS X-Ray tracing
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DaemonAddr string `mapstructure:"daemon_addr"`
}

// SecretsConfig controls the AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// StorageTimeout returns the blob store operation timeout
func (c *Config) StorageTimeout() time.Duration {
	if c.Storage.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// ScratchMaxAge returns how long a scratch directory may live before the janitor removes it
func (c *Config) ScratchMaxAge() time.Duration {
	if c.Scratch.MaxAgeMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Scratch.MaxAgeMinutes) * time.Minute
}

// ExtractorCacheTTL returns the extraction result cache TTL; zero disables the cache
func (c *Config) ExtractorCacheTTL() time.Duration {
	return time.Duration(c.Extractor.CacheTTLSeconds) * time.Second
}
