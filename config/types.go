package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Schedule      ScheduleConfig      `mapstructure:"schedule"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Supervision   SupervisionConfig   `mapstructure:"supervision"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	S3            S3Config            `mapstructure:"s3"`
	Nats          NatsConfig          `mapstructure:"nats"`
}

type NatsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type DatabaseConfig struct {
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	// ReportTTLMinutes bounds how long a cached quarter forecast lives.
	ReportTTLMinutes int `mapstructure:"report_ttl_minutes"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	Domain         string          `mapstructure:"domain"`
	Databases      []string        `mapstructure:"databases"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

// StorageConfig selects where the appointment collection lives.
type StorageConfig struct {
	Driver  string `mapstructure:"driver"` // postgres, csv, memory
	CSVPath string `mapstructure:"csv_path"`
}

type ScheduleConfig struct {
	// IntakeCount is the default number of Sprechstunden generated on onboarding.
	IntakeCount int `mapstructure:"intake_count"`
	// Totals overrides the per-type session totals, keyed by session type.
	Totals map[string]int `mapstructure:"totals"`
}

type BillingConfig struct {
	// Practice is the default practice type for forecasts: intern or extern.
	Practice          string             `mapstructure:"practice"`
	Fees              map[string]float64 `mapstructure:"fees"`
	ExternalDeduction float64            `mapstructure:"external_deduction"`
	EstimateFactor    float64            `mapstructure:"estimate_factor"`
}

type SupervisionConfig struct {
	TotalRatio      float64 `mapstructure:"total_ratio"`
	IndividualRatio float64 `mapstructure:"individual_ratio"`
	GroupRatio      float64 `mapstructure:"group_ratio"`
}

type ProgressConfig struct {
	Goal       int `mapstructure:"goal"`
	WindowDays int `mapstructure:"window_days"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/ambulanz.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PresignTTLSec   int    `mapstructure:"presign_ttl_sec"`
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverCSV      = "csv"
	StorageDriverMemory   = "memory"
)

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage.Driver) {
	case StorageDriverPostgres, StorageDriverMemory:
	case StorageDriverCSV:
		if c.Storage.CSVPath == "" {
			errs = append(errs, errors.New("storage.csv_path is required for the csv driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want postgres, csv or memory", c.Storage.Driver))
	}

	if c.Schedule.IntakeCount < 1 || c.Schedule.IntakeCount > 10 {
		errs = append(errs, fmt.Errorf("schedule.intake_count %d out of range 1..10", c.Schedule.IntakeCount))
	}
	for name, total := range c.Schedule.Totals {
		if total < 1 {
			errs = append(errs, fmt.Errorf("schedule.totals.%s must be positive", name))
		}
	}

	switch c.Billing.Practice {
	case "intern", "extern":
	default:
		errs = append(errs, fmt.Errorf("billing.practice %q: want intern or extern", c.Billing.Practice))
	}
	if c.Billing.EstimateFactor <= 0 {
		errs = append(errs, errors.New("billing.estimate_factor must be positive"))
	}

	if c.Progress.Goal < 1 {
		errs = append(errs, errors.New("progress.goal must be positive"))
	}
	if c.Progress.WindowDays < 1 {
		errs = append(errs, errors.New("progress.window_days must be positive"))
	}

	return errors.Join(errs...)
}
