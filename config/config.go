package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ModelConfig holds per-model settings for the payback prediction oracle.
type ModelConfig struct {
	Enabled    bool
	ScoreLimit float64 // minimum score a candidate date must reach
	Version    string  // oracle API version the model is served under
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Oracle (prediction service) configuration
	OracleURL            string
	OracleTimeout        time.Duration
	OracleRequestsPerSec float64

	// Model configuration
	TinyMoneyModel ModelConfig
	GlobalModel    ModelConfig

	// Experiment configuration
	GlobalModelExperimentLimit int64 // max billable global-model assignments, 0 = unlimited

	// Scheduler configuration
	HolidayWarmSchedule string // cron expression for the nightly holiday cache warm

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp", or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int64

	// Environment
	Environment string // "development", "test", or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Oracle with defaults
		OracleURL:            os.Getenv("ORACLE_URL"),
		OracleTimeout:        10 * time.Second,
		OracleRequestsPerSec: 20,

		// Models with defaults
		TinyMoneyModel: ModelConfig{
			Enabled:    os.Getenv("TINY_MONEY_MODEL_ENABLED") != "false",
			ScoreLimit: 0.5,
			Version:    "v2",
		},
		GlobalModel: ModelConfig{
			Enabled:    os.Getenv("GLOBAL_MODEL_ENABLED") == "true",
			ScoreLimit: 0.5,
			Version:    "v2",
		},

		// Scheduler: warm the holiday cache shortly after midnight Pacific
		HolidayWarmSchedule: "15 0 * * *",

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          "advancer",
		OTelExporterType:         os.Getenv("OTEL_EXPORTER_TYPE"),
		OTelOTLPEndpoint:         os.Getenv("OTEL_OTLP_ENDPOINT"),
		OTelExportIntervalMillis: 60000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if timeout := os.Getenv("ORACLE_TIMEOUT_SECONDS"); timeout != "" {
		if parsed, err := strconv.Atoi(timeout); err == nil {
			config.OracleTimeout = time.Duration(parsed) * time.Second
		}
	}
	if rps := os.Getenv("ORACLE_REQUESTS_PER_SEC"); rps != "" {
		if parsed, err := strconv.ParseFloat(rps, 64); err == nil {
			config.OracleRequestsPerSec = parsed
		}
	}
	if limit := os.Getenv("TINY_MONEY_SCORE_LIMIT"); limit != "" {
		if parsed, err := strconv.ParseFloat(limit, 64); err == nil {
			config.TinyMoneyModel.ScoreLimit = parsed
		}
	}
	if limit := os.Getenv("GLOBAL_MODEL_SCORE_LIMIT"); limit != "" {
		if parsed, err := strconv.ParseFloat(limit, 64); err == nil {
			config.GlobalModel.ScoreLimit = parsed
		}
	}
	if version := os.Getenv("ORACLE_VERSION"); version != "" {
		config.TinyMoneyModel.Version = version
		config.GlobalModel.Version = version
	}
	if limit := os.Getenv("GLOBAL_MODEL_EXPERIMENT_LIMIT"); limit != "" {
		if parsed, err := strconv.ParseInt(limit, 10, 64); err == nil {
			config.GlobalModelExperimentLimit = parsed
		}
	}
	if schedule := os.Getenv("HOLIDAY_WARM_SCHEDULE"); schedule != "" {
		config.HolidayWarmSchedule = schedule
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); interval != "" {
		if parsed, err := strconv.ParseInt(interval, 10, 64); err == nil {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}
	if config.OTelExporterType == "" {
		config.OTelExporterType = "console"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.OracleURL == "" {
			return nil, fmt.Errorf("ORACLE_URL is required")
		}
	}

	return config, nil
}
