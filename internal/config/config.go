package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"akunting/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	DefaultTimezone = "Asia/Jakarta"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend     string
	SQLiteDBPath    string
	SeedClassesFile string

	// Locale
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP change feed; empty URL means the in-process hub
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets summary export
	GoogleSpreadsheetID      string
	GoogleSummarySheet       string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker and view
	ReportInterval  time.Duration
	SummaryCacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:     getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/akunting.db"),
		SeedClassesFile: getEnv("SEED_CLASSES_FILE", ""),

		Timezone: getEnv("TIMEZONE", DefaultTimezone),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "akunting"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "akunting_reports"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheet:       getEnv("GOOGLE_SUMMARY_SHEET", "Ringkasan Mingguan"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ReportInterval:  getEnvDuration("REPORT_INTERVAL", 15*time.Minute),
		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := c.problems()
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker applies Validate plus the settings only the report worker
// needs.
func (c *Config) ValidateWorker() error {
	errors := c.problems()

	if c.DataBackend != BackendSQLite {
		errors = append(errors, fmt.Sprintf("worker requires the sqlite backend, got '%s'", c.DataBackend))
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the report worker")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the report worker")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) problems() []string {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.SeedClassesFile != "" {
		if _, err := os.Stat(c.SeedClassesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed classes file does not exist: %s", c.SeedClassesFile))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.DataBackend == BackendMemory {
			errors = append(errors, "AMQP change feed cannot be used with the memory backend")
		}
	}

	// Google Sheets export is optional; when enabled it needs credentials
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSummarySheet == "" {
			errors = append(errors, "Google summary sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ReportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at least 1 minute", c.ReportInterval))
	} else if c.ReportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at most 24 hours", c.ReportInterval))
	}

	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at least 1 second", c.SummaryCacheTTL))
	}

	return errors
}

// Location resolves Timezone, falling back to UTC when it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggerConfig translates the logging settings for internal/log.
func (c *Config) LoggerConfig(component string) log.Config {
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.LogFormat
	cfg.Component = component
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
