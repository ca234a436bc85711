// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets}

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend   string
	DataDirectory string
	SQLiteDBPath  string

	// AMQP (optional for the API server; the worker needs AMQP or Kafka)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Kafka (optional)
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Google Sheets
	GoogleSpreadsheetID string

	// Sessions
	JWTSecret      string
	TokenTTL       time.Duration
	MasterUsername string
	MasterPassword string

	// Caching and background jobs
	CacheTTL           time.Duration
	RefreshSchedule    string
	LoginRatePerMinute int
	MirrorInterval     time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		DataDirectory: getEnv("DATA_DIRECTORY", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/gestor.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gestor"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_commits"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "gestor.snapshots"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "gestor-worker"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 12*time.Hour),
		MasterUsername: getEnv("MASTER_USERNAME", "admin"),
		MasterPassword: getEnv("MASTER_PASSWORD", "11"),

		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		RefreshSchedule:    getEnv("REFRESH_SCHEDULE", "@every 10m"),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		MirrorInterval:     getEnvDuration("MIRROR_INTERVAL", 5*time.Minute),
	}
}

// Validate checks the settings used by the API server and returns every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.validateMessaging()...)

	if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token ttl %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.MasterUsername != "" && c.MasterPassword == "" {
		errs = append(errs, "MASTER_PASSWORD cannot be empty when MASTER_USERNAME is set")
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}
	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
		}
	}
	if c.LoginRatePerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid login rate %d: must be at least 1", c.LoginRatePerMinute))
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings used by the mirror worker.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.AMQPURL == "" && len(c.KafkaBrokers) == 0 {
		errs = append(errs, "AMQP_URL or KAFKA_BROKERS is required by the worker")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaGroupID == "" {
		errs = append(errs, "KAFKA_GROUP_ID cannot be empty when the worker consumes from Kafka")
	}
	errs = append(errs, c.validateMessaging()...)
	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLITE_DB_PATH is required by the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required by the worker")
	}
	if c.MirrorInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}
	return joinErrors(errs)
}

func (c *Config) validateBackend() []string {
	var errs []string
	if !slices.Contains(validBackends, c.DataBackend) {
		return append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendMemory:
		if c.DataDirectory != "" {
			if info, err := os.Stat(c.DataDirectory); err != nil || !info.IsDir() {
				errs = append(errs, fmt.Sprintf("data directory does not exist: %s", c.DataDirectory))
			}
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
			break
		}
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
	}
	return errs
}

func (c *Config) validateMessaging() []string {
	var errs []string
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, "Kafka topic cannot be empty when KAFKA_BROKERS is provided")
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
