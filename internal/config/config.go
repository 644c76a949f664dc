// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/sentinel-income/internal/modules/archive"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/aristath/sentinel-income/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the projections database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// AllowedOrigins are the browser origins allowed by CORS and the websocket stream,
	// e.g. "http://localhost:*". Empty allows same-origin requests only.
	AllowedOrigins []string

	Policy           projection.Policy
	CashSweepSymbols []string
	Defaults         projection.Request // used when a request leaves a parameter out

	RetentionDays   int    // 0 keeps runs forever
	CleanupSchedule string // six-field cron spec, seconds first

	Archive archive.Config
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PROJECTOR_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	policy, err := projection.ParsePolicy(getEnv("PROJECTION_POLICY", string(projection.PolicyReinvestAll)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:   utils.ParseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:*,http://127.0.0.1:*")),
		Policy:           policy,
		CashSweepSymbols: utils.ParseSymbols(getEnv("CASH_SWEEP_SYMBOLS", projection.DefaultCashSweepSymbol)),
		Defaults: projection.Request{
			Years:                 getEnvAsInt("DEFAULT_YEARS", 25),
			QuarterlyContribution: getEnvAsFloat("DEFAULT_QUARTERLY_CONTRIBUTION", 250),
			TopN:                  getEnvAsInt("DEFAULT_TOP_N", 5),
		},
		RetentionDays:   getEnvAsInt("RUN_RETENTION_DAYS", 30),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		Archive: archive.Config{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("ARCHIVE_PREFIX", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if _, err := projection.ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must list origins, not %q", origin)
		}
	}

	defaults := projection.Parameters{
		Years:                 c.Defaults.Years,
		QuarterlyContribution: c.Defaults.QuarterlyContribution,
		TopN:                  c.Defaults.TopN,
		Policy:                c.Policy,
	}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid default parameters: %w", err)
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("RUN_RETENTION_DAYS must not be negative, got %d", c.RetentionDays)
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid CLEANUP_SCHEDULE %q: %w", c.CleanupSchedule, err)
	}

	return nil
}

// Retention returns how long stored runs are kept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// DatabasePath returns the location of the projections database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "projections.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
