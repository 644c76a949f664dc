package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROJECTOR_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, projection.PolicyReinvestAll, cfg.Policy)
	assert.Equal(t, []string{"SPAXX"}, cfg.CashSweepSymbols)
	assert.Equal(t, projection.Request{Years: 25, QuarterlyContribution: 250, TopN: 5}, cfg.Defaults)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.Equal(t, "0 0 3 * * *", cfg.CleanupSchedule)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, []string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.AllowedOrigins)
	assert.Equal(t, filepath.Join(dir, "projections.db"), cfg.DatabasePath())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PROJECTOR_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("PROJECTION_POLICY", "Prioritized-Only")
	t.Setenv("CASH_SWEEP_SYMBOLS", "spaxx, vmfxx")
	t.Setenv("DEFAULT_YEARS", "10")
	t.Setenv("DEFAULT_QUARTERLY_CONTRIBUTION", "125.5")
	t.Setenv("DEFAULT_TOP_N", "3")
	t.Setenv("RUN_RETENTION_DAYS", "0")
	t.Setenv("ARCHIVE_BUCKET", "projections")
	t.Setenv("ARCHIVE_PREFIX", "runs")
	t.Setenv("ALLOWED_ORIGINS", "https://income.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, projection.PolicyPrioritizedOnly, cfg.Policy)
	assert.Equal(t, []string{"SPAXX", "VMFXX"}, cfg.CashSweepSymbols)
	assert.Equal(t, projection.Request{Years: 10, QuarterlyContribution: 125.5, TopN: 3}, cfg.Defaults)
	assert.Equal(t, time.Duration(0), cfg.Retention())
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "runs", cfg.Archive.Prefix)
	assert.Equal(t, "auto", cfg.Archive.Region)
	assert.Equal(t, []string{"https://income.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("PROJECTOR_DATA_DIR", t.TempDir())
	t.Setenv("PROJECTION_POLICY", "reinvest_some")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:            8001,
			Policy:          projection.PolicyReinvestAll,
			Defaults:        projection.Request{Years: 25, QuarterlyContribution: 250, TopN: 5},
			RetentionDays:   30,
			CleanupSchedule: "0 0 3 * * *",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"descriptor schedule", func(c *Config) { c.CleanupSchedule = "@daily" }, false},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"unknown policy", func(c *Config) { c.Policy = "sometimes" }, true},
		{"zero default years", func(c *Config) { c.Defaults.Years = 0 }, true},
		{"negative default contribution", func(c *Config) { c.Defaults.QuarterlyContribution = -1 }, true},
		{"zero default top n", func(c *Config) { c.Defaults.TopN = 0 }, true},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }, true},
		{"wildcard origin", func(c *Config) { c.AllowedOrigins = []string{"http://localhost:*", "*"} }, true},
		{"five field schedule", func(c *Config) { c.CleanupSchedule = "0 3 * * *" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
