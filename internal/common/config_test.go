package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("OPENROUTER_MODEL", "")
	t.Setenv("SCAN_WORKERS", "")
	t.Setenv("LLM_TIMEOUT", "")

	cfg := LoadConfig()

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "google/gemini-2.5-flash-lite", cfg.LLM.Model)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.LLM.RetryBackoff)
	assert.Equal(t, 5, cfg.Scan.Workers)
	assert.Equal(t, "credentials.json", cfg.Google.CredentialsPath)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("SCAN_WORKERS", "3")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("PREFER_TEXT_EXTRACTION", "true")
	t.Setenv("TABULAR_BACKEND", "XLSX")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.LLM.PreferTextPDFs)
	assert.Equal(t, SinkXLSX, cfg.Sink.Kind)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:    LLMConfig{APIKey: "k", MaxTokens: 1000, RetryAttempts: 3},
			Scan:   ScanConfig{Workers: 5},
			Source: SourceConfig{Kind: SourceLocal, LocalFolder: "/tmp/in"},
			Sink:   SinkConfig{Kind: SinkSQLite, SQLitePath: "x.db"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }, "OPENROUTER_API_KEY"},
		{"too many workers", func(c *Config) { c.Scan.Workers = 64 }, "SCAN_WORKERS"},
		{"drive without folder", func(c *Config) { c.Source = SourceConfig{Kind: SourceGoogleDrive} }, "DRIVE_FOLDER_ID"},
		{"unknown source", func(c *Config) { c.Source.Kind = "ftp" }, "DOCUMENT_SOURCE"},
		{"sheets without id", func(c *Config) { c.Sink = SinkConfig{Kind: SinkGoogleSheets} }, "SPREADSHEET_ID"},
		{"postgres without url", func(c *Config) { c.Sink = SinkConfig{Kind: SinkPostgres} }, "DATABASE_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
		})
	}
}

func TestNeedsGoogle(t *testing.T) {
	c := &Config{Source: SourceConfig{Kind: SourceLocal}, Sink: SinkConfig{Kind: SinkXLSX}}
	assert.False(t, c.NeedsGoogle())
	c.Sink.Kind = SinkGoogleSheets
	assert.True(t, c.NeedsGoogle())
}
