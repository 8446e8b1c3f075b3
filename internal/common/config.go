package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Document sources.
const (
	SourceGoogleDrive = "gdrive"
	SourceLocal       = "local"
)

// Tabular backends.
const (
	SinkGoogleSheets = "gsheets"
	SinkXLSX         = "xlsx"
	SinkSQLite       = "sqlite"
	SinkPostgres     = "postgres"
)

// Config holds all application configuration
type Config struct {
	LLM    LLMConfig
	Scan   ScanConfig
	Source SourceConfig
	Sink   SinkConfig
	Google GoogleConfig
	Server ServerConfig
	Log    LogConfig
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	RateLimitRPS   float64
	RetryAttempts  int
	RetryBackoff   time.Duration
	ModelsFile     string
	DebugDumpDir   string
	PreferTextPDFs bool
}

// ScanConfig holds batch scan configuration
type ScanConfig struct {
	Workers  int
	Interval time.Duration
}

// SourceConfig selects where documents are listed from
type SourceConfig struct {
	Kind          string
	DriveFolderID string
	LocalFolder   string
}

// SinkConfig selects where extracted rows are appended
type SinkConfig struct {
	Kind          string
	SpreadsheetID string
	XLSXPath      string
	SQLitePath    string
	DatabaseURL   string
	MaxConns      int32
}

// GoogleConfig holds OAuth2 material for Drive and Sheets
type GoogleConfig struct {
	CredentialsPath string
	RefreshToken    string
}

// ServerConfig holds daemon listener configuration
type ServerConfig struct {
	AdminAddr string
	GRPCAddr  string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads an optional .env file and then reads configuration from
// environment variables. Variables already set in the environment win over .env.
func LoadConfig() *Config {
	// .env is optional
	_ = godotenv.Load()
	return &Config{
		LLM: LLMConfig{
			APIKey:         getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("OPENROUTER_MODEL", "google/gemini-2.5-flash-lite"),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 1000),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			RateLimitRPS:   getEnvAsFloat("LLM_RATE_LIMIT_RPS", 0),
			RetryAttempts:  getEnvAsInt("LLM_RETRY_ATTEMPTS", 3),
			RetryBackoff:   getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
			ModelsFile:     getEnv("LLM_MODELS_FILE", ""),
			DebugDumpDir:   getEnv("DEBUG_DUMP_DIR", ""),
			PreferTextPDFs: getEnvAsBool("PREFER_TEXT_EXTRACTION", false),
		},
		Scan: ScanConfig{
			Workers:  getEnvAsInt("SCAN_WORKERS", 5),
			Interval: getEnvAsDuration("SCAN_INTERVAL", 15*time.Minute),
		},
		Source: SourceConfig{
			Kind:          strings.ToLower(getEnv("DOCUMENT_SOURCE", SourceGoogleDrive)),
			DriveFolderID: getEnv("DRIVE_FOLDER_ID", ""),
			LocalFolder:   getEnv("LOCAL_FOLDER", ""),
		},
		Sink: SinkConfig{
			Kind:          strings.ToLower(getEnv("TABULAR_BACKEND", SinkGoogleSheets)),
			SpreadsheetID: getEnv("SPREADSHEET_ID", ""),
			XLSXPath:      getEnv("XLSX_PATH", "invoices.xlsx"),
			SQLitePath:    getEnv("SQLITE_PATH", "invoices.db"),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			MaxConns:      getEnvAsInt32("DB_MAX_CONNS", 4),
		},
		Google: GoogleConfig{
			CredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json"),
			RefreshToken:    getEnv("GOOGLE_REFRESH_TOKEN", ""),
		},
		Server: ServerConfig{
			AdminAddr: getEnv("ADMIN_ADDR", ":8081"),
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENROUTER_API_KEY environment variable is required", ErrInvalidInput)
	}
	if c.LLM.MaxTokens <= 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_TOKENS must be positive", ErrInvalidInput)
	}
	if c.LLM.RetryAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "LLM_RETRY_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	if c.Scan.Workers < 1 || c.Scan.Workers > 16 {
		return NewAppError("CONFIG_ERROR", "SCAN_WORKERS must be between 1 and 16", ErrInvalidInput)
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	return c.validateSink()
}

// ValidateForCompare checks only what a single-document model comparison needs.
func (c *Config) ValidateForCompare() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENROUTER_API_KEY environment variable is required", ErrInvalidInput)
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case SourceGoogleDrive:
		if c.Source.DriveFolderID == "" {
			return NewAppError("CONFIG_ERROR", "DRIVE_FOLDER_ID is required for the gdrive source", ErrInvalidInput)
		}
	case SourceLocal:
		if c.Source.LocalFolder == "" {
			return NewAppError("CONFIG_ERROR", "LOCAL_FOLDER is required for the local source", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown DOCUMENT_SOURCE "+strconv.Quote(c.Source.Kind), ErrInvalidInput)
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Kind {
	case SinkGoogleSheets:
		if c.Sink.SpreadsheetID == "" {
			return NewAppError("CONFIG_ERROR", "SPREADSHEET_ID is required for the gsheets backend", ErrInvalidInput)
		}
	case SinkXLSX:
		if c.Sink.XLSXPath == "" {
			return NewAppError("CONFIG_ERROR", "XLSX_PATH is required for the xlsx backend", ErrInvalidInput)
		}
	case SinkSQLite:
		if c.Sink.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required for the sqlite backend", ErrInvalidInput)
		}
	case SinkPostgres:
		if c.Sink.DatabaseURL == "" {
			return NewAppError("CONFIG_ERROR", "DATABASE_URL is required for the postgres backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown TABULAR_BACKEND "+strconv.Quote(c.Sink.Kind), ErrInvalidInput)
	}
	return nil
}

// NeedsGoogle reports whether the configured source or sink talks to Google APIs.
func (c *Config) NeedsGoogle() bool {
	return c.Source.Kind == SourceGoogleDrive || c.Sink.Kind == SinkGoogleSheets
}
