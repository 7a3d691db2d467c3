// =============================================================================
// Academic Bulk Importer - Configuration Module
// =============================================================================
//
// This module loads the importer configuration.
//
// LOAD ORDER (later sources win):
//   1. config.yaml (optional unless passed explicitly with --config)
//   2. .env and .env.local, loaded into the process environment
//   3. IMPORTER_* environment variables
//   4. Defaults for anything still unset
//
// The result is validated once, after all sources are applied.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMPORTER_"

// DefaultEnvFiles are loaded into the environment when present.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Catalog backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendHTTP     = "http"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the importer configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" envPrefix:"CATALOG_"`
	Import  ImportConfig  `yaml:"import" envPrefix:"IMPORT_"`
	Output  OutputConfig  `yaml:"output" envPrefix:"OUTPUT_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
}

// CatalogConfig selects and configures the persistence backend.
type CatalogConfig struct {
	// Backend is one of "memory", "postgres", "mongo" or "http".
	// Default: "memory"
	Backend string `yaml:"backend" env:"BACKEND" validate:"oneof=memory postgres mongo http"`

	// Fixtures is the YAML file seeding the memory backend. Empty starts an
	// empty catalog.
	Fixtures string `yaml:"fixtures" env:"FIXTURES"`

	PostgresDSN  string `yaml:"postgres_dsn" env:"POSTGRES_DSN" validate:"required_if=Backend postgres"`
	EnsureSchema bool   `yaml:"ensure_schema" env:"ENSURE_SCHEMA"`

	MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI" validate:"required_if=Backend mongo"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE"`

	HTTPBaseURL       string        `yaml:"http_base_url" env:"HTTP_BASE_URL" validate:"required_if=Backend http"`
	HTTPAuthorization string        `yaml:"http_authorization" env:"HTTP_AUTHORIZATION"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
}

// ImportConfig controls decoding and the engine.
type ImportConfig struct {
	// SheetName is the workbook sheet to read. Empty reads the first sheet.
	SheetName string `yaml:"sheet_name" env:"SHEET_NAME"`

	// HeaderRow is the 1-based header row of workbooks.
	// Default: 1
	HeaderRow int `yaml:"header_row" env:"HEADER_ROW" validate:"min=1"`

	// CSVDelimiter is the CSV field separator.
	// Default: ","
	CSVDelimiter string `yaml:"csv_delimiter" env:"CSV_DELIMITER"`

	// MaxRows rejects larger files before validation.
	// Default: 2000
	MaxRows int `yaml:"max_rows" env:"MAX_ROWS" validate:"min=1"`

	// CommitTimeout bounds each catalog write of a commit.
	// Default: 60s
	CommitTimeout time.Duration `yaml:"commit_timeout" env:"COMMIT_TIMEOUT" validate:"min=1s"`
}

// OutputConfig controls report files and input archival.
type OutputConfig struct {
	ReportDir string `yaml:"report_dir" env:"REPORT_DIR"`

	// ArchiveDir receives input files after a successful commit.
	ArchiveDir string `yaml:"archive_dir" env:"ARCHIVE_DIR"`

	// ReportFormat is "xlsx" or "json".
	ReportFormat string `yaml:"report_format" env:"REPORT_FORMAT" validate:"oneof=xlsx json"`

	// ReportPattern names report files. Supports {timestamp} and {uuid}.
	ReportPattern string `yaml:"report_pattern" env:"REPORT_PATTERN"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=silent debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=text json"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	MetricsPath string `yaml:"metrics_path" env:"METRICS_PATH" validate:"startswith=/"`

	// SessionTTL is how long a validated import waits for confirmation.
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" validate:"min=1s"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" validate:"min=1"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadConfig loads the configuration.
//
// PARAMETERS:
//   - configPath: The YAML file to read.
//   - explicit: Whether the path was given by the user. A missing file is an
//     error only in that case.
//
// RETURNS:
//   - The validated configuration.
//   - An error if a source cannot be read or the result is invalid.
func LoadConfig(configPath string, explicit bool) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := LoadEnv(DefaultEnvFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// LoadEnv loads the env files that exist and returns how many were loaded.
// Variables already set in the environment are left alone.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.Catalog.Backend == "" {
		config.Catalog.Backend = BackendMemory
	}
	if config.Catalog.MongoDatabase == "" {
		config.Catalog.MongoDatabase = "academics"
	}
	if config.Catalog.HTTPTimeout == 0 {
		config.Catalog.HTTPTimeout = 30 * time.Second
	}

	if config.Import.HeaderRow == 0 {
		config.Import.HeaderRow = 1
	}
	if config.Import.CSVDelimiter == "" {
		config.Import.CSVDelimiter = ","
	}
	if config.Import.MaxRows == 0 {
		config.Import.MaxRows = 2000
	}
	if config.Import.CommitTimeout == 0 {
		config.Import.CommitTimeout = 60 * time.Second
	}

	if config.Output.ReportDir == "" {
		config.Output.ReportDir = "./reports"
	}
	if config.Output.ArchiveDir == "" {
		config.Output.ArchiveDir = "./input_archive"
	}
	if config.Output.ReportFormat == "" {
		config.Output.ReportFormat = "xlsx"
	}
	if config.Output.ReportPattern == "" {
		config.Output.ReportPattern = "{timestamp}_{uuid}"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MetricsPath == "" {
		config.Server.MetricsPath = "/metrics"
	}
	if config.Server.SessionTTL == 0 {
		config.Server.SessionTTL = 30 * time.Minute
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 10 << 20
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its field rules.
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q rule (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}
