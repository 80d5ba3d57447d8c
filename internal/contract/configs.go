package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/licsalert/licsalert/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 2
	MaxPrecision     = 4
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a licsalert invocation.
// This struct is the "final, validated" config.
type Config struct {
	DatasetPath    string
	NBaseline      int // 0 means the manifest decides
	TRecalculate   int // 0 means the manifest decides
	Start          int // first interferogram kept
	End            int // one past the last interferogram kept, 0 means all
	Volcano        string
	AlertThreshold float64
	Precision      int
	Output         schema.OutputMode
	OutputFile     string
	Width          int // Terminal width override (0 = auto-detect)

	StateBackend   schema.DatabaseBackend
	StateDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DatasetPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile     string  `mapstructure:"output-file"`
	Output         string  `mapstructure:"output"`
	Precision      int     `mapstructure:"precision"`
	Width          int     `mapstructure:"width"`
	StateBackend   string  `mapstructure:"state-backend"`
	StateDBConnect string  `mapstructure:"state-db-connect"`
	Threshold      float64 `mapstructure:"threshold"`
	Volcano        string  `mapstructure:"volcano"`
	Emoji          string  `mapstructure:"emoji"`
	Color          string  `mapstructure:"color"`

	// --- Fields from runCmd.Flags() ---
	Baseline     int `mapstructure:"baseline"`
	TRecalculate int `mapstructure:"t-recalculate"`
	Start        int `mapstructure:"start"`
	End          int `mapstructure:"end"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateTrackingInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	return resolveDatasetPath(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("state-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' followed by host:port")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("state-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Volcano = strings.TrimSpace(input.Volcano)

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	return nil
}

// validateTrackingInputs validates the trend tracking parameters.
func validateTrackingInputs(cfg *Config, input *ConfigRawInput) error {
	// Zero defers to the manifest, then to the default window
	if input.TRecalculate < 0 {
		return fmt.Errorf("t-recalculate must be at least 1 (received %d)", input.TRecalculate)
	}
	cfg.TRecalculate = input.TRecalculate

	if input.Baseline != 0 && input.Baseline < 2 {
		return fmt.Errorf("baseline must be at least 2 interferograms (received %d)", input.Baseline)
	}
	cfg.NBaseline = input.Baseline

	if input.Start < 0 || input.End < 0 {
		return fmt.Errorf("start and end must not be negative (received %d, %d)", input.Start, input.End)
	}
	if input.End != 0 && input.End <= input.Start {
		return fmt.Errorf("end must be after start (received %d, %d)", input.Start, input.End)
	}
	cfg.Start, cfg.End = input.Start, input.End

	if input.Threshold <= 0 {
		return fmt.Errorf("threshold must be a positive number of sigma (received %g)", input.Threshold)
	}
	cfg.AlertThreshold = input.Threshold
	return nil
}

// validateBackendConfig validates the state backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.StateBackend = schema.DatabaseBackend(strings.ToLower(input.StateBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StateBackend]; !ok {
		return fmt.Errorf("invalid state backend '%s'. must be sqlite, mysql, postgresql, none", input.StateBackend)
	}
	cfg.StateDBConnect = input.StateDBConnect
	return ValidateDatabaseConnectionString(cfg.StateBackend, cfg.StateDBConnect)
}

// resolveDatasetPath makes the manifest path absolute and checks it exists.
// Commands without a dataset leave the path empty.
func resolveDatasetPath(cfg *Config, input *ConfigRawInput) error {
	if input.DatasetPathStr == "" {
		cfg.DatasetPath = ""
		return nil
	}
	absPath, err := filepath.Abs(input.DatasetPathStr)
	if err != nil {
		return fmt.Errorf("failed to resolve dataset path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("dataset manifest not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("dataset path %s is a directory, expected a manifest file", absPath)
	}
	cfg.DatasetPath = absPath
	return nil
}

// RevalidateRun applies per-request dataset overrides to an already
// validated config. Zero values keep what the config holds.
func RevalidateRun(cfg *Config, datasetPath string, baseline, tRecalculate int) error {
	if datasetPath == "" {
		return fmt.Errorf("dataset_path is required")
	}
	if err := resolveDatasetPath(cfg, &ConfigRawInput{DatasetPathStr: datasetPath}); err != nil {
		return err
	}
	if baseline != 0 && baseline < 2 {
		return fmt.Errorf("baseline must be at least 2 interferograms (received %d)", baseline)
	}
	if tRecalculate < 0 {
		return fmt.Errorf("t-recalculate must be at least 1 (received %d)", tRecalculate)
	}
	if baseline > 0 {
		cfg.NBaseline = baseline
	}
	if tRecalculate > 0 {
		cfg.TRecalculate = tRecalculate
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
