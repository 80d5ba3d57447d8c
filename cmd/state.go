package cmd

import (
	"errors"
	"fmt"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/statestore"
	"github.com/licsalert/licsalert/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// stateBackendFromConfig reads and checks the backend settings only.
func stateBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("state-backend")
	connStr := viper.GetString("state-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid state backend '%s'. must be sqlite, mysql, postgresql, none", backendStr)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// stateSetup loads minimal configuration needed for state operations.
// This is used by commands that need the store without a dataset.
func stateSetup() error {
	backend, connStr, err := stateBackendFromConfig()
	if err != nil {
		return err
	}
	if err := statestore.InitStores(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	cfg.StateBackend = backend
	cfg.StateDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// stateSetupWrapper wraps stateSetup to provide PreRunE for state commands.
func stateSetupWrapper(_ *cobra.Command, _ []string) error {
	return stateSetup()
}

// stateMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func stateMigrateSetup() error {
	backend, connStr, err := stateBackendFromConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = statestore.GetDBFilePath()
	}

	cfg.StateBackend = backend
	cfg.StateDBConnect = connStr
	return nil
}

// stateMigrateSetupWrapper wraps stateMigrateSetup to provide PreRunE for migrate command.
func stateMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return stateMigrateSetup()
}

// stateCmd focused on stored run management.
//
// Note: state subcommands use minimal initialization (stateSetup) instead of
// the full sharedSetup. No dataset is needed to inspect the store.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage stored runs and trend states",
	Long: `Manage the runs that licsalert stores between invocations.

Every 'run' and 'monitor' stores:
- Run metadata (volcano, time, baseline and monitoring counts, window)
- The time values and residual RMS of the run
- The trend state of every source and of the residual

'monitor' reads the latest stored run of a volcano to continue its baseline.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show stored run statistics
  export  - Export runs and steps to Parquet
  clear   - Remove all stored runs
  migrate - Run database schema migrations

Examples:
  # Check what is stored
  licsalert state status

  # Export for analysis in pandas/DuckDB
  licsalert state export --output-file licsalert-data`,
}

// stateClearCmd clears the stored runs.
var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored runs and trend states",
	Long: `Delete all stored runs and their trend states.

WARNING: This action cannot be undone. 'monitor' needs a new 'run' afterwards.
Consider exporting data first.

Examples:
  licsalert state export --output-file backup
  licsalert state clear`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// The SQLite file is removed, so the open handle goes first
		statestore.CloseStores()
		if err := statestore.ClearState(cfg.StateBackend, sqlitePath(), cfg.StateDBConnect); err != nil {
			contract.LogFatal("Failed to clear state", err)
		}
		fmt.Println("State cleared successfully.")
	},
}

// sqlitePath returns the SQLite file in use.
func sqlitePath() string {
	if cfg.StateBackend == schema.SQLiteBackend && cfg.StateDBConnect != "" {
		return cfg.StateDBConnect
	}
	return statestore.GetDBFilePath()
}

// stateStatusCmd shows state store status.
var stateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display stored run statistics and connection details",
	Long: `Show detailed information about the state store.

Displays:
- Backend type and connection status
- Total number of stored runs and the volcanoes they cover
- Last and oldest run timestamps
- Database table sizes

Examples:
  licsalert state status
  licsalert state status --state-backend postgresql --state-db-connect "host=localhost dbname=licsalert"`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := stateManager.GetStateStore()
		if store == nil {
			contract.LogFatal("Failed to get state status", errors.New("state store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get state status", err)
		}
		statestore.PrintStateStatus(status)
	},
}

// stateExportCmd exports stored runs to Parquet files.
var stateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored runs to Parquet for analytics",
	Long: `Export all stored runs to Parquet format for use with analytics tools.

Writes two files next to --output-file:
- <file>.runs.parquet  - one row per stored run
- <file>.steps.parquet - one row per channel per time step of every run

Requires: --output-file parameter

Examples:
  licsalert state export --output-file licsalert-data
  duckdb -c "SELECT volcano, max(distance) FROM read_parquet('licsalert-data.steps.parquet') GROUP BY 1"`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := statestore.ExecuteStateExport(stateManager, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export state", err)
		}
	},
}

// stateMigrateCmd runs database migrations for the state store.
var stateMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the state store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  licsalert state migrate

  # Migrate to specific version
  licsalert state migrate --target-version 1

  # Rollback to initial state
  licsalert state migrate --target-version 0`,
	PreRunE: stateMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := statestore.MigrateStates(cfg.StateBackend, cfg.StateDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
