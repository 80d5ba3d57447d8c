// Package cmd defines the command-line interface for licsalert.
package cmd

import (
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(acquisitionsCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the state subcommands to the parent state command
	stateCmd.AddCommand(stateStatusCmd)
	stateCmd.AddCommand(stateClearCmd)
	stateCmd.AddCommand(stateExportCmd)
	stateCmd.AddCommand(stateMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Float64("threshold", schema.DefaultAlertThreshold, "Sigma distance at which a monitoring step raises an alert")
	rootCmd.PersistentFlags().String("volcano", "", "Volcano name used to store and look up runs (defaults to the manifest)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("state-backend", string(schema.SQLiteBackend), "State backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("state-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("emoji", "yes", "Enable emojis in run headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().Int("baseline", 0, "Number of baseline interferograms (0 = manifest value, then all)")
	runCmd.Flags().Int("t-recalculate", 0, "Rolling line window in time steps (0 = manifest value, then 10)")
	runCmd.Flags().Int("start", 0, "Index of the first interferogram to use")
	runCmd.Flags().Int("end", 0, "Index one past the last interferogram to use (0 = through the last)")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of acquisitionsCmd to Viper
	acquisitionsCmd.Flags().StringSlice("known", nil, "Interferogram names already processed; the rest are reported as new")
	if err := viper.BindPFlags(acquisitionsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding acquisitions flags", err)
	}

	// Bind all flags of stateMigrateCmd to Viper
	stateMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(stateMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding state migrate flags", err)
	}
}
