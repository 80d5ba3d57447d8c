package cmd

import (
	"github.com/licsalert/licsalert/core"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// acquisitionsCmd reports the daisy chain built from acquisition dates.
var acquisitionsCmd = &cobra.Command{
	Use:   "acquisitions <YYYYMMDD>...",
	Short: "Build daisy-chain interferogram names and temporal baselines from dates.",
	Long: `Sort the given acquisition dates and list the interferograms that join
each date to the next, with their temporal baselines in days and the
cumulative time values used by 'run'.

With --known, interferograms missing from that list are marked as new.

Examples:
  licsalert acquisitions 20200101 20200113 20200125

  # Which products arrived since the last run
  licsalert acquisitions 20200101 20200113 20200125 --known 20200101_20200113`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		// Dates are positional, the dataset path stays empty
		return sharedSetup(rootCtx, cmd, nil)
	},
	Run: func(_ *cobra.Command, args []string) {
		known := viper.GetStringSlice("known")
		if err := core.ExecuteAcquisitions(rootCtx, cfg, args, known); err != nil {
			contract.LogFatal("Cannot build acquisition report", err)
		}
	},
}
