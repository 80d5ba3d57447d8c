package cmd

import (
	"github.com/licsalert/licsalert/core"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/spf13/cobra"
)

// monitorCmd continues a stored baseline with newly arrived interferograms.
var monitorCmd = &cobra.Command{
	Use:   "monitor <manifest.yaml>",
	Short: "Score new interferograms against the stored baseline of a volcano.",
	Long: `Load the latest stored run for a volcano and extend its baseline with
the interferograms of the manifest that come after it.

The baseline trends are never refitted here. The manifest must hold at least
as many interferograms as the stored baseline, and its first interferograms
must be the ones the baseline was built from.

Examples:
  # First run stores the baseline
  licsalert run etna.yaml --baseline 40

  # Later, after new acquisitions were added to the manifest
  licsalert monitor etna.yaml --volcano etna`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMonitor(rootCtx, cfg, stateManager); err != nil {
			contract.LogFatal("Cannot run monitoring", err)
		}
	},
}
