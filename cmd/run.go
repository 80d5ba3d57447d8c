package cmd

import (
	"github.com/licsalert/licsalert/core"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd runs the detector over a complete dataset.
var runCmd = &cobra.Command{
	Use:   "run <manifest.yaml>",
	Short: "Fit baseline trends and score monitoring interferograms.",
	Long: `Decompose every interferogram of a dataset into the known sources,
fit a rolling line to each source's cumulative use, and report how far each
monitoring step sits from that line in sigma.

The first --baseline interferograms define the expected behaviour. Any
interferograms after them are monitoring steps. Without monitoring steps
only the baseline is fitted.

The result is stored in the state backend so later 'monitor' runs can
reuse the baseline.

Examples:
  # Baseline of 40 interferograms, the rest are monitored
  licsalert run etna.yaml --baseline 40

  # Narrower line window and a stricter alert threshold
  licsalert run etna.yaml --t-recalculate 6 --threshold 2.5

  # Export every step to CSV
  licsalert run etna.yaml --output csv --output-file etna.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRun(rootCtx, cfg, stateManager); err != nil {
			contract.LogFatal("Cannot run licsalert", err)
		}
	},
}
