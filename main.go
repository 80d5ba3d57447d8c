// main is the entry point for the licsalert CLI.
package main

import (
	"github.com/licsalert/licsalert/cmd"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/statestore"
)

func main() {
	defer statestore.CloseStores()
	cmd.SetStateManager(statestore.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		// LogFatal exits without running defers
		statestore.CloseStores()
		contract.LogFatal("Command failed", err)
	}
}
