package core

import (
	"fmt"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/dataset"
	"github.com/licsalert/licsalert/schema"
)

// logRunHeader prints a two line summary of the run. Only text output gets
// a header so machine formats on stdout stay parseable.
func logRunHeader(cfg *contract.Config, volcano string, ds *dataset.Dataset, nBaseline, tRecalculate int) {
	if cfg.Output != schema.TextOut && cfg.Output != "" {
		return
	}
	volcanoIcon, rangeIcon := "", ""
	if cfg.UseEmojis {
		volcanoIcon, rangeIcon = "🌋 ", "📅 "
	}
	mode := schema.BaselineOnly
	if nBaseline < ds.Len() {
		mode = schema.BaselinePlusMonitoring
	}

	// Line 1: what is being watched
	fmt.Printf("%sVolcano: %s (Mode: %s, window: %d)\n", volcanoIcon, volcano, mode, tRecalculate)

	// Line 2: the time span covered
	first, last := ds.TimeValues[0], ds.TimeValues[len(ds.TimeValues)-1]
	fmt.Printf("%sTime values: %g → %g days (%d baseline, %d monitoring)\n", rangeIcon, first, last, nBaseline, ds.Len()-nBaseline)
}
