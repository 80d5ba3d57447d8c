package outwriter

import (
	"os"

	"github.com/licsalert/licsalert/internal/contract"
	"golang.org/x/term"
)

// wideTableWidth is the terminal width needed for the optional step columns.
const wideTableWidth = 100

// getTerminalWidth returns the width override, the detected terminal width,
// or a conservative default.
func getTerminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTableNameWidth calculates the maximum width for channel names in
// table output based on terminal width.
func getMaxTableNameWidth(cfg *contract.Config) int {
	// Step + Time + Cumulative + Distance + Label with borders/padding
	baseWidth := 60
	if isWideTable(cfg) {
		baseWidth += 25 // Line + Phase
	}

	available := getTerminalWidth(cfg) - baseWidth
	if available < 8 {
		return 8
	}
	if available > 24 {
		return 24
	}
	return available
}

// isWideTable reports whether the step table has room for the line and phase columns.
func isWideTable(cfg *contract.Config) bool {
	return getTerminalWidth(cfg) >= wideTableWidth
}
