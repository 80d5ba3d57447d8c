package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/licsalert/licsalert/schema"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold) // saturated, at or beyond 5 sigma
	HighColor     = color.New(color.FgYellow, color.Bold)
	ModerateColor = color.New(color.FgHiYellow)
	LowColor      = color.New(color.FgCyan) // close to the trend
)

// GetPlainLabel returns a plain text label for a sigma distance.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(distance float64) string {
	return string(schema.SeverityFor(distance))
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(distance float64) string {
	severity := schema.SeverityFor(distance)
	text := string(severity)

	switch severity {
	case schema.CriticalSeverity:
		return CriticalColor.Sprint(text)
	case schema.HighSeverity:
		return HighColor.Sprint(text)
	case schema.ModerateSeverity:
		return ModerateColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetStateDBFilePath returns the path to the SQLite DB file for state storage.
func GetStateDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".licsalert_state.db"
	}
	return filepath.Join(homeDir, ".licsalert_state.db")
}

// TruncateName truncates a name to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the prefix and some content.
func TruncateName(name string, maxWidth int) string {
	runes := []rune(name)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return name
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
