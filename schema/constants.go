package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// RunMode represents which phases an invocation covered.
	RunMode string

	// DatabaseBackend represents the database backend for state storage.
	DatabaseBackend string

	// Severity represents how far a point sits from its trend line.
	Severity string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All run modes.
const (
	BaselineOnly           RunMode = "baseline"
	BaselinePlusMonitoring RunMode = "baseline+monitoring"
)

// All state backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Severity levels, matching the sigma colour ramp used by the figures
// (black up to a third of the saturation value, orange, yellow, then red).
const (
	CriticalSeverity Severity = "Critical"
	HighSeverity     Severity = "High"
	ModerateSeverity Severity = "Moderate"
	LowSeverity      Severity = "Low"
)

// Sigma thresholds for the severity levels.
const (
	SigmaSaturation = 5.0
	SigmaHigh       = SigmaSaturation * 0.66
	SigmaModerate   = SigmaSaturation * 0.33
)

// Default values for the tracking parameters.
const (
	DefaultTRecalculate   = 10
	DefaultAlertThreshold = 3.0
	DefaultRevisitDays    = 12 // Sentinel-1 revisit
)

// ResidualChannel is the display name of the aggregate residual channel.
const ResidualChannel = "Residual"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid state backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
