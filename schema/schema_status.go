package schema

import "time"

// StateStatus represents the status of the state store.
type StateStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalRuns      int              `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	Volcanoes      []string         `json:"volcanoes"`
	TableSizes     map[string]int64 `json:"table_sizes"`
	TableSizeBytes int64            `json:"table_size_bytes"`
}

// RunRecord represents a row from the licsalert_runs table.
type RunRecord struct {
	RunID        int64
	Volcano      string
	RunTime      time.Time
	Mode         RunMode
	NBaseline    int32
	NMonitoring  int32
	TRecalculate int32
	TimeValues   []float64
	ResidualRMS  []float64
}

// TrendStateRecord represents a row from the licsalert_trend_states table.
type TrendStateRecord struct {
	RunID    int64
	Channel  string
	Index    int32
	Residual bool
	State    TrendState
}
