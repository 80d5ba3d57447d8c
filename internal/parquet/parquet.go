// Package parquet provides data structures and functions for exporting licsalert
// results to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/licsalert/licsalert/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single stored licsalert run.
// This struct maps to the licsalert_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Volcano is the name the run was stored under
	Volcano string `parquet:"volcano,snappy"`

	// RunTime is when the run was stored (stored as TIMESTAMP with nanosecond precision)
	RunTime time.Time `parquet:"run_time,snappy"`

	// Mode is baseline or baseline+monitoring
	Mode string `parquet:"mode,snappy"`

	NBaseline    int32 `parquet:"n_baseline,snappy"`
	NMonitoring  int32 `parquet:"n_monitoring,snappy"`
	TRecalculate int32 `parquet:"t_recalculate,snappy"`
}

// Step represents one channel at one time step.
type Step struct {
	// RunID references the parent run (nullable when the result was never stored)
	RunID *int64 `parquet:"run_id,optional,snappy"`

	Volcano    string  `parquet:"volcano,snappy"`
	Channel    string  `parquet:"channel,snappy"`
	Step       int32   `parquet:"step,snappy"`
	TimeValue  float64 `parquet:"time_value,snappy"`
	Cumulative float64 `parquet:"cumulative,snappy"`

	// LineValue is the end of the rolling line for this step (nullable when undefined)
	LineValue *float64 `parquet:"line_value,optional,snappy"`

	// Distance is in sigma; +Inf marks a degenerate sigma
	Distance   float64 `parquet:"distance,snappy"`
	Monitoring bool    `parquet:"monitoring,snappy"`

	// Drawn marks steps whose rolling line is worth plotting
	Drawn bool   `parquet:"drawn,snappy"`
	Label string `parquet:"label,snappy"`
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteStepsParquet writes a slice of Step structs to a Parquet file.
func WriteStepsParquet(data []Step, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts stored run records to Parquet rows.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	out := make([]Run, len(records))
	for i, r := range records {
		out[i] = Run{
			RunID:        r.RunID,
			Volcano:      r.Volcano,
			RunTime:      r.RunTime,
			Mode:         string(r.Mode),
			NBaseline:    r.NBaseline,
			NMonitoring:  r.NMonitoring,
			TRecalculate: r.TRecalculate,
		}
	}
	return out
}

// ConvertStepRows converts flattened step rows to Parquet rows.
// A runID of zero means the result was not stored.
func ConvertStepRows(runID int64, volcano string, rows []schema.StepRow) []Step {
	var id *int64
	if runID != 0 {
		id = &runID
	}
	out := make([]Step, len(rows))
	for i, r := range rows {
		step := Step{
			RunID:      id,
			Volcano:    volcano,
			Channel:    r.Channel,
			Step:       int32(r.Step),
			TimeValue:  r.TimeValue,
			Cumulative: r.Cumulative,
			Distance:   float64(r.Distance),
			Monitoring: r.Monitoring,
			Drawn:      r.Drawn,
			Label:      string(r.Label),
		}
		if v := float64(r.LineValue); !math.IsNaN(v) {
			step.LineValue = &v
		}
		out[i] = step
	}
	return out
}
