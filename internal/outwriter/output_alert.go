package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/parquet"
	"github.com/licsalert/licsalert/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteAlertResults outputs a licsalert result, dispatching based on the output format configured.
func WriteAlertResults(result schema.EnrichedAlertResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtMaybe := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAlertCSV(w, result, fmtFloat, fmtMaybe)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeAlertParquet(result, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAlertTable(w, result, cfg, fmtFloat, fmtMaybe, duration)
		}, "Wrote table")
	}
	return nil
}

// writeAlertCSV writes one row per channel and time step.
func writeAlertCSV(w io.Writer, result schema.EnrichedAlertResult, fmtFloat, fmtMaybe func(float64) string) error {
	header := []string{
		"volcano",
		"channel",
		"step",
		"time_value",
		"cumulative",
		"line_value",
		"distance",
		"label",
		"phase",
		"drawn",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range result.Steps {
			rec := []string{
				result.Volcano,
				row.Channel,
				strconv.Itoa(row.Step),
				fmtFloat(row.TimeValue),
				fmtFloat(row.Cumulative),
				fmtMaybe(float64(row.LineValue)),
				fmtMaybe(float64(row.Distance)),
				string(row.Label),
				phaseOf(row),
				strconv.FormatBool(row.Drawn),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAlertParquet writes the step rows to a Parquet file.
func writeAlertParquet(result schema.EnrichedAlertResult, outputFile string) error {
	if outputFile == "" {
		return errors.New("parquet output requires an output file")
	}
	rows := parquet.ConvertStepRows(result.RunID, result.Volcano, result.Steps)
	if err := parquet.WriteStepsParquet(rows, outputFile); err != nil {
		return err
	}
	fmt.Printf("💾 Wrote %d step records to %s\n", len(rows), outputFile)
	return nil
}

// writeAlertTable renders the per-step table followed by the channel summary.
func writeAlertTable(w io.Writer, result schema.EnrichedAlertResult, cfg *contract.Config, fmtFloat, fmtMaybe func(float64) string, duration time.Duration) error {
	labelFor := contract.GetPlainLabel
	if cfg.UseColors {
		labelFor = contract.GetColorLabel
	}
	nameWidth := getMaxTableNameWidth(cfg)
	wide := isWideTable(cfg)

	// 1. Steps
	steps := tablewriter.NewWriter(w)
	headers := []string{"Channel", "Step", "Time", "Cumulative", "Sigma", "Label"}
	if wide {
		headers = []string{"Channel", "Step", "Time", "Cumulative", "Line", "Sigma", "Label", "Phase"}
	}
	steps.Header(headers)
	steps.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, row := range result.Steps {
		distance := float64(row.Distance)
		rec := []string{
			contract.TruncateName(row.Channel, nameWidth),
			strconv.Itoa(row.Step),
			fmtFloat(row.TimeValue),
			fmtFloat(row.Cumulative),
		}
		if wide {
			rec = append(rec, fmtMaybe(float64(row.LineValue)))
		}
		rec = append(rec, fmtMaybe(distance), labelFor(distance))
		if wide {
			rec = append(rec, phaseOf(row))
		}
		data = append(data, rec)
	}
	if err := steps.Bulk(data); err != nil {
		return err
	}
	if err := steps.Render(); err != nil {
		return err
	}

	// 2. Summary
	summary := tablewriter.NewWriter(w)
	summary.Header([]string{"Channel", "Gradient", "Baseline Sigma", "Last Time", "Last Sigma", "Max Sigma", "Label", "Alert"})
	summary.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})
	data = nil
	alerts := 0
	for _, s := range result.Summaries {
		alert := ""
		if s.Alert {
			alerts++
			alert = "ALERT"
			if cfg.UseColors {
				alert = contract.CriticalColor.Sprint(alert)
			}
		}
		data = append(data, []string{
			contract.TruncateName(s.Channel, nameWidth),
			fmtFloat(s.Gradient),
			fmtFloat(s.Sigma),
			fmtFloat(s.LastTime),
			fmtMaybe(float64(s.LastDistance)),
			fmtMaybe(float64(s.MaxDistance)),
			labelFor(float64(s.LastDistance)),
			alert,
		})
	}
	if err := summary.Bulk(data); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Baseline: %d steps, monitoring: %d steps, %d channel(s) at or above %s sigma\n",
		result.NBaseline, result.NMonitoring, alerts, fmtFloat(cfg.AlertThreshold)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Run completed in %v. State backend: %s\n", duration, cfg.StateBackend); err != nil {
		return err
	}
	return nil
}

func phaseOf(row schema.StepRow) string {
	if row.Monitoring {
		return "monitoring"
	}
	return "baseline"
}
