package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteAcquisitionReport outputs a daisy-chain report, dispatching based on the output format configured.
// Parquet is not offered for this small report and falls back to CSV.
func WriteAcquisitionReport(report schema.AcquisitionReport, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut, schema.ParquetOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAcquisitionCSV(w, report)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAcquisitionTable(w, report, cfg)
		}, "Wrote table")
	}
}

func writeAcquisitionCSV(w io.Writer, report schema.AcquisitionReport) error {
	header := []string{"name", "baseline_days", "time_value", "new"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, ifg := range report.Interferograms {
			rec := []string{
				ifg.Name,
				strconv.Itoa(ifg.Baseline),
				strconv.Itoa(ifg.TimeValue),
				strconv.FormatBool(ifg.New),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAcquisitionTable(w io.Writer, report schema.AcquisitionReport, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Interferogram", "Baseline (days)", "Time Value", "New"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, ifg := range report.Interferograms {
		isNew := ""
		if ifg.New {
			isNew = "new"
			if cfg.UseColors {
				isNew = contract.HighColor.Sprint(isNew)
			}
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			ifg.Name,
			strconv.Itoa(ifg.Baseline),
			strconv.Itoa(ifg.TimeValue),
			isNew,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d acquisitions, %d interferograms, %d new\n",
		len(report.Acquisitions), len(report.Interferograms), report.NewCount)
	return err
}
