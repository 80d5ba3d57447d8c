package statestore

import (
	"errors"
	"fmt"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/parquet"
	"github.com/licsalert/licsalert/schema"
)

// ExecuteStateExport exports every stored run and its per-step trend data
// to Parquet files next to outputFile.
func ExecuteStateExport(mgr contract.StateManager, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := mgr.GetStateStore()
	if store == nil {
		return errors.New("state store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get state status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no stored runs found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	var steps []parquet.Step
	for _, run := range runs {
		states, err := store.GetTrendStates(run.RunID)
		if err != nil {
			return fmt.Errorf("failed to retrieve trend states for run %d: %w", run.RunID, err)
		}
		steps = append(steps, parquet.ConvertStepRows(run.RunID, run.Volcano, schema.FlattenSteps(resultFrom(run, states)))...)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	stepsFile := outputFile + ".steps.parquet"
	if err := parquet.WriteStepsParquet(steps, stepsFile); err != nil {
		return fmt.Errorf("failed to write steps: %w", err)
	}
	fmt.Printf("Exported %d step records to: %s\n", len(steps), stepsFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")
	return nil
}

// resultFrom reassembles an AlertResult from a run record and its states.
func resultFrom(run schema.RunRecord, states []schema.TrendStateRecord) schema.AlertResult {
	result := schema.AlertResult{
		Mode:        run.Mode,
		NBaseline:   int(run.NBaseline),
		NMonitoring: int(run.NMonitoring),
		TimeValues:  run.TimeValues,
		ResidualRMS: run.ResidualRMS,
	}
	for _, s := range states {
		if s.Residual {
			result.Residual = append(result.Residual, s.State)
		} else {
			result.Sources = append(result.Sources, s.State)
		}
	}
	return result
}
