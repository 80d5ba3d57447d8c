// Package core runs licsalert over loaded datasets and keeps the state store in step.
package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/licsalert/licsalert/internal/acquisition"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/internal/dataset"
	"github.com/licsalert/licsalert/internal/outwriter"
	"github.com/licsalert/licsalert/schema"
)

// ExecutorFunc defines the function signature for executing the dataset commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StateManager) error

// ErrNoVolcano means monitoring was asked for without a volcano to look up.
var ErrNoVolcano = errors.New("a volcano name is required to look up the stored baseline")

// ExecuteRun runs licsalert on a dataset from scratch, stores the result,
// and prints it. It serves as the main entry point for the 'run' command.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.StateManager) error {
	result, duration, err := GetRunResult(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAlert(result, cfg, duration)
}

// ExecuteMonitor continues the latest stored baseline for a volcano with the
// monitoring interferograms of a dataset. It serves as the main entry point
// for the 'monitor' command.
func ExecuteMonitor(ctx context.Context, cfg *contract.Config, mgr contract.StateManager) error {
	result, duration, err := GetMonitorResult(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAlert(result, cfg, duration)
}

// ExecuteAcquisitions builds the daisy chain for a set of acquisition dates
// and flags the interferograms missing from known.
func ExecuteAcquisitions(_ context.Context, cfg *contract.Config, dates, known []string) error {
	report, err := acquisition.BuildReport(dates, known)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAcquisitions(report, cfg)
}

// GetRunResult loads the dataset, runs licsalert and stores the result.
func GetRunResult(ctx context.Context, cfg *contract.Config, mgr contract.StateManager) (schema.EnrichedAlertResult, time.Duration, error) {
	start := time.Now()
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}
	if ds, err = cropDataset(cfg, ds); err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}

	volcano := resolveVolcano(cfg, ds)
	nBaseline := resolveBaseline(cfg, ds)
	tRecalculate := resolveTRecalculate(cfg, ds)

	baseline, monitoring, err := ds.Split(nBaseline)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}
	if !shouldSuppressHeader(ctx) {
		logRunHeader(cfg, volcano, ds, nBaseline, tRecalculate)
	}

	result, err := Run(ds.Sources, ds.TimeValues, baseline, monitoring, tRecalculate)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, fmt.Errorf("licsalert failed for %s: %w", volcano, err)
	}

	enriched := schema.Enrich(volcano, result, cfg.AlertThreshold)
	enriched.RunID = saveRun(mgr, volcano, tRecalculate, result)
	return enriched, time.Since(start), nil
}

// GetMonitorResult loads the dataset, extends the stored baseline with the
// interferograms that follow it and stores the result.
func GetMonitorResult(ctx context.Context, cfg *contract.Config, mgr contract.StateManager) (schema.EnrichedAlertResult, time.Duration, error) {
	start := time.Now()
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}

	volcano := resolveVolcano(cfg, ds)
	if volcano == "" {
		return schema.EnrichedAlertResult{}, 0, ErrNoVolcano
	}
	store := stateStoreOf(mgr)
	if store == nil {
		return schema.EnrichedAlertResult{}, 0, errors.New("state store is not initialized")
	}

	prior, record, err := store.GetLatestRun(volcano)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}
	if prior.Mode != schema.BaselineOnly {
		prior = prior.Baseline()
	}
	if ds.Len() < prior.NBaseline {
		return schema.EnrichedAlertResult{}, 0, fmt.Errorf("%w: dataset has %d interferograms, stored baseline has %d",
			ErrPriorMismatch, ds.Len(), prior.NBaseline)
	}

	baseline, monitoring, err := ds.Split(prior.NBaseline)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, err
	}
	tRecalculate := int(record.TRecalculate)
	if !shouldSuppressHeader(ctx) {
		logRunHeader(cfg, volcano, ds, prior.NBaseline, tRecalculate)
	}

	result, err := Extend(prior, ds.Sources, ds.TimeValues, baseline, monitoring)
	if err != nil {
		return schema.EnrichedAlertResult{}, 0, fmt.Errorf("monitoring failed for %s (run %d): %w", volcano, record.RunID, err)
	}

	enriched := schema.Enrich(volcano, result, cfg.AlertThreshold)
	if result.Mode == schema.BaselinePlusMonitoring {
		enriched.RunID = saveRun(mgr, volcano, tRecalculate, result)
	} else {
		enriched.RunID = record.RunID
	}
	return enriched, time.Since(start), nil
}

// saveRun stores the result when a store is configured. Failures only warn,
// the result itself is still valid.
func saveRun(mgr contract.StateManager, volcano string, tRecalculate int, result schema.AlertResult) int64 {
	store := stateStoreOf(mgr)
	if store == nil {
		return 0
	}
	runID, err := store.SaveRun(volcano, time.Now(), tRecalculate, result)
	if err != nil {
		contract.LogWarn("Failed to store licsalert state", err)
		return 0
	}
	return runID
}

func stateStoreOf(mgr contract.StateManager) contract.StateStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetStateStore()
}

// resolveVolcano picks the flag, then the manifest, then the manifest file name.
func resolveVolcano(cfg *contract.Config, ds *dataset.Dataset) string {
	if cfg.Volcano != "" {
		return cfg.Volcano
	}
	if ds.Volcano != "" {
		return ds.Volcano
	}
	if cfg.DatasetPath == "" {
		return ""
	}
	base := filepath.Base(cfg.DatasetPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cropDataset keeps interferograms [Start, End) when either bound is set.
func cropDataset(cfg *contract.Config, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if cfg.Start == 0 && cfg.End == 0 {
		return ds, nil
	}
	end := cfg.End
	if end == 0 {
		end = ds.Len()
	}
	return ds.Shorten(cfg.Start, end)
}

// resolveBaseline picks the flag, then the manifest, then every interferogram.
func resolveBaseline(cfg *contract.Config, ds *dataset.Dataset) int {
	switch {
	case cfg.NBaseline > 0:
		return cfg.NBaseline
	case ds.NBaseline > 0:
		return ds.NBaseline
	default:
		return ds.Len()
	}
}

// resolveTRecalculate picks the flag, then the manifest, then the default window.
func resolveTRecalculate(cfg *contract.Config, ds *dataset.Dataset) int {
	switch {
	case cfg.TRecalculate > 0:
		return cfg.TRecalculate
	case ds.TRecalculate > 0:
		return ds.TRecalculate
	default:
		return schema.DefaultTRecalculate
	}
}
