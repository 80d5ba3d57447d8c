package core

import (
	"errors"
	"fmt"
	"slices"

	"github.com/licsalert/licsalert/core/algo"
	"github.com/licsalert/licsalert/schema"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrPriorNotBaseline means Extend was given a result that already has monitoring data.
	ErrPriorNotBaseline = errors.New("prior result must be baseline only")

	// ErrPriorMismatch means the supplied baseline does not match the stored result.
	ErrPriorMismatch = errors.New("baseline does not match prior result")

	// ErrNoBaseline means no baseline interferograms were supplied.
	ErrNoBaseline = errors.New("baseline interferograms are required")
)

// Run decomposes the baseline interferograms, builds a trend state for every
// source plus the residual, and scores the monitoring interferograms when
// there are any. A nil monitoring matrix gives a baseline only result.
// timeValues has one entry per baseline and monitoring interferogram.
func Run(sources mat.Matrix, timeValues []float64, baselineIfgs, monitoringIfgs mat.Matrix, tRecalculate int) (schema.AlertResult, error) {
	if algo.IsEmpty(baselineIfgs) {
		return schema.AlertResult{}, ErrNoBaseline
	}
	nb, _ := baselineIfgs.Dims()
	total := nb + rowsOf(monitoringIfgs)
	if len(timeValues) != total {
		return schema.AlertResult{}, fmt.Errorf("%w: %d time values for %d interferograms", algo.ErrDimensionMismatch, len(timeValues), total)
	}

	baseline, err := runBaseline(sources, timeValues[:nb], baselineIfgs, tRecalculate)
	if err != nil {
		return schema.AlertResult{}, err
	}
	if algo.IsEmpty(monitoringIfgs) {
		return baseline, nil
	}
	return runMonitoring(baseline, sources, timeValues, baselineIfgs, monitoringIfgs)
}

// Extend continues a stored baseline only result with monitoring
// interferograms. The baseline gradient and sigma are reused, never refit.
// baselineIfgs must be the same interferograms the prior was built from.
func Extend(prior schema.AlertResult, sources mat.Matrix, timeValues []float64, baselineIfgs, monitoringIfgs mat.Matrix) (schema.AlertResult, error) {
	if prior.Mode != schema.BaselineOnly {
		return schema.AlertResult{}, fmt.Errorf("%w: got %q", ErrPriorNotBaseline, prior.Mode)
	}
	if algo.IsEmpty(baselineIfgs) {
		return schema.AlertResult{}, ErrNoBaseline
	}
	nb, _ := baselineIfgs.Dims()
	if nb != prior.NBaseline || len(timeValues) < nb || !slices.Equal(timeValues[:nb], prior.TimeValues) {
		return schema.AlertResult{}, fmt.Errorf("%w: prior has %d baseline steps, got %d", ErrPriorMismatch, prior.NBaseline, nb)
	}
	if len(timeValues) != nb+rowsOf(monitoringIfgs) {
		return schema.AlertResult{}, fmt.Errorf("%w: %d time values for %d interferograms", algo.ErrDimensionMismatch, len(timeValues), nb+rowsOf(monitoringIfgs))
	}
	if algo.IsEmpty(monitoringIfgs) {
		return prior.Clone(), nil
	}
	return runMonitoring(prior, sources, timeValues, baselineIfgs, monitoringIfgs)
}

func runBaseline(sources mat.Matrix, timeValues []float64, ifgs mat.Matrix, tRecalculate int) (schema.AlertResult, error) {
	nb, _ := ifgs.Dims()
	dec, err := algo.Decompose(sources, ifgs, true)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("decomposing baseline: %w", err)
	}
	sourceStates, err := algo.TrackBaseline(dec.Strengths, timeValues, tRecalculate)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("tracking baseline sources: %w", err)
	}

	perStep, cumulative, err := algo.ResidualForPixels(sources, sourceStates, algo.MeanCentre(ifgs), 0)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("baseline residual: %w", err)
	}
	residualCol, err := algo.ColumnsOf(cumulative)
	if err != nil {
		return schema.AlertResult{}, err
	}
	residualStates, err := algo.TrackBaseline(residualCol, timeValues, tRecalculate)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("tracking baseline residual: %w", err)
	}

	return schema.AlertResult{
		Mode:        schema.BaselineOnly,
		NBaseline:   nb,
		TimeValues:  slices.Clone(timeValues),
		Sources:     sourceStates,
		Residual:    residualStates,
		ResidualRMS: perStep,
	}, nil
}

// runMonitoring extends a baseline result. The residual is recomputed over
// baseline and monitoring together, each segment centred on its own mean the
// same way Decompose centres it.
func runMonitoring(baseline schema.AlertResult, sources mat.Matrix, timeValues []float64, baselineIfgs, monitoringIfgs mat.Matrix) (schema.AlertResult, error) {
	nm, _ := monitoringIfgs.Dims()
	dec, err := algo.Decompose(sources, monitoringIfgs, true)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("decomposing monitoring: %w", err)
	}
	sourceStates, err := algo.ExtendMonitoring(dec.Strengths, baseline.Sources, timeValues, algo.SourceMode)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("extending sources: %w", err)
	}

	var all mat.Dense
	all.Stack(algo.MeanCentre(baselineIfgs), algo.MeanCentre(monitoringIfgs))
	perStep, cumulative, err := algo.ResidualForPixels(sources, sourceStates, &all, 0)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("monitoring residual: %w", err)
	}
	residualCol, err := algo.ColumnsOf(cumulative)
	if err != nil {
		return schema.AlertResult{}, err
	}
	residualStates, err := algo.ExtendMonitoring(residualCol, baseline.Residual, timeValues, algo.ResidualMode)
	if err != nil {
		return schema.AlertResult{}, fmt.Errorf("extending residual: %w", err)
	}

	return schema.AlertResult{
		Mode:        schema.BaselinePlusMonitoring,
		NBaseline:   baseline.NBaseline,
		NMonitoring: nm,
		TimeValues:  slices.Clone(timeValues),
		Sources:     sourceStates,
		Residual:    residualStates,
		ResidualRMS: perStep,
	}, nil
}

func rowsOf(m mat.Matrix) int {
	if algo.IsEmpty(m) {
		return 0
	}
	r, _ := m.Dims()
	return r
}
