package algo

import (
	"fmt"
	"math"

	"github.com/licsalert/licsalert/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ResidualForPixels rebuilds the interferograms from the sources and the
// cumulative courses in states, then measures what the sources miss. It
// returns, per interferogram, the RMS misfit across pixels and the RMS of the
// misfit summed through time for each pixel. The first nSkip steps of the
// courses are dropped so that ifgs can cover only the later part.
func ResidualForPixels(sources mat.Matrix, states []schema.TrendState, ifgs mat.Matrix, nSkip int) (perStep, cumulative []float64, err error) {
	k, p := sources.Dims()
	if len(states) != k {
		return nil, nil, fmt.Errorf("%w: %d trend states for %d sources", ErrDimensionMismatch, len(states), k)
	}

	courses := make([][]float64, k)
	for j, s := range states {
		courses[j] = s.CumulativeTC
	}
	cum, err := ColumnsOf(courses...)
	if err != nil {
		return nil, nil, err
	}
	n, _ := cum.Dims()

	rows, q := ifgs.Dims()
	if q != p {
		return nil, nil, fmt.Errorf("%w: sources have %d pixels, interferograms have %d", ErrDimensionMismatch, p, q)
	}
	if nSkip < 0 || rows != n-nSkip {
		return nil, nil, fmt.Errorf("%w: %d interferograms for %d time steps after skipping %d", ErrDimensionMismatch, rows, n, nSkip)
	}

	strengths := Incremental(cum).Slice(nSkip, n, 0, k)
	var misfit mat.Dense
	misfit.Sub(ifgs, Reconstruct(strengths, sources))

	perStep = make([]float64, rows)
	cumulative = make([]float64, rows)
	running := make([]float64, p)
	for i := range rows {
		row := misfit.RawRowView(i)
		floats.Add(running, row)
		perStep[i] = math.Sqrt(floats.Dot(row, row) / float64(p))
		cumulative[i] = math.Sqrt(floats.Dot(running, running) / float64(p))
	}
	return perStep, cumulative, nil
}
