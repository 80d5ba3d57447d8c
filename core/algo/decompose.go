// Package algo has the numerical core of licsalert: projecting interferograms
// onto fixed sources and tracking each channel against a rolling linear trend.
package algo

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularSources means the sources are linearly dependent, so the
	// least squares system has no unique solution.
	ErrSingularSources = errors.New("sources matrix is singular")

	// ErrDimensionMismatch means two inputs disagree on a shared dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrTimeValuesNotIncreasing means time values are unsorted or repeated.
	ErrTimeValuesNotIncreasing = errors.New("time values must be strictly increasing")

	// ErrInvalidWindow means t_recalculate is below one.
	ErrInvalidWindow = errors.New("t_recalculate must be at least 1")

	// ErrTooFewSteps means the baseline cannot support a line fit.
	ErrTooFewSteps = errors.New("at least two baseline time steps are required")
)

// Decomposition is the result of projecting interferograms onto sources.
type Decomposition struct {
	Strengths *mat.Dense // n x k, one column per source
	Residual  []float64  // per interferogram, L2 norm of the misfit divided by pixel count
}

// Decompose finds the strength of each source in each interferogram by least
// squares. The interferograms are mean-centred with one global mean first;
// the caller's matrix is left untouched. With cumulative set, both outputs
// are running sums through time.
func Decompose(sources, ifgs mat.Matrix, cumulative bool) (Decomposition, error) {
	k, p := sources.Dims()
	n, q := ifgs.Dims()
	if p != q {
		return Decomposition{}, fmt.Errorf("%w: sources have %d pixels, interferograms have %d", ErrDimensionMismatch, p, q)
	}

	centred := MeanCentre(ifgs)

	// G = sourcesᵀ, so GᵀG = sources·sourcesᵀ
	var gtg, inv mat.Dense
	gtg.Mul(sources, sources.T())
	if err := inv.Inverse(&gtg); err != nil {
		return Decomposition{}, fmt.Errorf("%w: %v", ErrSingularSources, err)
	}

	// m = (GᵀG)⁻¹ Gᵀ d for every row d at once
	var proj mat.Dense
	proj.Mul(centred, sources.T())
	strengths := mat.NewDense(n, k, nil)
	strengths.Mul(&proj, inv.T())

	recon := Reconstruct(strengths, sources)
	var misfit mat.Dense
	misfit.Sub(centred, recon)
	residual := make([]float64, n)
	for i := range n {
		residual[i] = floats.Norm(misfit.RawRowView(i), 2) / float64(p)
	}

	if cumulative {
		strengths = CumulativeSum(strengths)
		floats.CumSum(residual, residual)
	}
	return Decomposition{Strengths: strengths, Residual: residual}, nil
}

// MeanCentre returns a copy of m with the mean of all its values removed.
func MeanCentre(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.DenseCopyOf(m)
	mean := mat.Sum(out) / float64(r*c)
	out.Apply(func(_, _ int, v float64) float64 { return v - mean }, out)
	return out
}

// Reconstruct rebuilds interferograms from source strengths (n x k) and sources (k x p).
func Reconstruct(strengths, sources mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(strengths, sources)
	return &out
}

// CumulativeSum returns the running sum of m down each column.
func CumulativeSum(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.DenseCopyOf(m)
	for i := 1; i < r; i++ {
		for j := range c {
			out.Set(i, j, out.At(i-1, j)+out.At(i, j))
		}
	}
	return out
}

// Incremental undoes CumulativeSum: each row minus the one above it, with the
// first row kept as is.
func Incremental(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.DenseCopyOf(m)
	for i := r - 1; i > 0; i-- {
		for j := range c {
			out.Set(i, j, m.At(i, j)-m.At(i-1, j))
		}
	}
	return out
}

// Column returns column j of m as a new slice.
func Column(m mat.Matrix, j int) []float64 {
	return mat.Col(nil, j, m)
}

// ColumnsOf builds an n x len(cols) matrix from column slices of equal length.
func ColumnsOf(cols ...[]float64) (*mat.Dense, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, fmt.Errorf("%w: no columns to stack", ErrDimensionMismatch)
	}
	n := len(cols[0])
	out := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		if len(col) != n {
			return nil, fmt.Errorf("%w: column %d has %d rows, want %d", ErrDimensionMismatch, j, len(col), n)
		}
		out.SetCol(j, col)
	}
	return out, nil
}

// IsEmpty reports whether m holds no data. A nil interface, a nil *mat.Dense
// and a zero-value mat.Dense are all empty.
func IsEmpty(m mat.Matrix) bool {
	switch d := m.(type) {
	case nil:
		return true
	case *mat.Dense:
		return d == nil || d.IsEmpty()
	}
	return false
}
