package algo

import (
	"fmt"
	"math"

	"github.com/licsalert/licsalert/schema"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TrackBaseline fits one line per channel over the whole baseline and builds
// the trend state of every column of cumulative (n x k). The gradient and
// sigma found here are never refit.
func TrackBaseline(cumulative mat.Matrix, timeValues []float64, tRecalculate int) ([]schema.TrendState, error) {
	n, k := cumulative.Dims()
	if err := validateTracking(n, timeValues, tRecalculate); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSteps, n)
	}

	states := make([]schema.TrendState, k)
	for j := range k {
		states[j] = baselineState(Column(cumulative, j), timeValues, tRecalculate)
	}
	return states, nil
}

func baselineState(series, timeValues []float64, tRecalculate int) schema.TrendState {
	n := len(series)
	intercept, gradient := stat.LinearRegression(timeValues, series, nil, false)

	fitted := make([]float64, n)
	raw := make([]float64, n)
	for i, x := range timeValues {
		fitted[i] = intercept + gradient*x
		raw[i] = series[i] - fitted[i]
	}

	lines := nanSquare(n)
	for t := range n {
		for r := max(0, t-tRecalculate+1); r <= t; r++ {
			lines[r][t] = fitted[r]
		}
	}

	sigma := stat.PopStdDev(raw, nil)
	tol := flatTolerance(series)
	degenerate := sigma <= tol
	distances := make([]float64, n)
	for i, d := range raw {
		distances[i] = channelDistance(d, sigma, degenerate, tol)
	}

	return schema.TrendState{
		CumulativeTC:    append([]float64(nil), series...),
		Gradient:        gradient,
		TRecalculate:    tRecalculate,
		Lines:           lines,
		Sigma:           sigma,
		Distances:       distances,
		DegenerateSigma: degenerate,
	}
}

// sigmaTolerance is the relative size below which sigma and line-to-point
// distances count as zero. OLS on an exact line leaves residuals near 1e-16.
const sigmaTolerance = 1e-9

// flatTolerance scales sigmaTolerance by the largest magnitude in series,
// never below sigmaTolerance itself.
func flatTolerance(series []float64) float64 {
	largest := 1.0
	for _, v := range series {
		if a := math.Abs(v); a > largest {
			largest = a
		}
	}
	return sigmaTolerance * largest
}

// channelDistance scores raw against sigma. A degenerate channel gives 0 for a
// point within tol of the line and +Inf otherwise.
func channelDistance(raw, sigma float64, degenerate bool, tol float64) float64 {
	if degenerate {
		if math.Abs(raw) <= tol {
			return 0
		}
		return math.Inf(1)
	}
	return scaledDistance(raw, sigma)
}

// scaledDistance converts a raw line-to-point distance into sigmas. A zero
// sigma gives 0 for a point on the line and +Inf otherwise.
func scaledDistance(raw, sigma float64) float64 {
	if sigma == 0 {
		if raw == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(raw) / sigma
}

func nanSquare(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = math.NaN()
		}
	}
	return out
}

func validateTracking(n int, timeValues []float64, tRecalculate int) error {
	if tRecalculate < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, tRecalculate)
	}
	if len(timeValues) != n {
		return fmt.Errorf("%w: %d time values for %d time steps", ErrDimensionMismatch, len(timeValues), n)
	}
	return ValidateTimeValues(timeValues)
}

// ValidateTimeValues checks that time values are strictly increasing.
func ValidateTimeValues(timeValues []float64) error {
	for i := 1; i < len(timeValues); i++ {
		if !(timeValues[i] > timeValues[i-1]) {
			return fmt.Errorf("%w: %g follows %g at index %d", ErrTimeValuesNotIncreasing, timeValues[i], timeValues[i-1], i)
		}
	}
	return nil
}
