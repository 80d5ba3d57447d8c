package algo

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/licsalert/licsalert/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// testSources returns three linearly independent, mean-centred sources over 10 pixels.
func testSources() *mat.Dense {
	return mat.NewDense(3, 10, []float64{
		1, -1, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 1, -1, 0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, -1, -1, -1, -1, 0, 0,
	})
}

func TestDecomposeRoundTrip(t *testing.T) {
	sources := testSources()
	strengths := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		-1, 0.5, 2,
		0, 0, 1,
		4, -2, 0.25,
	})
	ifgs := Reconstruct(strengths, sources)
	before := mat.DenseCopyOf(ifgs)

	dec, err := Decompose(sources, ifgs, false)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(strengths, dec.Strengths, 1e-10))
	for _, r := range dec.Residual {
		assert.InDelta(t, 0, r, 1e-12)
	}
	assert.True(t, mat.Equal(before, ifgs), "input must not be mutated")
}

func TestDecomposeCumulative(t *testing.T) {
	sources := testSources()
	strengths := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		1, 1, 0,
		1, 1, 1,
	})
	dec, err := Decompose(sources, Reconstruct(strengths, sources), true)
	require.NoError(t, err)
	assert.InDelta(t, 3, dec.Strengths.At(2, 0), 1e-10)
	assert.InDelta(t, 2, dec.Strengths.At(2, 1), 1e-10)
	assert.InDelta(t, 1, dec.Strengths.At(2, 2), 1e-10)
	assert.Len(t, dec.Residual, 3)
}

func TestDecomposeErrors(t *testing.T) {
	t.Run("singular sources", func(t *testing.T) {
		sources := mat.NewDense(2, 4, []float64{
			1, -1, 0, 0,
			1, -1, 0, 0,
		})
		ifgs := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
		_, err := Decompose(sources, ifgs, false)
		assert.ErrorIs(t, err, ErrSingularSources)
	})
	t.Run("pixel mismatch", func(t *testing.T) {
		ifgs := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
		_, err := Decompose(testSources(), ifgs, false)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestMeanCentre(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 6})
	centred := MeanCentre(m)
	assert.InDelta(t, 0, mat.Sum(centred), 1e-12)
	assert.Equal(t, -2.0, centred.At(0, 0))
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestCumulativeIncrementalRoundTrip(t *testing.T) {
	inc := mat.NewDense(4, 2, []float64{
		1, -1,
		2, 0.5,
		-3, 0.25,
		0.1, 7,
	})
	cum := CumulativeSum(inc)
	assert.InDelta(t, 0.1, cum.At(3, 0), 1e-12)
	assert.True(t, mat.EqualApprox(inc, Incremental(cum), 1e-12))
	assert.True(t, mat.EqualApprox(cum, CumulativeSum(Incremental(cum)), 1e-12))
}

func TestColumnsOf(t *testing.T) {
	m, err := ColumnsOf([]float64{1, 2}, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, Column(m, 1))

	_, err = ColumnsOf([]float64{1, 2}, []float64{3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = ColumnsOf()
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

// noisyBaseline is y = 0, 1, 1, 2 at t = 1..4: gradient 0.6, intercept -0.5.
func noisyBaseline(t *testing.T, tRecalculate int) []schema.TrendState {
	cum := mat.NewDense(4, 1, []float64{0, 1, 1, 2})
	states, err := TrackBaseline(cum, []float64{1, 2, 3, 4}, tRecalculate)
	require.NoError(t, err)
	require.Len(t, states, 1)
	return states
}

func TestTrackBaseline(t *testing.T) {
	s := noisyBaseline(t, 2)[0]
	assert.InDelta(t, 0.6, s.Gradient, 1e-12)
	assert.InDelta(t, math.Sqrt(0.05), s.Sigma, 1e-12)
	assert.False(t, s.DegenerateSigma)
	assert.Equal(t, 2, s.TRecalculate)
	assert.InDelta(t, 0.1/math.Sqrt(0.05), s.Distances[0], 1e-12)
	assert.InDelta(t, 0.3/math.Sqrt(0.05), s.Distances[1], 1e-12)
	assert.InDelta(t, 1.3, s.Lines[2][3], 1e-12)
	assert.True(t, math.IsNaN(s.Lines[1][3]))
}

func TestTrackBaselineSigmaNormalisation(t *testing.T) {
	cum := mat.NewDense(8, 2, []float64{
		0.3, 1,
		1.1, 0.2,
		1.7, 3,
		3.4, 2.5,
		3.9, 4.1,
		5.2, 4,
		5.8, 6.3,
		7.5, 6.2,
	})
	times := []float64{12, 24, 36, 48, 60, 72, 84, 96}
	states, err := TrackBaseline(cum, times, 3)
	require.NoError(t, err)
	for _, s := range states {
		// distances are raw/sigma, so their mean square is one
		assert.InDelta(t, 1, floats.Dot(s.Distances, s.Distances)/float64(len(s.Distances)), 1e-10)
		assert.Len(t, s.Lines, s.Len())
		assert.Len(t, s.Distances, s.Len())
	}
}

func TestTrackBaselineWindows(t *testing.T) {
	const n, tr = 9, 4
	cum := mat.NewDense(n, 1, nil)
	times := make([]float64, n)
	for i := range n {
		times[i] = float64(12 * (i + 1))
		cum.Set(i, 0, float64(i*i))
	}
	states, err := TrackBaseline(cum, times, tr)
	require.NoError(t, err)

	col := states[0]
	for lineID := range n {
		var defined []int
		for r := range n {
			if !math.IsNaN(col.Lines[r][lineID]) {
				defined = append(defined, r)
			}
		}
		start := max(0, lineID-tr+1)
		require.NotEmpty(t, defined)
		assert.Equal(t, start, defined[0])
		assert.Equal(t, lineID, defined[len(defined)-1])
		if lineID < tr {
			assert.Len(t, defined, lineID+1)
		} else {
			assert.Len(t, defined, tr)
		}
	}
}

func TestTrackBaselineDegenerateSigma(t *testing.T) {
	cum := mat.NewDense(3, 1, []float64{2, 4, 6})
	states, err := TrackBaseline(cum, []float64{1, 2, 3}, 2)
	require.NoError(t, err)
	s := states[0]
	assert.True(t, s.DegenerateSigma)
	assert.Equal(t, []float64{0, 0, 0}, s.Distances)

	assert.Equal(t, math.Inf(1), scaledDistance(1, 0))
	assert.Equal(t, 0.0, scaledDistance(0, 0))
	assert.Equal(t, 2.0, scaledDistance(-1, 0.5))
	assert.Equal(t, math.Inf(1), channelDistance(1e-3, 0, true, 1e-9))
	assert.Equal(t, 0.0, channelDistance(-1e-12, 1e-16, true, 1e-9))
}

// linearSeries is 0.37*(i+1) at t = 12, 24, ...; its OLS residuals are
// rounding noise rather than exact zeros.
func linearSeries(n int) ([]float64, []float64) {
	values := make([]float64, n)
	times := make([]float64, n)
	for i := range n {
		values[i] = 0.37 * float64(i+1)
		times[i] = float64(12 * (i + 1))
	}
	return values, times
}

func TestTrackBaselineNearZeroSigma(t *testing.T) {
	values, times := linearSeries(8)
	states, err := TrackBaseline(mat.NewDense(8, 1, values), times, 4)
	require.NoError(t, err)
	s := states[0]
	assert.True(t, s.DegenerateSigma)
	assert.Less(t, s.Sigma, 1e-9)
	for i, d := range s.Distances {
		assert.Equal(t, 0.0, d, "step %d", i)
	}

	// an exact continuation sits on every rolling line
	all, allTimes := linearSeries(12)
	increments := make([]float64, 4)
	for i := range increments {
		increments[i] = 0.37
	}
	extended, err := ExtendMonitoring(mat.NewDense(4, 1, increments), states, allTimes, SourceMode)
	require.NoError(t, err)
	assert.InDeltaSlice(t, all, extended[0].CumulativeTC, 1e-12)
	for i, d := range extended[0].Distances {
		assert.Equal(t, 0.0, d, "step %d", i)
	}

	// a real departure is still infinitely far from a flat baseline
	jumped := []float64{0.37, 0.37, 0.37, 1.37}
	extended, err = ExtendMonitoring(mat.NewDense(4, 1, jumped), states, allTimes, SourceMode)
	require.NoError(t, err)
	assert.Equal(t, math.Inf(1), extended[0].Distances[11])
	assert.Equal(t, 0.0, extended[0].Distances[10])
}

func TestTrackBaselineValidation(t *testing.T) {
	cum := mat.NewDense(3, 1, []float64{0, 1, 2})
	tests := []struct {
		name     string
		cum      mat.Matrix
		times    []float64
		tr       int
		expected error
	}{
		{"bad window", cum, []float64{1, 2, 3}, 0, ErrInvalidWindow},
		{"short times", cum, []float64{1, 2}, 2, ErrDimensionMismatch},
		{"duplicate time", cum, []float64{1, 1, 2}, 2, ErrTimeValuesNotIncreasing},
		{"unsorted time", cum, []float64{1, 3, 2}, 2, ErrTimeValuesNotIncreasing},
		{"one step", mat.NewDense(1, 1, []float64{1}), []float64{1}, 2, ErrTooFewSteps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrackBaseline(tt.cum, tt.times, tt.tr)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestExtendMonitoringSourceMode(t *testing.T) {
	baseline := noisyBaseline(t, 2)
	extended, err := ExtendMonitoring(mat.NewDense(1, 1, []float64{1}), baseline, []float64{1, 2, 3, 4, 5}, SourceMode)
	require.NoError(t, err)
	s := extended[0]

	assert.Equal(t, []float64{0, 1, 1, 2, 3}, s.CumulativeTC)
	assert.Equal(t, baseline[0].Gradient, s.Gradient)
	assert.Equal(t, baseline[0].Sigma, s.Sigma)
	assert.Equal(t, baseline[0].TRecalculate, s.TRecalculate)
	require.Len(t, s.Lines, 5)
	require.Len(t, s.Distances, 5)
	for _, row := range s.Lines {
		assert.Len(t, row, 5)
	}

	// window is steps 2 and 3: intercept = 1.5 - 0.6*3.5
	assert.InDelta(t, 1.2, s.Lines[2][4], 1e-12)
	assert.InDelta(t, 1.8, s.Lines[3][4], 1e-12)
	assert.InDelta(t, 2.4, s.Lines[4][4], 1e-12)
	assert.True(t, math.IsNaN(s.Lines[1][4]))
	assert.True(t, math.IsNaN(s.Lines[4][3]))
	assert.InDelta(t, 0.6/math.Sqrt(0.05), s.Distances[4], 1e-10)
	assert.Equal(t, baseline[0].Distances, s.Distances[:4])

	// input is untouched
	assert.Len(t, baseline[0].CumulativeTC, 4)
	assert.Len(t, baseline[0].Lines[0], 4)
}

func TestExtendMonitoringResidualMode(t *testing.T) {
	baseline := noisyBaseline(t, 2)
	full := mat.NewDense(5, 1, []float64{0, 1, 1, 2, 3})
	extended, err := ExtendMonitoring(full, baseline, []float64{1, 2, 3, 4, 5}, ResidualMode)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 2, 3}, extended[0].CumulativeTC)
	assert.InDelta(t, 2.4, extended[0].Lines[4][4], 1e-12)

	_, err = ExtendMonitoring(mat.NewDense(2, 1, nil), baseline, []float64{1, 2}, ResidualMode)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestExtendMonitoringNoSteps(t *testing.T) {
	baseline := noisyBaseline(t, 3)
	extended, err := ExtendMonitoring(nil, baseline, []float64{1, 2, 3, 4}, SourceMode)
	require.NoError(t, err)
	require.Len(t, extended, 1)

	// Lines holds NaN, so compare through the JSON form where NaN is null
	want, err := json.Marshal(baseline)
	require.NoError(t, err)
	got, err := json.Marshal(extended)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	for lineID := range 4 {
		assert.Equal(t, fmt.Sprint(baseline[0].LineColumn(lineID)), fmt.Sprint(extended[0].LineColumn(lineID)))
	}

	extended[0].CumulativeTC[0] = 42
	extended[0].Lines[0][0] = 42
	assert.Equal(t, 0.0, baseline[0].CumulativeTC[0])
	assert.NotEqual(t, 42.0, baseline[0].Lines[0][0])
}

func TestExtendMonitoringErrors(t *testing.T) {
	baseline := noisyBaseline(t, 2)
	_, err := ExtendMonitoring(mat.NewDense(1, 2, nil), baseline, []float64{1, 2, 3, 4, 5}, SourceMode)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = ExtendMonitoring(mat.NewDense(1, 1, nil), baseline, []float64{1, 2, 3, 4}, SourceMode)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = ExtendMonitoring(mat.NewDense(1, 1, nil), baseline, []float64{1, 2, 3, 4, 4}, SourceMode)
	assert.ErrorIs(t, err, ErrTimeValuesNotIncreasing)

	assert.Equal(t, "residual", ResidualMode.String())
}

func TestResidualForPixels(t *testing.T) {
	sources := mat.NewDense(1, 2, []float64{1, -1})
	states := []schema.TrendState{{CumulativeTC: []float64{1, 3}}}

	ifgs := mat.NewDense(2, 2, []float64{
		1, -1,
		2, 0,
	})
	perStep, cumulative, err := ResidualForPixels(sources, states, ifgs, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, math.Sqrt2}, perStep, 1e-12)
	assert.InDeltaSlice(t, []float64{0, math.Sqrt2}, cumulative, 1e-12)

	perStep, _, err = ResidualForPixels(sources, states, mat.NewDense(1, 2, []float64{2, 0}), 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{math.Sqrt2}, perStep, 1e-12)
}

func TestResidualForPixelsCancels(t *testing.T) {
	sources := mat.NewDense(1, 2, []float64{1, -1})
	states := []schema.TrendState{{CumulativeTC: []float64{0, 0}}}
	ifgs := mat.NewDense(2, 2, []float64{
		1, 1,
		-1, -1,
	})
	perStep, cumulative, err := ResidualForPixels(sources, states, ifgs, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1}, perStep, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, cumulative, 1e-12)
}

func TestResidualForPixelsErrors(t *testing.T) {
	sources := mat.NewDense(1, 2, []float64{1, -1})
	states := []schema.TrendState{{CumulativeTC: []float64{1, 3}}}

	_, _, err := ResidualForPixels(sources, append(states, states...), mat.NewDense(2, 2, nil), 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, _, err = ResidualForPixels(sources, states, mat.NewDense(2, 3, nil), 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, _, err = ResidualForPixels(sources, states, mat.NewDense(2, 2, nil), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
