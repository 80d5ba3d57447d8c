package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() TrendState {
	nan := math.NaN()
	return TrendState{
		CumulativeTC: []float64{0, 1, 2},
		Gradient:     0.5,
		TRecalculate: 2,
		Lines: [][]float64{
			{0, nan, nan},
			{1, 1, nan},
			{nan, 2, 2},
		},
		Sigma:     0.1,
		Distances: []float64{0, 0, math.Inf(1)},
	}
}

func TestTrendStateJSONRoundTrip(t *testing.T) {
	state := sampleState()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")
	assert.Contains(t, string(data), `"+Inf"`)

	var decoded TrendState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, state.CumulativeTC, decoded.CumulativeTC)
	assert.Equal(t, state.Gradient, decoded.Gradient)
	assert.Equal(t, state.TRecalculate, decoded.TRecalculate)
	assert.True(t, math.IsNaN(decoded.Lines[0][1]))
	assert.Equal(t, 2.0, decoded.Lines[2][2])
	assert.True(t, math.IsInf(decoded.Distances[2], 1))
}

func TestTrendStateClone(t *testing.T) {
	state := sampleState()
	clone := state.Clone()
	clone.CumulativeTC[0] = 99
	clone.Lines[1][0] = 99
	clone.Distances[0] = 99

	assert.Equal(t, 0.0, state.CumulativeTC[0])
	assert.Equal(t, 1.0, state.Lines[1][0])
	assert.Equal(t, 0.0, state.Distances[0])
	assert.Nil(t, CloneStates(nil))
}

func TestLineColumn(t *testing.T) {
	col := sampleState().LineColumn(1)
	require.Len(t, col, 3)
	assert.True(t, math.IsNaN(col[0]))
	assert.Equal(t, []float64{1, 2}, col[1:])
}

func TestFloatUnmarshal(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1.5", 1.5},
		{`"-Inf"`, math.Inf(-1)},
		{`"Inf"`, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var f Float
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			assert.Equal(t, tt.expected, float64(f))
		})
	}

	var f Float
	assert.Error(t, f.UnmarshalJSON([]byte(`"abc"`)))
}

func TestLineArgs(t *testing.T) {
	tests := []struct {
		name     string
		n, tr    int
		expected []int
	}{
		{"every window", 10, 3, []int{2, 5, 8, 9}},
		{"last is window end", 7, 3, []int{2, 5, 6}},
		{"short series", 2, 5, []int{1}},
		{"invalid window", 5, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LineArgs(tt.n, tt.tr))
		})
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, LowSeverity, SeverityFor(0.5))
	assert.Equal(t, ModerateSeverity, SeverityFor(2))
	assert.Equal(t, HighSeverity, SeverityFor(4))
	assert.Equal(t, CriticalSeverity, SeverityFor(5))
	assert.Equal(t, CriticalSeverity, SeverityFor(math.Inf(1)))
	assert.Equal(t, LowSeverity, SeverityFor(math.NaN()))
}

func TestBaselineMonitorChange(t *testing.T) {
	r := AlertResult{NBaseline: 2, TimeValues: []float64{12, 24, 36}, NMonitoring: 1}
	assert.Equal(t, 30.0, r.BaselineMonitorChange())

	r = AlertResult{NBaseline: 2, TimeValues: []float64{12, 24}}
	assert.Equal(t, 30.0, r.BaselineMonitorChange())
	assert.Equal(t, 0.0, AlertResult{}.BaselineMonitorChange())
}

func TestEnrich(t *testing.T) {
	state := sampleState()
	r := AlertResult{
		Mode:        BaselinePlusMonitoring,
		NBaseline:   2,
		NMonitoring: 1,
		TimeValues:  []float64{12, 24, 36},
		Sources:     []TrendState{state},
		Residual:    []TrendState{state},
		ResidualRMS: []float64{0, 0, 0},
	}
	enriched := Enrich("etna", r, DefaultAlertThreshold)

	require.Len(t, enriched.Summaries, 2)
	assert.Equal(t, "IC 1", enriched.Summaries[0].Channel)
	assert.Equal(t, ResidualChannel, enriched.Summaries[1].Channel)
	assert.True(t, enriched.Summaries[0].Alert)
	assert.Equal(t, CriticalSeverity, enriched.Summaries[0].Label)
	assert.Equal(t, 36.0, enriched.Summaries[0].LastTime)

	require.Len(t, enriched.Steps, 6)
	assert.False(t, enriched.Steps[1].Monitoring)
	assert.True(t, enriched.Steps[2].Monitoring)
	assert.Equal(t, Float(1), enriched.Steps[1].LineValue)
	assert.False(t, enriched.Steps[0].Drawn)
	assert.True(t, enriched.Steps[1].Drawn)
	assert.True(t, enriched.Steps[2].Drawn)

	assert.Equal(t, []int{1, 2}, enriched.LineArgs)
	assert.Equal(t, 30.0, enriched.BaselineMonitorChange)
	require.Len(t, enriched.PlotLines, 4)
	first := enriched.PlotLines[0]
	assert.Equal(t, "IC 1", first.Channel)
	assert.Equal(t, 1, first.LineID)
	require.Len(t, first.Values, 3)
	assert.True(t, math.IsNaN(float64(first.Values[0])))
	assert.Equal(t, Float(1), first.Values[1])
	assert.Equal(t, Float(2), first.Values[2])
	assert.Equal(t, ResidualChannel, enriched.PlotLines[3].Channel)

	data, err := json.Marshal(enriched)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"volcano":"etna"`)
	assert.Contains(t, string(data), `"line_args":[1,2]`)
	assert.Contains(t, string(data), `"baseline_monitor_change":30`)
	assert.Contains(t, string(data), `"values":[null,1,2]`)
}

func TestAlertResultClone(t *testing.T) {
	r := AlertResult{TimeValues: []float64{1}, Sources: []TrendState{sampleState()}}
	clone := r.Clone()
	clone.TimeValues[0] = 5
	clone.Sources[0].CumulativeTC[0] = 5
	assert.Equal(t, 1.0, r.TimeValues[0])
	assert.Equal(t, 0.0, r.Sources[0].CumulativeTC[0])
}

func TestTrendStateTruncate(t *testing.T) {
	s := sampleState()
	short := s.Truncate(2)
	assert.Equal(t, []float64{0, 1}, short.CumulativeTC)
	require.Len(t, short.Lines, 2)
	assert.Len(t, short.Lines[1], 2)
	assert.Len(t, short.Distances, 2)
	assert.Equal(t, s.Gradient, short.Gradient)
	// Source is untouched
	assert.Len(t, s.Lines[0], 3)

	assert.Equal(t, 3, s.Truncate(10).Len())
}

func TestAlertResultBaseline(t *testing.T) {
	r := AlertResult{
		Mode:        BaselinePlusMonitoring,
		NBaseline:   2,
		NMonitoring: 1,
		TimeValues:  []float64{12, 24, 36},
		Sources:     []TrendState{sampleState()},
		Residual:    []TrendState{sampleState()},
		ResidualRMS: []float64{0.1, 0.2, 0.3},
	}
	b := r.Baseline()
	assert.Equal(t, BaselineOnly, b.Mode)
	assert.Equal(t, 0, b.NMonitoring)
	assert.Equal(t, []float64{12, 24}, b.TimeValues)
	assert.Equal(t, []float64{0.1, 0.2}, b.ResidualRMS)
	require.Len(t, b.Sources, 1)
	assert.Equal(t, 2, b.Sources[0].Len())
	assert.Equal(t, 2, b.Residual[0].Len())
	assert.Equal(t, 3, r.Sources[0].Len())
}
