package schema

import (
	"fmt"
	"math"
)

// AlertResult is the complete tracking state returned by one licsalert invocation.
// Callers persist it and hand it back when new monitoring interferograms arrive.
type AlertResult struct {
	Mode        RunMode      `json:"mode"`
	NBaseline   int          `json:"n_baseline"`
	NMonitoring int          `json:"n_monitoring"`
	TimeValues  []float64    `json:"time_values"`
	Sources     []TrendState `json:"sources"`
	Residual    []TrendState `json:"residual"` // always a single channel
	ResidualRMS []float64    `json:"residual_rms"`
}

// NTimes returns the number of time steps covered by the result.
func (r AlertResult) NTimes() int {
	return r.NBaseline + r.NMonitoring
}

// Clone returns a deep copy of the result.
func (r AlertResult) Clone() AlertResult {
	clone := r
	clone.TimeValues = append([]float64(nil), r.TimeValues...)
	clone.ResidualRMS = append([]float64(nil), r.ResidualRMS...)
	clone.Sources = CloneStates(r.Sources)
	clone.Residual = CloneStates(r.Residual)
	return clone
}

// Baseline returns a baseline only copy of the result, dropping every
// monitoring step. The gradient and sigma of each channel are unchanged.
func (r AlertResult) Baseline() AlertResult {
	nb := r.NBaseline
	out := AlertResult{
		Mode:        BaselineOnly,
		NBaseline:   nb,
		TimeValues:  append([]float64(nil), r.TimeValues[:min(nb, len(r.TimeValues))]...),
		ResidualRMS: append([]float64(nil), r.ResidualRMS[:min(nb, len(r.ResidualRMS))]...),
	}
	for _, s := range r.Sources {
		out.Sources = append(out.Sources, s.Truncate(nb))
	}
	for _, s := range r.Residual {
		out.Residual = append(out.Residual, s.Truncate(nb))
	}
	return out
}

// Channels returns every tracked channel in display order, sources first.
func (r AlertResult) Channels() []NamedTrendState {
	out := make([]NamedTrendState, 0, len(r.Sources)+len(r.Residual))
	for i, s := range r.Sources {
		out = append(out, NamedTrendState{Name: SourceChannelName(i), Index: i, State: s})
	}
	for _, s := range r.Residual {
		out = append(out, NamedTrendState{Name: ResidualChannel, Index: len(r.Sources), State: s, Residual: true})
	}
	return out
}

// BaselineMonitorChange returns the time value where baseline switches to monitoring.
// Without monitoring data the next acquisition is assumed one revisit after the last.
func (r AlertResult) BaselineMonitorChange() float64 {
	if r.NBaseline == 0 || len(r.TimeValues) < r.NBaseline {
		return 0
	}
	last := r.TimeValues[r.NBaseline-1]
	if len(r.TimeValues) > r.NBaseline {
		return (last + r.TimeValues[r.NBaseline]) / 2
	}
	return last + DefaultRevisitDays/2.0
}

// NamedTrendState pairs a trend state with its display name.
type NamedTrendState struct {
	Name     string     `json:"name"`
	Index    int        `json:"index"`
	Residual bool       `json:"residual"`
	State    TrendState `json:"state"`
}

// SourceChannelName returns the 1-based display name of a source channel.
func SourceChannelName(i int) string {
	return fmt.Sprintf("IC %d", i+1)
}

// LineArgs returns the line ids worth drawing for n time steps. Consecutive
// rolling lines mostly overlap, so only one per window is kept plus the last.
func LineArgs(nTimes, tRecalculate int) []int {
	var args []int
	if tRecalculate < 1 {
		return args
	}
	for k := range nTimes {
		if k%tRecalculate == 0 && k != 0 {
			args = append(args, k-1)
		}
		if k == nTimes-1 && (len(args) == 0 || args[len(args)-1] != k) {
			args = append(args, k)
		}
	}
	return args
}

// SeverityFor maps a sigma distance to a severity level.
func SeverityFor(distance float64) Severity {
	switch {
	case math.IsNaN(distance):
		return LowSeverity
	case distance >= SigmaSaturation:
		return CriticalSeverity
	case distance >= SigmaHigh:
		return HighSeverity
	case distance >= SigmaModerate:
		return ModerateSeverity
	default:
		return LowSeverity
	}
}
