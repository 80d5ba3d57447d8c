// Package schema has the models shared by every part of licsalert.
package schema

import (
	"encoding/json"
	"math"
	"slices"
)

// TrendState is the tracking record for one channel (a source or the residual).
// It holds everything needed to score later time steps without replaying history.
type TrendState struct {
	CumulativeTC    []float64   // Cumulative time course, one value per time step
	Gradient        float64     // Slope fitted to the baseline, never refit
	TRecalculate    int         // Rolling window length in time steps
	Lines           [][]float64 // Square [time_step][line_id] matrix, NaN outside each window
	Sigma           float64     // Std dev of baseline line-to-point distances
	Distances       []float64   // |point - line| / sigma per time step
	DegenerateSigma bool        // Sigma was zero within tolerance when the baseline was fitted
}

// Len returns the number of time steps tracked by the state.
func (s TrendState) Len() int {
	return len(s.CumulativeTC)
}

// Clone returns a deep copy of the state.
func (s TrendState) Clone() TrendState {
	clone := s
	clone.CumulativeTC = slices.Clone(s.CumulativeTC)
	clone.Distances = slices.Clone(s.Distances)
	if s.Lines != nil {
		clone.Lines = make([][]float64, len(s.Lines))
		for i, row := range s.Lines {
			clone.Lines[i] = slices.Clone(row)
		}
	}
	return clone
}

// Truncate returns a copy of the state covering only the first n time steps.
func (s TrendState) Truncate(n int) TrendState {
	out := s.Clone()
	n = min(n, s.Len())
	out.CumulativeTC = out.CumulativeTC[:n]
	if len(out.Distances) > n {
		out.Distances = out.Distances[:n]
	}
	if len(out.Lines) > n {
		out.Lines = out.Lines[:n]
	}
	for i, row := range out.Lines {
		if len(row) > n {
			out.Lines[i] = row[:n]
		}
	}
	return out
}

// LineColumn returns the y values of rolling line lineID across all time steps.
// Steps outside the line's window are NaN.
func (s TrendState) LineColumn(lineID int) []float64 {
	col := make([]float64, len(s.Lines))
	for i, row := range s.Lines {
		if lineID < len(row) {
			col[i] = row[lineID]
		} else {
			col[i] = math.NaN()
		}
	}
	return col
}

// trendStateWire is the JSON form of TrendState. Non-finite values need Float.
type trendStateWire struct {
	CumulativeTC    []Float   `json:"cumulative_tc"`
	Gradient        Float     `json:"gradient"`
	TRecalculate    int       `json:"t_recalculate"`
	Lines           [][]Float `json:"lines"`
	Sigma           Float     `json:"sigma"`
	Distances       []Float   `json:"distances"`
	DegenerateSigma bool      `json:"degenerate_sigma,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s TrendState) MarshalJSON() ([]byte, error) {
	wire := trendStateWire{
		CumulativeTC:    ToFloats(s.CumulativeTC),
		Gradient:        Float(s.Gradient),
		TRecalculate:    s.TRecalculate,
		Lines:           make([][]Float, len(s.Lines)),
		Sigma:           Float(s.Sigma),
		Distances:       ToFloats(s.Distances),
		DegenerateSigma: s.DegenerateSigma,
	}
	for i, row := range s.Lines {
		wire.Lines[i] = ToFloats(row)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *TrendState) UnmarshalJSON(data []byte) error {
	var wire trendStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.CumulativeTC = FromFloats(wire.CumulativeTC)
	s.Gradient = float64(wire.Gradient)
	s.TRecalculate = wire.TRecalculate
	s.Sigma = float64(wire.Sigma)
	s.Distances = FromFloats(wire.Distances)
	s.DegenerateSigma = wire.DegenerateSigma
	s.Lines = make([][]float64, len(wire.Lines))
	for i, row := range wire.Lines {
		s.Lines[i] = FromFloats(row)
	}
	return nil
}

// CloneStates deep copies a list of states.
func CloneStates(states []TrendState) []TrendState {
	if states == nil {
		return nil
	}
	out := make([]TrendState, len(states))
	for i, s := range states {
		out[i] = s.Clone()
	}
	return out
}
