package algo

import (
	"fmt"
	"math"

	"github.com/licsalert/licsalert/schema"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ExtendMode selects how ExtendMonitoring treats its input rows.
type ExtendMode int

const (
	// SourceMode appends new monitoring values, offset so they continue from
	// the last tracked value.
	SourceMode ExtendMode = iota
	// ResidualMode replaces the whole series with a recomputed one that covers
	// the tracked steps plus the new ones.
	ResidualMode
)

func (m ExtendMode) String() string {
	switch m {
	case SourceMode:
		return "source"
	case ResidualMode:
		return "residual"
	default:
		return fmt.Sprintf("ExtendMode(%d)", int(m))
	}
}

// ExtendMonitoring scores new time steps against rolling lines that keep the
// baseline gradient but re-anchor their intercept on the preceding
// t_recalculate points. The input states are not modified. A nil cumulative
// matrix means no new steps and returns a deep copy of states.
//
// timeValues covers every step of the extended series.
func ExtendMonitoring(cumulative mat.Matrix, states []schema.TrendState, timeValues []float64, mode ExtendMode) ([]schema.TrendState, error) {
	out := schema.CloneStates(states)
	if IsEmpty(cumulative) {
		return out, nil
	}

	rows, cols := cumulative.Dims()
	if cols != len(states) {
		return nil, fmt.Errorf("%w: %d columns for %d trend states", ErrDimensionMismatch, cols, len(states))
	}

	for j := range out {
		s := &out[j]
		tracked := s.Len()
		if s.TRecalculate < 1 {
			return nil, fmt.Errorf("%w: state %d has %d", ErrInvalidWindow, j, s.TRecalculate)
		}

		switch mode {
		case SourceMode:
			var offset float64
			if tracked > 0 {
				offset = s.CumulativeTC[tracked-1]
			}
			for i := range rows {
				s.CumulativeTC = append(s.CumulativeTC, cumulative.At(i, j)+offset)
			}
		case ResidualMode:
			if rows < tracked {
				return nil, fmt.Errorf("%w: residual series has %d steps, %d already tracked", ErrDimensionMismatch, rows, tracked)
			}
			s.CumulativeTC = Column(cumulative, j)
		default:
			return nil, fmt.Errorf("unknown extend mode %v", mode)
		}

		total := s.Len()
		if err := validateTracking(total, timeValues, s.TRecalculate); err != nil {
			return nil, err
		}
		growState(s, total)

		for t := tracked; t < total; t++ {
			start := max(0, t-s.TRecalculate)
			if start == t {
				// nothing precedes the first step, so score against its own value
				s.Lines[t][t] = s.CumulativeTC[t]
				continue
			}
			intercept := stat.Mean(s.CumulativeTC[start:t], nil) - s.Gradient*stat.Mean(timeValues[start:t], nil)
			for r := start; r <= t; r++ {
				s.Lines[r][t] = intercept + s.Gradient*timeValues[r]
			}
			s.Distances[t] = channelDistance(s.CumulativeTC[t]-s.Lines[t][t], s.Sigma, s.DegenerateSigma, flatTolerance(s.CumulativeTC[:t+1]))
		}
	}
	return out, nil
}

// growState pads lines with NaN and distances with zero up to n steps.
func growState(s *schema.TrendState, n int) {
	for i, row := range s.Lines {
		for len(row) < n {
			row = append(row, math.NaN())
		}
		s.Lines[i] = row
	}
	for len(s.Lines) < n {
		row := make([]float64, n)
		for j := range row {
			row[j] = math.NaN()
		}
		s.Lines = append(s.Lines, row)
	}
	for len(s.Distances) < n {
		s.Distances = append(s.Distances, 0)
	}
}
