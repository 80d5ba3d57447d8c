package schema

import "slices"

// StepRow is one channel at one time step, flattened for tabular output.
type StepRow struct {
	Channel    string   `json:"channel"`
	Step       int      `json:"step"`
	TimeValue  float64  `json:"time_value"`
	Cumulative float64  `json:"cumulative"`
	LineValue  Float    `json:"line_value"`
	Distance   Float    `json:"distance"`
	Monitoring bool     `json:"monitoring"`
	Drawn      bool     `json:"drawn"` // the line ending at this step is one of LineArgs
	Label      Severity `json:"label"`
}

// PlotLine is one rolling line of a channel, sampled at every time step.
type PlotLine struct {
	Channel string  `json:"channel"`
	LineID  int     `json:"line_id"`
	Values  []Float `json:"values"` // NaN outside the line's window
}

// ChannelSummary is the latest state of one channel.
type ChannelSummary struct {
	Channel      string   `json:"channel"`
	Gradient     float64  `json:"gradient"`
	Sigma        float64  `json:"sigma"`
	LastTime     float64  `json:"last_time"`
	LastValue    float64  `json:"last_value"`
	LastDistance Float    `json:"last_distance"`
	MaxDistance  Float    `json:"max_distance"`
	Label        Severity `json:"label"`
	Alert        bool     `json:"alert"`
}

// EnrichedAlertResult adds presentation data to an AlertResult.
type EnrichedAlertResult struct {
	Volcano   string           `json:"volcano,omitempty"`
	RunID     int64            `json:"run_id,omitempty"` // zero when the result was not stored
	Summaries []ChannelSummary `json:"summaries"`
	Steps     []StepRow        `json:"steps"`

	LineArgs              []int      `json:"line_args"`
	BaselineMonitorChange float64    `json:"baseline_monitor_change"`
	PlotLines             []PlotLine `json:"plot_lines"`
	AlertResult
}

// FlattenSteps converts every channel of a result into step rows.
// The line value of a step is taken from the line ending at that step.
func FlattenSteps(r AlertResult) []StepRow {
	var rows []StepRow
	for _, ch := range r.Channels() {
		s := ch.State
		drawn := LineArgs(s.Len(), s.TRecalculate)
		for t := range s.Len() {
			row := StepRow{
				Channel:    ch.Name,
				Step:       t,
				Cumulative: s.CumulativeTC[t],
				Monitoring: t >= r.NBaseline,
				Drawn:      slices.Contains(drawn, t),
			}
			if t < len(r.TimeValues) {
				row.TimeValue = r.TimeValues[t]
			}
			if t < len(s.Lines) && t < len(s.Lines[t]) {
				row.LineValue = Float(s.Lines[t][t])
			}
			if t < len(s.Distances) {
				row.Distance = Float(s.Distances[t])
				row.Label = SeverityFor(s.Distances[t])
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// PlotLines samples the drawn rolling lines of every channel.
func PlotLines(r AlertResult) []PlotLine {
	var out []PlotLine
	for _, ch := range r.Channels() {
		for _, id := range LineArgs(ch.State.Len(), ch.State.TRecalculate) {
			out = append(out, PlotLine{
				Channel: ch.Name,
				LineID:  id,
				Values:  ToFloats(ch.State.LineColumn(id)),
			})
		}
	}
	return out
}

// Summarize builds the latest-value summary for every channel.
// A channel alerts when a monitoring step reaches the threshold.
func Summarize(r AlertResult, threshold float64) []ChannelSummary {
	var out []ChannelSummary
	for _, ch := range r.Channels() {
		s := ch.State
		summary := ChannelSummary{
			Channel:  ch.Name,
			Gradient: s.Gradient,
			Sigma:    s.Sigma,
		}
		n := s.Len()
		if n > 0 {
			summary.LastValue = s.CumulativeTC[n-1]
			if n-1 < len(r.TimeValues) {
				summary.LastTime = r.TimeValues[n-1]
			}
		}
		var maxDist float64
		for t, d := range s.Distances {
			if d > maxDist {
				maxDist = d
			}
			if t >= r.NBaseline && d >= threshold {
				summary.Alert = true
			}
		}
		if len(s.Distances) > 0 {
			last := s.Distances[len(s.Distances)-1]
			summary.LastDistance = Float(last)
			summary.Label = SeverityFor(last)
		}
		summary.MaxDistance = Float(maxDist)
		out = append(out, summary)
	}
	return out
}

// Enrich adds summaries, step rows and plotting data to a result.
func Enrich(volcano string, r AlertResult, threshold float64) EnrichedAlertResult {
	var lineArgs []int
	if len(r.Sources) > 0 {
		lineArgs = LineArgs(r.NTimes(), r.Sources[0].TRecalculate)
	}
	return EnrichedAlertResult{
		Volcano:               volcano,
		Summaries:             Summarize(r, threshold),
		Steps:                 FlattenSteps(r),
		LineArgs:              lineArgs,
		BaselineMonitorChange: r.BaselineMonitorChange(),
		PlotLines:             PlotLines(r),
		AlertResult:           r,
	}
}
