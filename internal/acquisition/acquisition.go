// Package acquisition handles Sentinel-1 acquisition dates and the
// daisy-chain interferogram names built from them.
package acquisition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/licsalert/licsalert/schema"
)

// DateLayout is the acquisition date format used in interferogram names.
const DateLayout = "20060102"

// Validation errors.
var (
	ErrTooFewAcquisitions = errors.New("at least two acquisitions are needed")
	ErrNotChronological   = errors.New("acquisitions are not in chronological order")
	ErrBadName            = errors.New("interferogram name is not YYYYMMDD_YYYYMMDD")
)

// ParseDate parses a YYYYMMDD acquisition date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid acquisition date %q: %w", s, err)
	}
	return t, nil
}

// Validate checks that dates parse and are strictly increasing.
func Validate(dates []string) error {
	if len(dates) < 2 {
		return ErrTooFewAcquisitions
	}
	var prev time.Time
	for i, d := range dates {
		t, err := ParseDate(d)
		if err != nil {
			return err
		}
		if i > 0 && !t.After(prev) {
			return fmt.Errorf("%w: %s follows %s", ErrNotChronological, d, dates[i-1])
		}
		prev = t
	}
	return nil
}

// DaisyChain returns the short temporal baseline names between consecutive
// acquisitions, e.g. 20200101_20200113.
func DaisyChain(dates []string) ([]string, error) {
	if err := Validate(dates); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		names = append(names, dates[i-1]+"_"+dates[i])
	}
	return names, nil
}

// SplitName returns the primary and secondary dates of an interferogram name.
func SplitName(name string) (time.Time, time.Time, error) {
	primary, secondary, ok := strings.Cut(name, "_")
	if !ok || len(primary) != len(DateLayout) || len(secondary) != len(DateLayout) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	p, err := ParseDate(primary)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	s, err := ParseDate(secondary)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return p, s, nil
}

// Baselines returns the temporal baseline in days of each interferogram.
func Baselines(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		p, s, err := SplitName(name)
		if err != nil {
			return nil, err
		}
		out[i] = int(s.Sub(p).Hours() / 24)
	}
	return out, nil
}

// TimeValues returns the cumulative day count at the end of each baseline.
func TimeValues(baselines []int) []float64 {
	out := make([]float64, len(baselines))
	total := 0
	for i, b := range baselines {
		total += b
		out[i] = float64(total)
	}
	return out
}

// DetectNew returns the names in current that are absent from previous,
// keeping the order of current.
func DetectNew(previous, current []string) []string {
	seen := make(map[string]struct{}, len(previous))
	for _, name := range previous {
		seen[name] = struct{}{}
	}
	var fresh []string
	for _, name := range current {
		if _, ok := seen[name]; !ok {
			fresh = append(fresh, name)
		}
	}
	return fresh
}

// BuildReport daisy-chains the dates and flags interferograms not in known.
// Dates are sorted and de-duplicated first.
func BuildReport(dates, known []string) (schema.AcquisitionReport, error) {
	sorted := slices.Clone(dates)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	names, err := DaisyChain(sorted)
	if err != nil {
		return schema.AcquisitionReport{}, err
	}
	baselines, err := Baselines(names)
	if err != nil {
		return schema.AcquisitionReport{}, err
	}
	timeValues := TimeValues(baselines)

	fresh := DetectNew(known, names)
	isNew := make(map[string]bool, len(fresh))
	for _, name := range fresh {
		isNew[name] = true
	}

	report := schema.AcquisitionReport{Acquisitions: sorted}
	for i, name := range names {
		report.Interferograms = append(report.Interferograms, schema.InterferogramInfo{
			Name:      name,
			Baseline:  baselines[i],
			TimeValue: int(timeValues[i]),
			New:       len(known) > 0 && isNew[name],
		})
	}
	if len(known) > 0 {
		report.NewCount = len(fresh)
	}
	return report, nil
}
