// Package dataset loads a licsalert input set from a YAML manifest that
// points at CSV matrices of sources and interferograms.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/licsalert/licsalert/internal/acquisition"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk description of a dataset.
//
//	volcano: etna
//	sources: sources.csv        # one row per source, one column per pixel
//	interferograms: ifgs.csv    # one row per incremental interferogram
//	acquisitions: [20200101, 20200113, ...]   # or time_values: [12, 24, ...]
//	baseline: 8
//	t_recalculate: 10
//	mean_centre: true
type Manifest struct {
	Volcano        string    `yaml:"volcano"`
	Sources        string    `yaml:"sources"`
	Interferograms string    `yaml:"interferograms"`
	TimeValues     []float64 `yaml:"time_values"`
	Acquisitions   []string  `yaml:"acquisitions"`
	Baseline       int       `yaml:"baseline"`
	TRecalculate   int       `yaml:"t_recalculate"`
	MeanCentre     bool      `yaml:"mean_centre"`
}

// Dataset is a loaded manifest.
type Dataset struct {
	Volcano        string
	Sources        *mat.Dense // k x p
	Interferograms *mat.Dense // n x p, incremental
	TimeValues     []float64  // n cumulative day counts
	Names          []string   // daisy-chain names when acquisitions were given
	NBaseline      int        // 0 when the manifest leaves it to the caller
	TRecalculate   int
	MaskedPixels   int // pixel columns dropped for holding NaN or Inf
}

// Manifest errors.
var (
	ErrNoTimeValues = errors.New("manifest needs time_values or acquisitions")
	ErrBadBaseline  = errors.New("baseline count out of range")
	ErrAllMasked    = errors.New("every pixel holds a non-finite value")
)

// Load reads a manifest and the CSV files it names. Relative paths are
// resolved against the manifest's directory.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Sources == "" || m.Interferograms == "" {
		return nil, fmt.Errorf("manifest %s must name sources and interferograms", path)
	}

	dir := filepath.Dir(path)
	sources, err := ReadMatrix(resolve(dir, m.Sources))
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	ifgs, err := ReadMatrix(resolve(dir, m.Interferograms))
	if err != nil {
		return nil, fmt.Errorf("interferograms: %w", err)
	}

	ds := &Dataset{
		Volcano:        m.Volcano,
		Sources:        sources,
		Interferograms: ifgs,
		NBaseline:      m.Baseline,
		TRecalculate:   m.TRecalculate,
	}
	if err := ds.setTimeValues(m); err != nil {
		return nil, err
	}
	if err := ds.dropMaskedPixels(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if m.MeanCentre {
		ds.Interferograms = MeanCentreRows(ds.Interferograms)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return ds, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func (ds *Dataset) setTimeValues(m Manifest) error {
	switch {
	case len(m.TimeValues) > 0:
		ds.TimeValues = m.TimeValues
	case len(m.Acquisitions) > 0:
		names, err := acquisition.DaisyChain(m.Acquisitions)
		if err != nil {
			return err
		}
		baselines, err := acquisition.Baselines(names)
		if err != nil {
			return err
		}
		ds.Names = names
		ds.TimeValues = acquisition.TimeValues(baselines)
	default:
		return ErrNoTimeValues
	}
	return nil
}

// dropMaskedPixels removes every pixel column that is NaN or infinite in any
// source or interferogram, so all of them share one mask.
func (ds *Dataset) dropMaskedPixels() error {
	_, p := ds.Interferograms.Dims()
	if _, sp := ds.Sources.Dims(); sp != p {
		return nil // Validate reports it
	}
	var keep []int
	for j := range p {
		if finiteColumn(ds.Sources, j) && finiteColumn(ds.Interferograms, j) {
			keep = append(keep, j)
		}
	}
	ds.MaskedPixels = p - len(keep)
	if ds.MaskedPixels == 0 {
		return nil
	}
	if len(keep) == 0 {
		return fmt.Errorf("%w: %d pixels", ErrAllMasked, p)
	}
	ds.Sources = selectColumns(ds.Sources, keep)
	ds.Interferograms = selectColumns(ds.Interferograms, keep)
	return nil
}

func finiteColumn(m mat.Matrix, j int) bool {
	r, _ := m.Dims()
	for i := range r {
		if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func selectColumns(m mat.Matrix, cols []int) *mat.Dense {
	r, _ := m.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for k, j := range cols {
		for i := range r {
			out.Set(i, k, m.At(i, j))
		}
	}
	return out
}

// Validate checks that the matrices and time values agree.
func (ds *Dataset) Validate() error {
	n, p := ds.Interferograms.Dims()
	_, sp := ds.Sources.Dims()
	if sp != p {
		return fmt.Errorf("sources have %d pixels, interferograms have %d", sp, p)
	}
	if len(ds.TimeValues) != n {
		return fmt.Errorf("%d time values for %d interferograms", len(ds.TimeValues), n)
	}
	if ds.NBaseline < 0 || ds.NBaseline > n {
		return fmt.Errorf("%w: %d of %d", ErrBadBaseline, ds.NBaseline, n)
	}
	return nil
}

// Len returns the number of interferograms.
func (ds *Dataset) Len() int {
	n, _ := ds.Interferograms.Dims()
	return n
}

// Split returns the first nBaseline interferograms and the rest. The
// monitoring matrix is nil when there is nothing after the baseline.
func (ds *Dataset) Split(nBaseline int) (baseline, monitoring *mat.Dense, err error) {
	n, p := ds.Interferograms.Dims()
	if nBaseline < 1 || nBaseline > n {
		return nil, nil, fmt.Errorf("%w: %d of %d", ErrBadBaseline, nBaseline, n)
	}
	baseline = mat.DenseCopyOf(ds.Interferograms.Slice(0, nBaseline, 0, p))
	if nBaseline < n {
		monitoring = mat.DenseCopyOf(ds.Interferograms.Slice(nBaseline, n, 0, p))
	}
	return baseline, monitoring, nil
}

// Shorten keeps interferograms [start, end) and their time values.
func (ds *Dataset) Shorten(start, end int) (*Dataset, error) {
	n, p := ds.Interferograms.Dims()
	if start < 0 || end > n || start >= end {
		return nil, fmt.Errorf("invalid range [%d, %d) for %d interferograms", start, end, n)
	}
	out := *ds
	out.Interferograms = mat.DenseCopyOf(ds.Interferograms.Slice(start, end, 0, p))
	out.TimeValues = append([]float64(nil), ds.TimeValues[start:end]...)
	if len(ds.Names) == n {
		out.Names = append([]string(nil), ds.Names[start:end]...)
	}
	out.NBaseline = min(max(ds.NBaseline-start, 0), end-start)
	return &out, nil
}

// MeanCentreRows subtracts each row's mean from that row.
func MeanCentreRows(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, c := out.Dims()
	if c == 0 {
		return out
	}
	for i := range r {
		row := out.RawRowView(i)
		var sum float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(c)
		for j := range row {
			row[j] -= mean
		}
	}
	return out
}

// ReadMatrix reads a numeric CSV file into a matrix. Lines starting with #
// are skipped.
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return parseMatrix(f, path)
}

func parseMatrix(r io.Reader, name string) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var data []float64
	rows, cols := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if rows == 0 {
			cols = len(record)
		}
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", name, rows+1, j+1, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	return mat.NewDense(rows, cols, data), nil
}

// WriteMatrix writes a matrix as CSV.
func WriteMatrix(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	r, c := m.Dims()
	record := make([]string, c)
	for i := range r {
		for j := range c {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
