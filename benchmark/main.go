// Package main provides a performance benchmarking tool for the licsalert CLI.
// It generates synthetic datasets of increasing size, measures execution times
// of the run and monitor commands with and without a state store, running each
// test multiple times, treating the first successful run as cold and averaging
// the rest as warm, and writes CSV output for performance analysis.
//
// Prerequisites:
// - licsalert binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where datasets and the benchmark state database are written
package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/licsalert/licsalert/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// BenchmarkResult holds the result of a benchmark run (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// DatasetSize describes one synthetic dataset.
type DatasetSize struct {
	Name     string
	Sources  int
	Pixels   int
	Ifgs     int
	Baseline int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	NoStoreRuns int
	StoreRuns   int
	Sizes       []DatasetSize
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		NoStoreRuns: 3,
		StoreRuns:   4,
		Sizes: []DatasetSize{
			{Name: "small", Sources: 2, Pixels: 500, Ifgs: 40, Baseline: 30},
			{Name: "medium", Sources: 4, Pixels: 5000, Ifgs: 120, Baseline: 90},
			{Name: "large", Sources: 6, Pixels: 50000, Ifgs: 300, Baseline: 240},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the licsalert binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("licsalert"); err != nil {
		return fmt.Errorf("licsalert binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// writeDataset writes a synthetic dataset and returns its manifest path.
// Source strengths grow linearly with a small periodic wobble and the first
// source jumps after the baseline.
func writeDataset(dir string, size DatasetSize) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	sources := mat.NewDense(size.Sources, size.Pixels, nil)
	for i := range size.Sources {
		for p := range size.Pixels {
			sources.Set(i, p, math.Sin(float64((i+1)*(p+1))/float64(size.Pixels)))
		}
	}

	ifgs := mat.NewDense(size.Ifgs, size.Pixels, nil)
	row := make([]float64, size.Pixels)
	for t := range size.Ifgs {
		for p := range size.Pixels {
			row[p] = 0
			for i := range size.Sources {
				strength := 0.1*float64(i+1) + 0.01*math.Sin(float64(t+i))
				if i == 0 && t >= size.Baseline {
					strength += 1
				}
				row[p] += strength * sources.At(i, p)
			}
		}
		ifgs.SetRow(t, row)
	}

	if err := dataset.WriteMatrix(filepath.Join(dir, "sources.csv"), sources); err != nil {
		return "", err
	}
	if err := dataset.WriteMatrix(filepath.Join(dir, "ifgs.csv"), ifgs); err != nil {
		return "", err
	}

	times := make([]string, size.Ifgs)
	for t := range times {
		times[t] = fmt.Sprint(12 * (t + 1))
	}
	manifest := fmt.Sprintf("volcano: bench-%s\nsources: sources.csv\ninterferograms: ifgs.csv\ntime_values: [%s]\nbaseline: %d\n",
		size.Name, strings.Join(times, ", "), size.Baseline)
	path := filepath.Join(dir, "manifest.yaml")
	return path, os.WriteFile(path, []byte(manifest), 0o644)
}

// runBenchmarks executes all benchmark tests across configured dataset sizes
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, no-store: %d runs, store: %d runs\n",
		len(config.Sizes), config.Timeout, config.NoStoreRuns, config.StoreRuns)

	for _, size := range config.Sizes {
		fmt.Printf("Generating %s dataset (%d sources, %d pixels, %d interferograms)\n",
			size.Name, size.Sources, size.Pixels, size.Ifgs)
		manifest, err := writeDataset(filepath.Join(config.WorkDir, size.Name), size)
		if err != nil {
			fmt.Printf("Warning: failed to write %s dataset: %v\n", size.Name, err)
			continue
		}

		results = append(results, runBenchmarkSuite(config, size.Name, manifest, "run"))
		// Monitoring needs the stored baseline from the run suite
		results = append(results, runBenchmarkSuite(config, size.Name, manifest, "monitor"))
	}

	return results
}

// runBenchmarkSuite runs both no-store and store benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, name, manifest, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, name)
	dbPath := filepath.Join(config.WorkDir, "bench_state.db")

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, manifest, command, backend, dbPath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-store runs. Monitoring cannot run without a store.
	noStoreAvg := "N/A"
	if command == "run" {
		_ = os.Remove(dbPath)
		_, noStoreAvg = runPhase("none", config.NoStoreRuns, "No-store")
	}

	// Phase 2: SQLite store runs
	coldTime, warmAvg := runPhase("sqlite", config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     name,
		Command:     command,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a licsalert command multiple times with the given backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, manifest, command, backend, dbPath string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, manifest, "--output", "json", "--state-backend", backend}
	if backend == "sqlite" {
		args = append(args, "--state-db-connect", dbPath)
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("licsalert", args...)
		cmd.Dir = config.WorkDir

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output holds a complete result
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, `"summaries"`) && strings.Contains(outputStr, `"steps"`)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("licsalert_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoStoreTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "run", "Run:")
	printCommandSummary(results, "monitor", "Monitor:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-8s: No-store: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoStoreTime, result.ColdTime, result.WarmTime)
		}
	}
}
