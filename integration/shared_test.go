//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/licsalert/licsalert/internal/dataset"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	// sharedBinaryPath holds the path to a shared licsalert binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the licsalert binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "licsalert-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "licsalert")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build licsalert: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// writeFixture writes a 16 interferogram dataset for two sources. The first
// source grows linearly and jumps from step 12 on.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	const pixels = 6
	sources := mat.NewDense(2, pixels, []float64{
		1, 1, 0, 0, 0.5, 0,
		0, 0, 1, -1, 0, 0.5,
	})
	ifgs := mat.NewDense(16, pixels, nil)
	for i := range 16 {
		a := 0.2 + 0.01*float64(i%3)
		if i >= 12 {
			a += 3
		}
		b := -0.1 + 0.01*float64(i%2)
		row := make([]float64, pixels)
		for p := range pixels {
			row[p] = a*sources.At(0, p) + b*sources.At(1, p) + 0.001*float64((i+p)%4)
		}
		ifgs.SetRow(i, row)
	}
	require.NoError(t, dataset.WriteMatrix(filepath.Join(dir, "sources.csv"), sources))
	require.NoError(t, dataset.WriteMatrix(filepath.Join(dir, "ifgs.csv"), ifgs))

	dates := make([]string, 17)
	for i := range dates {
		dates[i] = fmt.Sprintf("2021%02d%02d", 1+i/2, 1+12*(i%2))
	}
	manifest := fmt.Sprintf("volcano: etna\nsources: sources.csv\ninterferograms: ifgs.csv\nacquisitions: [%s]\nbaseline: 10\nt_recalculate: 4\n",
		strings.Join(dates, ", "))
	path := filepath.Join(dir, "etna.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	return path
}

// runCommand runs the binary with the given environment and returns its stdout.
func runCommand(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = t.TempDir() // no stray .licsalert.yaml
	cmd.Env = append(os.Environ(), env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s\nStderr: %s", cmd.String(), string(output), stderr.String())
	}
	return string(output), err
}
