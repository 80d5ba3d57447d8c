package statestore

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() schema.AlertResult {
	nan := math.NaN()
	state := func(offset float64) schema.TrendState {
		return schema.TrendState{
			CumulativeTC: []float64{offset, offset + 1, offset + 2},
			Gradient:     1,
			TRecalculate: 2,
			Lines: [][]float64{
				{offset, nan, nan},
				{offset + 1, offset + 1, nan},
				{nan, offset + 2, offset + 2},
			},
			Sigma:     0.5,
			Distances: []float64{0, 0, 0},
		}
	}
	return schema.AlertResult{
		Mode:        schema.BaselineOnly,
		NBaseline:   3,
		TimeValues:  []float64{12, 24, 36},
		Sources:     []schema.TrendState{state(0), state(10)},
		Residual:    []schema.TrendState{state(100)},
		ResidualRMS: []float64{0.1, 0.2, 0.3},
	}
}

func TestStateStore_NoneBackend(t *testing.T) {
	store, err := NewStateStore(schema.NoneBackend, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	runID, err := store.SaveRun("etna", time.Now(), 10, sampleResult())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	_, _, err = store.GetLatestRun("etna")
	assert.ErrorIs(t, err, contract.ErrRunNotFound)

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.False(t, status.Connected)

	assert.NoError(t, store.Close())
}

func TestStateStore_UnsupportedBackend(t *testing.T) {
	_, err := NewStateStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
}

func TestStateStore_SQLite(t *testing.T) {
	store, err := NewStateStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, err = store.GetLatestRun("etna")
	assert.ErrorIs(t, err, contract.ErrRunNotFound)

	runTime := time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)
	saved := sampleResult()
	firstID, err := store.SaveRun("etna", runTime, 2, saved)
	require.NoError(t, err)
	assert.Greater(t, firstID, int64(0))

	later := saved.Clone()
	later.Sources[0].Gradient = 7
	secondID, err := store.SaveRun("etna", runTime.Add(time.Hour), 2, later)
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	_, err = store.SaveRun("fuego", runTime, 2, saved)
	require.NoError(t, err)

	t.Run("latest run", func(t *testing.T) {
		result, record, err := store.GetLatestRun("etna")
		require.NoError(t, err)
		assert.Equal(t, secondID, record.RunID)
		assert.Equal(t, int32(2), record.TRecalculate)
		assert.True(t, runTime.Add(time.Hour).Equal(record.RunTime))
		assert.Equal(t, schema.BaselineOnly, result.Mode)
		assert.Equal(t, 3, result.NBaseline)
		assert.Equal(t, saved.TimeValues, result.TimeValues)
		assert.Equal(t, saved.ResidualRMS, result.ResidualRMS)
		require.Len(t, result.Sources, 2)
		require.Len(t, result.Residual, 1)
		assert.Equal(t, 7.0, result.Sources[0].Gradient)
		assert.Equal(t, 10.0, result.Sources[1].CumulativeTC[0])
		assert.Equal(t, 100.0, result.Residual[0].CumulativeTC[0])
		assert.True(t, math.IsNaN(result.Sources[0].Lines[0][1]))
	})

	t.Run("trend states", func(t *testing.T) {
		states, err := store.GetTrendStates(firstID)
		require.NoError(t, err)
		require.Len(t, states, 3)
		assert.Equal(t, "IC 1", states[0].Channel)
		assert.Equal(t, "IC 2", states[1].Channel)
		assert.Equal(t, schema.ResidualChannel, states[2].Channel)
		assert.True(t, states[2].Residual)
		assert.False(t, states[0].Residual)
	})

	t.Run("all runs", func(t *testing.T) {
		runs, err := store.GetAllRuns()
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "etna", runs[0].Volcano)
		assert.Equal(t, "fuego", runs[2].Volcano)
	})

	t.Run("status", func(t *testing.T) {
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, "sqlite", status.Backend)
		assert.Equal(t, 3, status.TotalRuns)
		assert.Equal(t, []string{"etna", "fuego"}, status.Volcanoes)
		assert.Equal(t, int64(3), status.TableSizes[runsTable])
		assert.Equal(t, int64(9), status.TableSizes[trendStatesTable])
		assert.Greater(t, status.TableSizeBytes, int64(0))
	})
}

func TestStateStore_SQLitePersistsAcrossOpens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	store, err := NewStateStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_, err = store.SaveRun("etna", time.Now(), 2, sampleResult())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStateStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	result, _, err := reopened.GetLatestRun("etna")
	require.NoError(t, err)
	assert.Equal(t, 3, result.NTimes())
}

func TestMigrateStates_NoneBackend(t *testing.T) {
	err := MigrateStates(schema.NoneBackend, "", -1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrateStates_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")

	require.NoError(t, MigrateStates(schema.SQLiteBackend, dbPath, -1))
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	// No-op when already current
	assert.NoError(t, MigrateStates(schema.SQLiteBackend, dbPath, -1))
	assert.NoError(t, MigrateStates(schema.SQLiteBackend, dbPath, 1))
	assert.NoError(t, MigrateStates(schema.SQLiteBackend, dbPath, 0))
	assert.NoError(t, MigrateStates(schema.SQLiteBackend, dbPath, 2))

	// A store opened on a migrated database works as usual
	store, err := NewStateStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	_, err = store.SaveRun("etna", time.Now(), 2, sampleResult())
	assert.NoError(t, err)
}

func TestClearState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o600))

	require.NoError(t, ClearState(schema.SQLiteBackend, dbPath, ""))
	assert.NoFileExists(t, dbPath)

	// Missing files are fine
	assert.NoError(t, ClearState(schema.SQLiteBackend, dbPath, ""))
	assert.Error(t, ClearState(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearState(schema.NoneBackend, "", ""))
	assert.Error(t, ClearState(schema.DatabaseBackend("oracle"), "", ""))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName(runsTable))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("runs; DROP TABLE x"))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`licsalert_runs`", quoteTableName(runsTable, schema.MySQLBackend))
	assert.Equal(t, `"licsalert_runs"`, quoteTableName(runsTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"licsalert_runs"`, quoteTableName(runsTable, schema.SQLiteBackend))
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebind(query, schema.PostgreSQLBackend))
}

func TestExecuteStateExport(t *testing.T) {
	store, err := NewStateStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	mgr := &MockStateManager{}
	mgr.On("GetStateStore").Return(store)

	output := filepath.Join(t.TempDir(), "export")
	err = ExecuteStateExport(mgr, output)
	assert.ErrorContains(t, err, "no stored runs")

	_, err = store.SaveRun("etna", time.Now(), 2, sampleResult())
	require.NoError(t, err)

	require.NoError(t, ExecuteStateExport(mgr, output))
	assert.FileExists(t, output+".runs.parquet")
	assert.FileExists(t, output+".steps.parquet")

	assert.Error(t, ExecuteStateExport(mgr, ""))
}

func TestExecuteStateExport_StatusError(t *testing.T) {
	store := &MockStateStore{}
	store.On("GetStatus").Return(schema.StateStatus{}, assert.AnError)
	mgr := &MockStateManager{}
	mgr.On("GetStateStore").Return(store)

	err := ExecuteStateExport(mgr, filepath.Join(t.TempDir(), "export"))
	assert.ErrorIs(t, err, assert.AnError)
	store.AssertExpectations(t)
}

func TestManagerLifecycle(t *testing.T) {
	mgr := &StateStoreManager{}
	assert.Nil(t, mgr.GetStateStore())
}
