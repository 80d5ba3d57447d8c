package statestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
)

// StateStoreImpl implements the StateStore interface.
type StateStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.StateStore = &StateStoreImpl{} // Compile-time check

// NewStateStore creates a new StateStore with the specified backend.
func NewStateStore(backend schema.DatabaseBackend, connStr string) (contract.StateStore, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		db, err = sql.Open(driverFor(backend), dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		cfg, parseErr := mysql.ParseDSN(connStr)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid MySQL connection string: %w", parseErr)
		}
		// run_time is scanned straight into time.Time
		cfg.ParseTime = true
		connStr = cfg.FormatDSN()
		db, err = sql.Open(driverFor(backend), connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		db, err = sql.Open(driverFor(backend), connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		// Return a no-op store for disabled persistence
		return &StateStoreImpl{backend: backend}, nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. Verify the database server is running and accessible", backend, err)
	}

	if err := createTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state tables: %w", err)
	}

	return &StateStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// createTables runs every embedded up migration for the backend. The
// statements are idempotent, so stores opened after a migrate are unaffected.
func createTables(db *sql.DB, backend schema.DatabaseBackend) error {
	dir := migrationDir(backend)
	entries, err := fs.Glob(migrationsFS, dir+"/*.up.sql")
	if err != nil {
		return err
	}
	slices.Sort(entries)
	for _, name := range entries {
		query, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.Exec(string(query)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

func (ss *StateStoreImpl) disabled() bool {
	return ss.backend == schema.NoneBackend || ss.db == nil
}

// SaveRun stores a complete result and returns the new run ID.
func (ss *StateStoreImpl) SaveRun(volcano string, runTime time.Time, tRecalculate int, result schema.AlertResult) (int64, error) {
	if ss.disabled() {
		return 0, nil
	}

	timeValues, err := json.Marshal(schema.ToFloats(result.TimeValues))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal time values: %w", err)
	}
	residualRMS, err := json.Marshal(schema.ToFloats(result.ResidualRMS))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal residual rms: %w", err)
	}

	tx, err := ss.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := []any{
		volcano, formatTime(runTime, ss.backend), string(result.Mode),
		result.NBaseline, result.NMonitoring, tRecalculate,
		string(timeValues), string(residualRMS),
	}
	insertRun := fmt.Sprintf(`INSERT INTO %s (volcano, run_time, mode, n_baseline, n_monitoring, t_recalculate, time_values, residual_rms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quoteTableName(runsTable, ss.backend))

	var runID int64
	switch ss.backend {
	case schema.PostgreSQLBackend:
		err = tx.QueryRow(rebind(insertRun+" RETURNING run_id", ss.backend), args...).Scan(&runID)
	default: // SQLite and MySQL
		var res sql.Result
		res, err = tx.Exec(insertRun, args...)
		if err == nil {
			runID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	insertState := rebind(fmt.Sprintf(`INSERT INTO %s (run_id, channel, channel_index, is_residual, state_json) VALUES (?, ?, ?, ?, ?)`,
		quoteTableName(trendStatesTable, ss.backend)), ss.backend)
	for _, ch := range result.Channels() {
		payload, err := json.Marshal(ch.State)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal %s state: %w", ch.Name, err)
		}
		if _, err := tx.Exec(insertState, runID, ch.Name, ch.Index, ch.Residual, string(payload)); err != nil {
			return 0, fmt.Errorf("failed to insert %s state: %w", ch.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetLatestRun returns the most recent result stored for a volcano.
func (ss *StateStoreImpl) GetLatestRun(volcano string) (schema.AlertResult, schema.RunRecord, error) {
	if ss.disabled() {
		return schema.AlertResult{}, schema.RunRecord{}, contract.ErrRunNotFound
	}

	query := rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE volcano = ? ORDER BY run_id DESC LIMIT 1`,
		runColumns, quoteTableName(runsTable, ss.backend)), ss.backend)
	record, err := ss.scanRun(ss.db.QueryRow(query, volcano))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.AlertResult{}, schema.RunRecord{}, fmt.Errorf("%w for volcano %q", contract.ErrRunNotFound, volcano)
	}
	if err != nil {
		return schema.AlertResult{}, schema.RunRecord{}, err
	}

	states, err := ss.GetTrendStates(record.RunID)
	if err != nil {
		return schema.AlertResult{}, schema.RunRecord{}, err
	}

	return resultFrom(record, states), record, nil
}

const runColumns = "run_id, volcano, run_time, mode, n_baseline, n_monitoring, t_recalculate, time_values, residual_rms"

type rowScanner interface {
	Scan(dest ...any) error
}

func (ss *StateStoreImpl) scanRun(row rowScanner) (schema.RunRecord, error) {
	var record schema.RunRecord
	var mode, timeValues, residualRMS string
	var runTime any = &record.RunTime
	var runTimeStr string
	if ss.backend == schema.SQLiteBackend {
		runTime = &runTimeStr
	}

	if err := row.Scan(&record.RunID, &record.Volcano, runTime, &mode, &record.NBaseline,
		&record.NMonitoring, &record.TRecalculate, &timeValues, &residualRMS); err != nil {
		return record, err
	}
	if ss.backend == schema.SQLiteBackend {
		t, err := time.Parse(time.RFC3339Nano, runTimeStr)
		if err != nil {
			return record, fmt.Errorf("failed to parse run_time: %w", err)
		}
		record.RunTime = t
	}
	record.Mode = schema.RunMode(mode)

	var err error
	if record.TimeValues, err = decodeFloats(timeValues); err != nil {
		return record, fmt.Errorf("failed to decode time values: %w", err)
	}
	if record.ResidualRMS, err = decodeFloats(residualRMS); err != nil {
		return record, fmt.Errorf("failed to decode residual rms: %w", err)
	}
	return record, nil
}

func decodeFloats(data string) ([]float64, error) {
	var values []schema.Float
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	return schema.FromFloats(values), nil
}

// GetAllRuns returns every stored run, oldest first.
func (ss *StateStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if ss.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id", runColumns, quoteTableName(runsTable, ss.backend))
	rows, err := ss.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		record, err := ss.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetTrendStates returns the channel states stored for a run, in channel order.
func (ss *StateStoreImpl) GetTrendStates(runID int64) ([]schema.TrendStateRecord, error) {
	if ss.disabled() {
		return nil, nil
	}

	query := rebind(fmt.Sprintf(`SELECT run_id, channel, channel_index, is_residual, state_json FROM %s WHERE run_id = ? ORDER BY channel_index`,
		quoteTableName(trendStatesTable, ss.backend)), ss.backend)
	rows, err := ss.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TrendStateRecord
	for rows.Next() {
		var record schema.TrendStateRecord
		var payload string
		if err := rows.Scan(&record.RunID, &record.Channel, &record.Index, &record.Residual, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan trend state: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &record.State); err != nil {
			return nil, fmt.Errorf("failed to decode %s state: %w", record.Channel, err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend states: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the state store.
func (ss *StateStoreImpl) GetStatus() (schema.StateStatus, error) {
	status := schema.StateStatus{
		Backend:    string(ss.backend),
		Connected:  ss.db != nil,
		TableSizes: make(map[string]int64),
	}
	if ss.disabled() {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, ss.backend)
	if err := ss.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		runs, err := ss.GetAllRuns()
		if err != nil {
			return status, err
		}
		status.LastRunID = runs[len(runs)-1].RunID
		status.LastRunTime = runs[len(runs)-1].RunTime
		status.OldestRunTime = runs[0].RunTime
		for _, r := range runs {
			if !slices.Contains(status.Volcanoes, r.Volcano) {
				status.Volcanoes = append(status.Volcanoes, r.Volcano)
			}
		}
		slices.Sort(status.Volcanoes)
	}

	for _, table := range []string{runsTable, trendStatesTable} {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, ss.backend))
		if err := ss.db.QueryRow(query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TableSizeBytes = ss.estimateSize(status.TableSizes)
	return status, nil
}

// estimateSize asks the database for its on-disk size, with a rough
// per-row estimate when that fails.
func (ss *StateStoreImpl) estimateSize(tableSizes map[string]int64) int64 {
	var rows int64
	for _, n := range tableSizes {
		rows += n
	}
	fallback := rows * 1000

	var size int64
	switch ss.backend {
	case schema.SQLiteBackend:
		query := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
		if err := ss.db.QueryRow(query).Scan(&size); err != nil {
			return fallback
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ss.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		query := "SELECT COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables WHERE table_schema = ? AND table_name IN (?, ?)"
		if err := ss.db.QueryRow(query, cfg.DBName, runsTable, trendStatesTable).Scan(&size); err != nil {
			return fallback
		}
	case schema.PostgreSQLBackend:
		query := "SELECT pg_total_relation_size($1) + pg_total_relation_size($2)"
		if err := ss.db.QueryRow(query, runsTable, trendStatesTable).Scan(&size); err != nil {
			return fallback
		}
	default:
		return fallback
	}
	return size
}

// Close closes the underlying connection.
func (ss *StateStoreImpl) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}

// migrationDir returns the embedded migrations directory for a backend.
func migrationDir(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "migrations/mysql"
	case schema.PostgreSQLBackend:
		return "migrations/postgres"
	default:
		return "migrations/" + strings.ToLower(string(schema.SQLiteBackend))
	}
}
