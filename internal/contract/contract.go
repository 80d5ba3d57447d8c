// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"errors"
	"time"

	"github.com/licsalert/licsalert/schema"
)

// ErrRunNotFound is returned when no stored run matches a lookup.
var ErrRunNotFound = errors.New("no stored run found")

// StateManager defines the interface for managing the state store.
// This allows the persistence layer to be mocked for testing.
type StateManager interface {
	GetStateStore() StateStore
}

// StateStore defines the interface for persisting licsalert results between invocations.
type StateStore interface {
	// SaveRun stores a complete result and returns the new run ID
	SaveRun(volcano string, runTime time.Time, tRecalculate int, result schema.AlertResult) (int64, error)

	// GetLatestRun returns the most recent result stored for a volcano
	GetLatestRun(volcano string) (schema.AlertResult, schema.RunRecord, error)

	// GetAllRuns returns every stored run, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetTrendStates returns the channel states stored for a run
	GetTrendStates(runID int64) ([]schema.TrendStateRecord, error)

	// GetStatus returns status information about the state store
	GetStatus() (schema.StateStatus, error)

	// Close closes the underlying connection
	Close() error
}
