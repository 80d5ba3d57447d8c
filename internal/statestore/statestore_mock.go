package statestore

import (
	"time"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
	"github.com/stretchr/testify/mock"
)

// MockStateManager is a mock implementation of StateManager for testing.
type MockStateManager struct {
	mock.Mock
}

var _ contract.StateManager = &MockStateManager{} // Compile-time check

// GetStateStore implements the StateManager interface.
func (m *MockStateManager) GetStateStore() contract.StateStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.StateStore)
	return store
}

// MockStateStore is a mock implementation of StateStore for testing.
type MockStateStore struct {
	mock.Mock
}

var _ contract.StateStore = &MockStateStore{} // Compile-time check

// SaveRun implements the StateStore interface.
func (m *MockStateStore) SaveRun(volcano string, runTime time.Time, tRecalculate int, result schema.AlertResult) (int64, error) {
	args := m.Called(volcano, runTime, tRecalculate, result)
	return args.Get(0).(int64), args.Error(1)
}

// GetLatestRun implements the StateStore interface.
func (m *MockStateStore) GetLatestRun(volcano string) (schema.AlertResult, schema.RunRecord, error) {
	args := m.Called(volcano)
	return args.Get(0).(schema.AlertResult), args.Get(1).(schema.RunRecord), args.Error(2)
}

// GetAllRuns implements the StateStore interface.
func (m *MockStateStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.RunRecord)
	return records, args.Error(1)
}

// GetTrendStates implements the StateStore interface.
func (m *MockStateStore) GetTrendStates(runID int64) ([]schema.TrendStateRecord, error) {
	args := m.Called(runID)
	records, _ := args.Get(0).([]schema.TrendStateRecord)
	return records, args.Error(1)
}

// GetStatus implements the StateStore interface.
func (m *MockStateStore) GetStatus() (schema.StateStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StateStatus), args.Error(1)
}

// Close implements the StateStore interface.
func (m *MockStateStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
