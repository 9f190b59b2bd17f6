package conflict

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing.
type MockStore struct {
	mock.Mock
}

// FindOpenByEvent implements the Store interface.
func (m *MockStore) FindOpenByEvent(householdID, eventID string) ([]Conflict, error) {
	args := m.Called(householdID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Conflict), args.Error(1)
}

// ListByHousehold implements the Store interface.
func (m *MockStore) ListByHousehold(householdID string) ([]Conflict, error) {
	args := m.Called(householdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Conflict), args.Error(1)
}

// Insert implements the Store interface.
func (m *MockStore) Insert(c *Conflict) error {
	args := m.Called(c)
	return args.Error(0)
}

// MarkResolved implements the Store interface.
func (m *MockStore) MarkResolved(id string, at time.Time, notes string) error {
	args := m.Called(id, at, notes)
	return args.Error(0)
}
