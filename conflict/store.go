package conflict

import (
	"errors"
	"time"
)

// Store persists conflict records. Implementations must keep the open
// pair unique: within one household at most one open conflict may exist
// per unordered event pair, even under concurrent detection passes.
// Please use the error types provided.
type Store interface {
	// FindOpenByEvent returns open conflicts touching the given event.
	FindOpenByEvent(householdID, eventID string) ([]Conflict, error)
	// ListByHousehold returns every conflict (open and resolved) of a
	// household, newest detection first.
	ListByHousehold(householdID string) ([]Conflict, error)
	// Insert stores a new open conflict.
	Insert(c *Conflict) error
	// MarkResolved closes a conflict, stamping when and why. The record
	// is kept; it is never deleted.
	MarkResolved(id string, at time.Time, notes string) error
}

var (
	// ErrNotFound is returned when a requested conflict doesn't exist.
	ErrNotFound = errors.New("conflict not found")
	// ErrDuplicatePair is returned when inserting would create a second
	// open conflict for the same pair.
	ErrDuplicatePair = errors.New("open conflict already exists for pair")
	// ErrStoreUnavailable is returned when the backing store is unreachable.
	ErrStoreUnavailable = errors.New("conflict store unavailable")
)
