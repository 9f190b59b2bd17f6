// Package memory provides an in-memory conflict store, used as the
// reference implementation and in tests.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hearthkit/calengine/conflict"
)

// Store implements conflict.Store using in-memory maps.
type Store struct {
	mu        sync.RWMutex
	conflicts map[string]*conflict.Conflict // key: conflict ID
	openPairs map[string]string             // key: household/pair -> conflict ID
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		conflicts: make(map[string]*conflict.Conflict),
		openPairs: make(map[string]string),
	}
}

func pairKey(householdID string, p conflict.Pair) string {
	return fmt.Sprintf("%s/%s/%s", householdID, p.A, p.B)
}

func (s *Store) FindOpenByEvent(householdID, eventID string) ([]conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []conflict.Conflict
	for _, c := range s.conflicts {
		if c.HouseholdID != householdID || !c.Open() {
			continue
		}
		if c.EventID1 != eventID && c.EventID2 != eventID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListByHousehold(householdID string) ([]conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []conflict.Conflict
	for _, c := range s.conflicts {
		if c.HouseholdID != householdID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out, nil
}

func (s *Store) Insert(c *conflict.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(c.HouseholdID, c.Pair())
	if _, exists := s.openPairs[key]; exists {
		return conflict.ErrDuplicatePair
	}

	stored := *c
	s.conflicts[c.ID] = &stored
	s.openPairs[key] = c.ID
	return nil
}

func (s *Store) MarkResolved(id string, at time.Time, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conflicts[id]
	if !ok {
		return conflict.ErrNotFound
	}
	if c.Open() {
		resolved := at
		c.ResolvedAt = &resolved
		c.ResolutionNotes = notes
		delete(s.openPairs, pairKey(c.HouseholdID, c.Pair()))
	}
	return nil
}
