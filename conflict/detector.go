package conflict

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthkit/calengine/event"
)

// Detector finds conflicts between events of one household and
// reconciles them against previously recorded ones.
type Detector struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a Detector over the given store. A nil logger
// discards diagnostics.
func NewDetector(store Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Detector{store: store, logger: logger, now: time.Now}
}

// Result reports the outcome of one detection pass for a target event.
type Result struct {
	// Conflicts is the current open conflict set touching the target
	// after the pass (pre-existing and newly inserted).
	Conflicts []Conflict
	// New lists the conflicts inserted by this pass.
	New []Conflict
	// ResolvedIDs lists conflicts auto-resolved because their pair no
	// longer conflicts.
	ResolvedIDs []string
	// Errs collects per-pair storage failures. The pass continues past
	// them; already-computed results are still returned.
	Errs []error
}

// systemResolutionNote marks automatic resolution, as opposed to a
// user-initiated Resolve call. Audit trails rely on the distinction.
const systemResolutionNote = "auto-resolved: events no longer conflict"

// DetectForEvent classifies the target against every other event of the
// same household and reconciles the outcome with previously open
// conflicts: vanished pairs are auto-resolved, new pairs inserted, and
// pairs that are both detected and already open are left untouched.
//
// Classification uses anchor spans only, never recurrence expansion,
// keeping a pass O(n) in the household size.
func (d *Detector) DetectForEvent(target event.Event, household []event.Event) (Result, error) {
	type detection struct {
		typ   Type
		other event.Event
	}
	current := make(map[Pair]detection)
	for _, other := range household {
		if other.ID == target.ID || other.HouseholdID != target.HouseholdID {
			continue
		}
		typ, ok := Classify(target, other)
		if !ok {
			continue
		}
		current[PairOf(target.ID, other.ID)] = detection{typ: typ, other: other}
	}

	open, err := d.store.FindOpenByEvent(target.HouseholdID, target.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load open conflicts for event %s: %w", target.ID, err)
	}

	var res Result
	now := d.now()

	openByPair := make(map[Pair]Conflict, len(open))
	for _, c := range open {
		openByPair[c.Pair()] = c
	}

	for pair, c := range openByPair {
		if _, still := current[pair]; still {
			continue
		}
		if err := d.store.MarkResolved(c.ID, now, systemResolutionNote); err != nil {
			d.logger.Error("failed to auto-resolve conflict",
				"conflict_id", c.ID, "household_id", c.HouseholdID,
				"event_id1", c.EventID1, "event_id2", c.EventID2, "error", err)
			res.Errs = append(res.Errs, fmt.Errorf("resolve conflict %s: %w", c.ID, err))
			continue
		}
		res.ResolvedIDs = append(res.ResolvedIDs, c.ID)
	}

	for pair, det := range current {
		if existing, ok := openByPair[pair]; ok {
			res.Conflicts = append(res.Conflicts, existing)
			continue
		}
		c := Conflict{
			ID:          uuid.New().String(),
			HouseholdID: target.HouseholdID,
			EventID1:    pair.A,
			EventID2:    pair.B,
			Type:        det.typ,
			Severity:    SeverityOf(det.typ),
			Description: describe(det.typ, target, det.other),
			DetectedAt:  now,
		}
		if err := d.store.Insert(&c); err != nil {
			d.logger.Error("failed to record conflict",
				"household_id", target.HouseholdID,
				"event_id1", pair.A, "event_id2", pair.B, "error", err)
			res.Errs = append(res.Errs, fmt.Errorf("insert conflict for pair (%s, %s): %w", pair.A, pair.B, err))
			continue
		}
		res.New = append(res.New, c)
		res.Conflicts = append(res.Conflicts, c)
	}

	return res, nil
}

// HouseholdConflicts returns every recorded conflict of a household.
func (d *Detector) HouseholdConflicts(householdID string) ([]Conflict, error) {
	return d.store.ListByHousehold(householdID)
}

// Resolve closes a conflict on user action.
func (d *Detector) Resolve(conflictID, notes string) error {
	return d.store.MarkResolved(conflictID, d.now(), notes)
}

// Classify evaluates the conflict rules for a pair of events. When more
// than one rule matches, only the highest-severity one is reported,
// with same_time winning over time_overlap as the more specific match.
func Classify(a, b event.Event) (Type, bool) {
	aStart, aEnd := anchorSpan(a)
	bStart, bEnd := anchorSpan(b)

	switch {
	case aStart.Equal(bStart) && aEnd.Equal(bEnd):
		return TypeSameTime, true
	case aStart.Before(bEnd) && bStart.Before(aEnd):
		return TypeTimeOverlap, true
	case sameTitle(a, b):
		return TypeSameTitle, true
	}
	return "", false
}

// anchorSpan normalizes an event's anchor to a comparable instant span.
// All-day events are reduced to calendar dates in their own zone and
// rebuilt as UTC day spans, so an all-day event is never accidentally
// instant-compared against a wall-clock time.
func anchorSpan(e event.Event) (time.Time, time.Time) {
	if !e.AllDay {
		return e.StartAt, e.EndAt
	}
	loc := e.Zone()
	start := event.DateOf(e.StartAt, loc)
	end := event.DateOf(e.EndAt, loc)
	if !end.After(start) {
		end = start.AddDays(1)
	}
	return start.Time(time.UTC), end.Time(time.UTC)
}

func sameTitle(a, b event.Event) bool {
	ta := strings.TrimSpace(a.Title)
	tb := strings.TrimSpace(b.Title)
	if ta == "" || tb == "" {
		return false
	}
	return strings.EqualFold(ta, tb)
}

func describe(t Type, a, b event.Event) string {
	switch t {
	case TypeSameTime:
		return fmt.Sprintf("%q and %q are scheduled at exactly the same time", a.Title, b.Title)
	case TypeTimeOverlap:
		return fmt.Sprintf("%q overlaps in time with %q", a.Title, b.Title)
	case TypeSameTitle:
		return fmt.Sprintf("%q has the same title as another event", a.Title)
	default:
		return fmt.Sprintf("%q conflicts with %q", a.Title, b.Title)
	}
}
