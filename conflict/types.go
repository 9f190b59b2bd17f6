// Package conflict detects scheduling conflicts between events of one
// household and tracks their resolution lifecycle. Detection itself is
// a pure function of the events; persistence happens through an
// injected Store so the algorithm is independent of any storage
// technology.
package conflict

import "time"

// Type classifies why two events conflict.
type Type string

const (
	TypeTimeOverlap Type = "time_overlap"
	TypeSameTitle   Type = "same_title"
	TypeSameTime    Type = "same_time"
)

// Severity ranks how serious a conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityOf derives the severity for a conflict type. This is the
// single derivation point; stores persist the derived value but never
// compute it.
func SeverityOf(t Type) Severity {
	switch t {
	case TypeSameTime, TypeTimeOverlap:
		return SeverityHigh
	case TypeSameTitle:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Conflict links two conflicting events of one household. The natural
// key is the unordered event pair scoped to the household; EventID1 and
// EventID2 are kept in lexicographic order so the pair compares stably.
type Conflict struct {
	ID          string
	HouseholdID string
	EventID1    string
	EventID2    string
	Type        Type
	Severity    Severity
	Description string
	DetectedAt  time.Time

	// ResolvedAt set means the conflict is closed; the record stays as
	// history. A pair that conflicts again after resolution gets a new
	// open record rather than a reopened one.
	ResolvedAt      *time.Time
	ResolutionNotes string
}

// Open reports whether the conflict is still unresolved.
func (c Conflict) Open() bool { return c.ResolvedAt == nil }

// Pair returns the conflict's normalized event pair.
func (c Conflict) Pair() Pair { return PairOf(c.EventID1, c.EventID2) }

// Pair is an unordered pair of event ids in normalized order.
type Pair struct {
	A, B string
}

// PairOf normalizes two event ids into a Pair.
func PairOf(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}
