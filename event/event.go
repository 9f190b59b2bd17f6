// Package event defines the shared data model of the calendar engine:
// calendar entries (single or recurring), the occurrences derived from
// them, and the calendar-date type used for all-day arithmetic.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus is an attendee's reply to an invitation.
type ParticipationStatus string

const (
	StatusAccepted    ParticipationStatus = "accepted"
	StatusDeclined    ParticipationStatus = "declined"
	StatusTentative   ParticipationStatus = "tentative"
	StatusNeedsAction ParticipationStatus = "needs-action"
)

// PartStat maps the status onto its RFC 5545 PARTSTAT value. Anything
// unrecognized maps to NEEDS-ACTION.
func (s ParticipationStatus) PartStat() string {
	switch s {
	case StatusAccepted:
		return "ACCEPTED"
	case StatusDeclined:
		return "DECLINED"
	case StatusTentative:
		return "TENTATIVE"
	default:
		return "NEEDS-ACTION"
	}
}

// Attendee is a participant on an event.
type Attendee struct {
	Name   string
	Email  string
	Status ParticipationStatus
}

// Event is a calendar entry as supplied by the storage layer. The engine
// only ever reads events; nothing in this module mutates one.
type Event struct {
	ID          string
	HouseholdID string

	Title       string
	Description string
	Location    string

	// StartAt/EndAt anchor the first (or only) occurrence's span.
	StartAt time.Time
	EndAt   time.Time

	// Timezone is the IANA zone name used for wall-clock semantics of
	// all-day events and rule expansion. Empty means UTC.
	Timezone string

	AllDay bool

	// RRule is the RFC 5545 RRULE value (without the "RRULE:" prefix).
	// Empty means the event is a single occurrence.
	RRule string

	// ExDates removes rule-generated instances; RDates adds extra ones.
	ExDates []time.Time
	RDates  []time.Time

	Attendees []Attendee
}

// Recurring reports whether the event carries a recurrence rule.
func (e Event) Recurring() bool { return e.RRule != "" }

// Duration is the anchor span's length, carried onto every occurrence.
func (e Event) Duration() time.Duration { return e.EndAt.Sub(e.StartAt) }

// Zone resolves the event's timezone, falling back to UTC when the name
// is empty or unknown. Records with unknown zones are rejected earlier
// by ParseRecord; the fallback covers hand-constructed events.
func (e Event) Zone() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Occurrence is one concrete instance of an event inside an expansion
// window. It is derived and ephemeral; identity is (EventID, Index).
type Occurrence struct {
	EventID string
	Index   int

	HouseholdID string
	Title       string
	Description string
	Location    string

	Start time.Time
	End   time.Time

	AllDay    bool
	Attendees []Attendee
}

// uidNamespace seeds the name-based UUIDs used for feed UIDs. Changing
// it would change every published UID, so it is fixed forever.
var uidNamespace = uuid.MustParse("63d2c5f4-9b0a-4c3e-8f3d-5a1e7b604b2d")

// UID derives a stable identifier from the occurrence's identity.
// Repeated feed generations for the same occurrence emit the same UID,
// which calendar clients rely on for deduplication.
func (o Occurrence) UID() string {
	name := fmt.Sprintf("%s:%d", o.EventID, o.Index)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}
