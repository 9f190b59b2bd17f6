package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrBadRecord marks data-quality failures in a storage row: malformed
// anchor timestamps, an unknown timezone, or a missing id. Callers skip
// the offending event and continue with the rest of the batch.
var ErrBadRecord = errors.New("bad event record")

// Record is the row shape the storage layer hands to the engine.
// Timestamps arrive as RFC 3339 strings; optional fields may be nil or
// absent and are treated as empty.
type Record struct {
	ID          string  `json:"id"`
	HouseholdID string  `json:"household_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	StartAt     string  `json:"start_at"`
	EndAt       string  `json:"end_at"`
	Timezone    *string `json:"timezone"`
	AllDay      bool    `json:"all_day"`
	RRule       *string `json:"rrule"`

	ExDates []string `json:"exdates"`
	RDates  []string `json:"rdates"`

	Attendees []AttendeeRecord `json:"attendees"`
}

// AttendeeRecord is the row shape of one attendee.
type AttendeeRecord struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// ParseRecord converts a storage row into an Event. Malformed anchor
// timestamps or an unknown timezone fail the whole record with
// ErrBadRecord; unparsable exdate/rdate entries are dropped
// individually since they only refine an otherwise valid event.
// Start/end order is passed through as-is, never reordered.
func ParseRecord(r Record) (Event, error) {
	if r.ID == "" {
		return Event{}, fmt.Errorf("%w: missing event id", ErrBadRecord)
	}

	start, err := parseInstant(r.StartAt)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %s start_at %q: %v", ErrBadRecord, r.ID, r.StartAt, err)
	}
	end, err := parseInstant(r.EndAt)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %s end_at %q: %v", ErrBadRecord, r.ID, r.EndAt, err)
	}

	tz := ""
	if r.Timezone != nil {
		tz = *r.Timezone
	}
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return Event{}, fmt.Errorf("%w: event %s timezone %q: %v", ErrBadRecord, r.ID, tz, err)
		}
	}

	ev := Event{
		ID:          r.ID,
		HouseholdID: r.HouseholdID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartAt:     start,
		EndAt:       end,
		Timezone:    tz,
		AllDay:      r.AllDay,
		ExDates:     parseInstants(r.ExDates),
		RDates:      parseInstants(r.RDates),
	}
	if r.RRule != nil {
		ev.RRule = *r.RRule
	}
	for _, a := range r.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{
			Name:   a.Name,
			Email:  a.Email,
			Status: ParticipationStatus(a.Status),
		})
	}
	return ev, nil
}

// ParseRecords converts a batch, skipping bad rows. The returned errors
// carry one entry per skipped record so the caller can log them.
func ParseRecords(records []Record) ([]Event, []error) {
	events := make([]Event, 0, len(records))
	var errs []error
	for _, r := range records {
		ev, err := ParseRecord(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errs
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// Date-only values come from all-day rows; anchor them at UTC midnight.
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseInstants(values []string) []time.Time {
	var out []time.Time
	for _, v := range values {
		t, err := parseInstant(v)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}
