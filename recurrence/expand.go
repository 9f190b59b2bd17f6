// Package recurrence expands calendar events into concrete occurrences
// within a time window. Recurrence rules are evaluated eagerly into a
// bounded, materialized sequence; the window end is a hard termination
// condition regardless of rule cardinality.
package recurrence

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/hearthkit/calengine/event"
)

// ErrInvalidWindow is returned when the window end precedes its start.
var ErrInvalidWindow = errors.New("recurrence: window end before window start")

// Expander turns events plus a window into ordered occurrences. It is
// stateless between calls and safe for concurrent use.
type Expander struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Expander. Zero-value options fall back to defaults.
func New(opts Options) *Expander {
	if opts.MaxOccurrencesPerEvent <= 0 {
		opts.MaxOccurrencesPerEvent = DefaultMaxOccurrencesPerEvent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Expander{opts: opts, logger: logger}
}

// Expand produces every occurrence of the given events that overlaps
// [windowStart, windowEnd]. Overlap, not containment, is the inclusion
// test: an occurrence starting before the window but ending inside it
// is included. Events with an unparseable rule are skipped with a log
// entry rather than failing the batch.
//
// The result is sorted by start time ascending, ties broken by event id.
func (x *Expander) Expand(events []event.Event, windowStart, windowEnd time.Time) ([]event.Occurrence, error) {
	if windowEnd.Before(windowStart) {
		return nil, ErrInvalidWindow
	}

	var all []event.Occurrence
	for _, ev := range events {
		occs, err := x.expandEvent(ev, windowStart, windowEnd)
		if err != nil {
			x.logger.Warn("skipping event with invalid recurrence data",
				"event_id", ev.ID, "household_id", ev.HouseholdID, "error", err)
			continue
		}
		all = append(all, occs...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].EventID < all[j].EventID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

// ExpandEach is Expand with per-event outcomes: the caller gets either
// the event's occurrences or the error that made it unexpandable,
// keyed by event id. Used where partial failure must be surfaced
// instead of logged away.
func (x *Expander) ExpandEach(events []event.Event, windowStart, windowEnd time.Time) map[string]mo.Result[[]event.Occurrence] {
	out := make(map[string]mo.Result[[]event.Occurrence], len(events))
	for _, ev := range events {
		if windowEnd.Before(windowStart) {
			out[ev.ID] = mo.Err[[]event.Occurrence](ErrInvalidWindow)
			continue
		}
		occs, err := x.expandEvent(ev, windowStart, windowEnd)
		if err != nil {
			out[ev.ID] = mo.Err[[]event.Occurrence](err)
			continue
		}
		out[ev.ID] = mo.Ok(occs)
	}
	return out
}

// HasOccurrenceInRange reports whether the event has at least one
// occurrence overlapping the range. It materializes at most the
// range-bounded expansion of the single event.
func (x *Expander) HasOccurrenceInRange(ev event.Event, rangeStart, rangeEnd time.Time) (bool, error) {
	if rangeEnd.Before(rangeStart) {
		return false, ErrInvalidWindow
	}
	occs, err := x.expandEvent(ev, rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	return len(occs) > 0, nil
}

// expandEvent generates the event's full instance sequence up to the
// window end, indexes it, then filters to window overlap. Indexing
// happens before filtering so (EventID, Index) identity is stable
// across windows that cover the same instances.
func (x *Expander) expandEvent(ev event.Event, windowStart, windowEnd time.Time) ([]event.Occurrence, error) {
	starts, err := x.instanceStarts(ev, windowEnd)
	if err != nil {
		return nil, err
	}

	loc := ev.Zone()
	var out []event.Occurrence
	for idx, start := range starts {
		occStart, occEnd := x.instanceSpan(ev, start, loc)
		if occStart.After(windowEnd) || occEnd.Before(windowStart) {
			continue
		}
		out = append(out, event.Occurrence{
			EventID:     ev.ID,
			Index:       idx,
			HouseholdID: ev.HouseholdID,
			Title:       ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			Start:       occStart,
			End:         occEnd,
			AllDay:      ev.AllDay,
			Attendees:   ev.Attendees,
		})
	}
	return out, nil
}

// instanceSpan computes one instance's concrete span. Timed instances
// carry the anchor duration; all-day instances are computed purely on
// calendar dates in the event's zone so DST cannot distort them.
func (x *Expander) instanceSpan(ev event.Event, start time.Time, loc *time.Location) (time.Time, time.Time) {
	if !ev.AllDay {
		return start, start.Add(ev.Duration())
	}

	days := event.DateOf(ev.StartAt, loc).DaysUntil(event.DateOf(ev.EndAt, loc))
	if days < 1 {
		days = 1
	}
	d := event.DateOf(start, loc)
	return d.Time(loc), d.AddDays(days).Time(loc)
}

// instanceStarts returns the ordered start instants of every instance
// the event generates up to the hard bound, exdates removed and rdates
// merged in. Enumeration always begins at the event's own anchor, even
// when it precedes the window, so long-running rules still surface
// their in-window instances.
func (x *Expander) instanceStarts(ev event.Event, hardEnd time.Time) ([]time.Time, error) {
	loc := ev.Zone()

	var starts []time.Time
	if !ev.Recurring() {
		starts = append(starts, ev.StartAt)
	} else {
		r, err := rrule.StrToRRule(ev.RRule)
		if err != nil {
			return nil, fmt.Errorf("parse rrule %q: %w", ev.RRule, err)
		}
		anchor := ev.StartAt.In(loc)
		r.DTStart(anchor)

		var set rrule.Set
		set.RRule(r)
		generated := set.Between(anchor, hardEnd.In(loc), true)
		if len(generated) > x.opts.MaxOccurrencesPerEvent {
			generated = generated[:x.opts.MaxOccurrencesPerEvent]
			x.logger.Warn("truncated recurrence expansion at cap",
				"event_id", ev.ID, "cap", x.opts.MaxOccurrencesPerEvent)
		}

		for _, t := range generated {
			if x.excluded(ev, t) {
				continue
			}
			starts = append(starts, t)
		}
	}

	// RDATE instances are added on top of (never pruned by) the rule.
	for _, rd := range ev.RDates {
		start := rd
		if ev.AllDay {
			start = allDayDate(rd, loc).Time(loc)
		}
		if x.produces(ev, starts, start, loc) {
			continue
		}
		starts = append(starts, start)
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts, nil
}

// excluded reports whether a rule-generated instant matches an EXDATE.
// Timed events compare at instant granularity, with a fallback for
// date-only exclusions stored as midnight UTC; all-day events compare
// at calendar-date granularity in the event's zone.
func (x *Expander) excluded(ev event.Event, t time.Time) bool {
	loc := ev.Zone()
	for _, ex := range ev.ExDates {
		if ev.AllDay {
			if event.DateOf(t, loc).Equal(allDayDate(ex, loc)) {
				return true
			}
			continue
		}
		if t.Equal(ex) {
			return true
		}
		if isMidnightUTC(ex) && event.DateOf(t, loc).Equal(event.DateOf(ex, time.UTC)) {
			return true
		}
	}
	return false
}

// produces reports whether the instance sequence already contains the
// given start, so RDATE entries never duplicate rule output.
func (x *Expander) produces(ev event.Event, starts []time.Time, candidate time.Time, loc *time.Location) bool {
	for _, s := range starts {
		if ev.AllDay {
			if event.DateOf(s, loc).Equal(event.DateOf(candidate, loc)) {
				return true
			}
			continue
		}
		if s.Equal(candidate) {
			return true
		}
	}
	return false
}

// allDayDate interprets a stored instant as a calendar date. Date-only
// values arrive as midnight UTC and keep their UTC date; anything else
// is read in the event's zone.
func allDayDate(t time.Time, loc *time.Location) event.Date {
	if isMidnightUTC(t) {
		return event.DateOf(t, time.UTC)
	}
	return event.DateOf(t, loc)
}

func isMidnightUTC(t time.Time) bool {
	return t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
