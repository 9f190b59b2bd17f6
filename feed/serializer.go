// Package feed renders occurrences into calendar subscription formats:
// an RFC 5545 iCalendar document (the .ics feed calendar clients
// subscribe to) and an RFC 6321 xCal XML export.
//
// Two serialization modes exist and are never mixed within one feed:
// Serialize emits one VEVENT per already-expanded occurrence, while
// SerializeEvents emits one VEVENT per source event carrying its RRULE.
package feed

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/hearthkit/calengine/event"
)

// DefaultProdID identifies this implementation in generated feeds.
const DefaultProdID = "-//hearthkit//calengine//EN"

// CalendarMeta carries the document-level calendar properties. They are
// fixed per calendar, not per event.
type CalendarMeta struct {
	Name        string
	Description string
	Timezone    string
	ProdID      string
}

// Serializer renders calendar feeds. It is stateless between calls
// apart from the wall clock used for DTSTAMP.
type Serializer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSerializer creates a Serializer. A nil logger discards diagnostics.
func NewSerializer(logger *slog.Logger) *Serializer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Serializer{logger: logger, now: time.Now}
}

// ContentType is the MIME type the feed should be served with.
func ContentType() string { return "text/calendar; charset=utf-8" }

// Filename suggests a download name for the feed.
func Filename(meta CalendarMeta) string {
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = "calendar"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	if name == "" {
		name = "calendar"
	}
	return strings.ToLower(name) + ".ics"
}

// Serialize renders one VEVENT per occurrence. UIDs are stable per
// (event, index) so repeated generations of the same occurrence set
// dedupe on the client; DTSTAMP is the generation instant and is the
// only field allowed to differ between otherwise-identical runs.
// An occurrence that cannot be rendered is skipped with a log entry
// rather than corrupting the whole feed.
func (s *Serializer) Serialize(occurrences []event.Occurrence, meta CalendarMeta) ([]byte, error) {
	cal := s.newCalendar(meta)
	stamp := s.now().UTC()

	for _, o := range occurrences {
		comp, err := s.occurrenceComponent(o, stamp)
		if err != nil {
			s.logger.Warn("skipping unrenderable occurrence",
				"event_id", o.EventID, "index", o.Index, "error", err)
			continue
		}
		cal.Children = append(cal.Children, comp)
	}

	return encode(cal)
}

// SerializeEvents renders one VEVENT per source event, carrying the
// event's RRULE, EXDATE and RDATE lines so the client expands the
// recurrence itself.
func (s *Serializer) SerializeEvents(events []event.Event, meta CalendarMeta) ([]byte, error) {
	cal := s.newCalendar(meta)
	stamp := s.now().UTC()

	for _, ev := range events {
		comp, err := s.eventComponent(ev, stamp)
		if err != nil {
			s.logger.Warn("skipping unrenderable event", "event_id", ev.ID, "error", err)
			continue
		}
		cal.Children = append(cal.Children, comp)
	}

	return encode(cal)
}

func (s *Serializer) newCalendar(meta CalendarMeta) *ical.Calendar {
	cal := ical.NewCalendar()
	prodID := meta.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	if meta.Name != "" {
		cal.Props.SetText("X-WR-CALNAME", meta.Name)
	}
	if meta.Description != "" {
		cal.Props.SetText("X-WR-CALDESC", meta.Description)
	}
	if meta.Timezone != "" {
		cal.Props.SetText("X-WR-TIMEZONE", meta.Timezone)
	}
	return cal
}

func (s *Serializer) occurrenceComponent(o event.Occurrence, stamp time.Time) (*ical.Component, error) {
	if o.Start.IsZero() {
		return nil, fmt.Errorf("occurrence of event %s has no start time", o.EventID)
	}

	comp := &ical.Component{Name: ical.CompEvent, Props: make(ical.Props)}
	comp.Props.SetText(ical.PropUID, o.UID())
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	if o.AllDay {
		setDateProp(comp, ical.PropDateTimeStart, event.DateOf(o.Start, o.Start.Location()))
		setDateProp(comp, ical.PropDateTimeEnd, event.DateOf(o.End, o.End.Location()))
	} else {
		comp.Props.SetDateTime(ical.PropDateTimeStart, o.Start.UTC())
		comp.Props.SetDateTime(ical.PropDateTimeEnd, o.End.UTC())
	}

	setTextProps(comp, o.Title, o.Description, o.Location)
	setAttendees(comp, o.Attendees)
	return comp, nil
}

func (s *Serializer) eventComponent(ev event.Event, stamp time.Time) (*ical.Component, error) {
	if ev.StartAt.IsZero() {
		return nil, fmt.Errorf("event %s has no start time", ev.ID)
	}

	comp := &ical.Component{Name: ical.CompEvent, Props: make(ical.Props)}
	comp.Props.SetText(ical.PropUID, event.Occurrence{EventID: ev.ID}.UID())
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	loc := ev.Zone()
	if ev.AllDay {
		setDateProp(comp, ical.PropDateTimeStart, event.DateOf(ev.StartAt, loc))
		setDateProp(comp, ical.PropDateTimeEnd, event.DateOf(ev.EndAt, loc))
	} else {
		comp.Props.SetDateTime(ical.PropDateTimeStart, ev.StartAt.UTC())
		comp.Props.SetDateTime(ical.PropDateTimeEnd, ev.EndAt.UTC())
	}

	// RRULE values contain semicolons that must not be text-escaped, so
	// they bypass SetText.
	if ev.Recurring() {
		setRawProp(comp, ical.PropRecurrenceRule, ev.RRule)
	}
	if len(ev.ExDates) > 0 {
		setRawProp(comp, ical.PropExceptionDates, joinInstants(ev.ExDates))
	}
	if len(ev.RDates) > 0 {
		setRawProp(comp, ical.PropRecurrenceDates, joinInstants(ev.RDates))
	}

	setTextProps(comp, ev.Title, ev.Description, ev.Location)
	setAttendees(comp, ev.Attendees)
	return comp, nil
}

func setTextProps(comp *ical.Component, title, description, location string) {
	comp.Props.SetText(ical.PropSummary, title)
	if description != "" {
		comp.Props.SetText(ical.PropDescription, description)
	}
	if location != "" {
		comp.Props.SetText(ical.PropLocation, location)
	}
}

func setAttendees(comp *ical.Component, attendees []event.Attendee) {
	for _, a := range attendees {
		p := ical.NewProp(ical.PropAttendee)
		if a.Name != "" {
			p.Params.Set("CN", a.Name)
		}
		p.Params.Set("PARTSTAT", a.Status.PartStat())
		p.Value = "mailto:" + a.Email
		comp.Props.Add(p)
	}
}

func setDateProp(comp *ical.Component, name string, d event.Date) {
	p := ical.NewProp(name)
	p.Params.Set("VALUE", "DATE")
	p.Value = d.ICalString()
	comp.Props.Set(p)
}

func setRawProp(comp *ical.Component, name, value string) {
	p := ical.NewProp(name)
	p.Value = value
	comp.Props.Set(p)
}

func joinInstants(ts []time.Time) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ",")
}

func encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
