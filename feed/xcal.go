package feed

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/hearthkit/calengine/event"
)

// xCalNamespace is the RFC 6321 xCal XML namespace.
const xCalNamespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// WriteXCal renders the occurrences as an RFC 6321 xCal document, the
// XML rendering of the same feed Serialize produces. Web clients that
// prefer XML over the line-folded ICS text consume this form.
func (s *Serializer) WriteXCal(occurrences []event.Occurrence, meta CalendarMeta) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	icalendar := doc.CreateElement("icalendar")
	icalendar.CreateAttr("xmlns", xCalNamespace)
	vcalendar := icalendar.CreateElement("vcalendar")

	props := vcalendar.CreateElement("properties")
	addTextProp(props, "version", "2.0")
	prodID := meta.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	addTextProp(props, "prodid", prodID)
	addTextProp(props, "calscale", "GREGORIAN")
	if meta.Name != "" {
		addTextProp(props, "x-wr-calname", meta.Name)
	}
	if meta.Description != "" {
		addTextProp(props, "x-wr-caldesc", meta.Description)
	}
	if meta.Timezone != "" {
		addTextProp(props, "x-wr-timezone", meta.Timezone)
	}

	components := vcalendar.CreateElement("components")
	stamp := s.now().UTC()
	for _, o := range occurrences {
		if o.Start.IsZero() {
			s.logger.Warn("skipping unrenderable occurrence",
				"event_id", o.EventID, "index", o.Index)
			continue
		}
		addVEvent(components, o, stamp)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func addVEvent(components *etree.Element, o event.Occurrence, stamp time.Time) {
	vevent := components.CreateElement("vevent")
	props := vevent.CreateElement("properties")

	addTextProp(props, "uid", o.UID())
	addValueProp(props, "dtstamp", "date-time", xcalDateTime(stamp))
	if o.AllDay {
		addValueProp(props, "dtstart", "date", event.DateOf(o.Start, o.Start.Location()).String())
		addValueProp(props, "dtend", "date", event.DateOf(o.End, o.End.Location()).String())
	} else {
		addValueProp(props, "dtstart", "date-time", xcalDateTime(o.Start.UTC()))
		addValueProp(props, "dtend", "date-time", xcalDateTime(o.End.UTC()))
	}
	addTextProp(props, "summary", o.Title)
	if o.Description != "" {
		addTextProp(props, "description", o.Description)
	}
	if o.Location != "" {
		addTextProp(props, "location", o.Location)
	}

	for _, a := range o.Attendees {
		attendee := props.CreateElement("attendee")
		params := attendee.CreateElement("parameters")
		if a.Name != "" {
			params.CreateElement("cn").CreateElement("text").SetText(a.Name)
		}
		params.CreateElement("partstat").CreateElement("text").SetText(a.Status.PartStat())
		attendee.CreateElement("cal-address").SetText("mailto:" + a.Email)
	}
}

func addTextProp(parent *etree.Element, name, value string) {
	parent.CreateElement(name).CreateElement("text").SetText(value)
}

func addValueProp(parent *etree.Element, name, valueType, value string) {
	parent.CreateElement(name).CreateElement(valueType).SetText(value)
}

// xcalDateTime formats an instant in the xCal date-time form.
func xcalDateTime(t time.Time) string {
	return fmt.Sprintf("%sZ", t.UTC().Format("2006-01-02T15:04:05"))
}
