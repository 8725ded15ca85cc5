package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "portfolio/internal/log"
)

// VEvent is a parsed VEVENT before recurrence expansion.
type VEvent struct {
	Source Source

	UID      string
	Sequence int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set on a VEVENT that replaces one instance of a
	// recurring event.
	RecurrenceID *time.Time
}

func (e VEvent) IsOverride() bool { return e.RecurrenceID != nil }

// ParseICS decodes a feed body. VEVENTs that cannot be read are logged
// and skipped; only a body that is not a calendar at all is an error.
func ParseICS(src Source, body []byte) ([]VEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	comps := cal.Events()
	out := make([]VEvent, 0, len(comps))
	for _, comp := range comps {
		ev, err := parseVEvent(src, comp)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "err", err.Error())
			continue
		}
		out = append(out, ev)
	}
	appLog.Debug("ics parsed", "id", src.ID, "events", len(out))
	return out, nil
}

func parseVEvent(src Source, comp *ical.VEvent) (VEvent, error) {
	ev := VEvent{Source: src}

	ev.UID = propValue(comp, ical.ComponentPropertyUniqueId)
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}
	if n, err := strconv.Atoi(propValue(comp, ical.ComponentPropertySequence)); err == nil {
		ev.Sequence = n
	}
	ev.Summary = propValue(comp, ical.ComponentPropertySummary)
	ev.Description = propValue(comp, ical.ComponentPropertyDescription)
	ev.Location = propValue(comp, ical.ComponentPropertyLocation)

	dtstart := comp.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = isDateValue(dtstart)

	var err error
	if ev.AllDay {
		ev.Start, err = comp.GetAllDayStartAt()
	} else {
		ev.Start, err = comp.GetStartAt()
	}
	if err != nil {
		return ev, err
	}

	switch {
	case comp.GetProperty(ical.ComponentPropertyDtEnd) != nil:
		if ev.AllDay {
			ev.End, err = comp.GetAllDayEndAt()
		} else {
			ev.End, err = comp.GetEndAt()
		}
		if err != nil {
			return ev, err
		}
	case ev.AllDay:
		ev.End = ev.Start.AddDate(0, 0, 1)
	default:
		ev.End = ev.Start
	}
	if ev.End.Before(ev.Start) {
		ev.End = ev.Start
	}

	ev.RRule = propValue(comp, ical.ComponentPropertyRrule)

	loc := ev.Start.Location()
	for _, p := range comp.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, paramLocation(p, loc)); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := comp.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, paramLocation(p, loc)); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

func propValue(comp *ical.VEvent, name ical.ComponentProperty) string {
	if p := comp.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// paramLocation resolves the property's TZID, falling back to def.
func paramLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseICSTime reads the three DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
