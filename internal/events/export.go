package events

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"portfolio/internal/model"
)

// ExportICS renders events as an iCalendar document so a visitor can add
// the meetings they booked to their own calendar.
func ExportICS(evs []model.CalendarEvent, organizer string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//portfolio//bookings//EN")

	for _, ev := range evs {
		vev := cal.AddEvent(ev.ID + "@portfolio")
		vev.SetDtStampTime(now)
		vev.SetCreatedTime(ev.CreatedAt)
		vev.SetStartAt(StartsAt(ev))
		vev.SetEndAt(EndsAt(ev))
		vev.SetSummary(ev.Title)
		vev.SetDescription(describe(ev))
		if organizer != "" {
			vev.SetOrganizer("mailto:" + organizer)
		}
		if ev.ContactEmail != "" {
			vev.AddAttendee("mailto:"+ev.ContactEmail, ical.WithCN(ev.ContactName))
		}
	}
	return cal.Serialize()
}

func describe(ev model.CalendarEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d min)\n", ev.Type, ev.DurationMinutes)
	fmt.Fprintf(&b, "Contact: %s", ev.ContactName)
	if ev.ContactPhone != "" {
		fmt.Fprintf(&b, ", %s", ev.ContactPhone)
	}
	if ev.ContactEmail != "" {
		fmt.Fprintf(&b, ", %s", ev.ContactEmail)
	}
	return b.String()
}
