package events

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/model"
)

// Known event types. Anything else renders with the neutral style.
const (
	TypeMeeting = "meeting"
	TypeReview  = "review"
	TypeCall    = "call"
)

const clockLayout = "15:04"

var (
	// ErrInvalidTimeRange is returned when the end time is not after the
	// start time. Bookings never cross midnight.
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	errBadClock = errors.New("time must be HH:MM")
	errBadEmail = errors.New("not a valid email address")
)

// ValidationError lists form fields that failed validation.
type ValidationError struct {
	Missing []string
	Invalid map[string]error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	for _, field := range []string{"email", "start_time", "end_time", "time_range"} {
		if err, ok := e.Invalid[field]; ok {
			parts = append(parts, field+": "+err.Error())
		}
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Unwrap exposes ErrInvalidTimeRange to errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Invalid["time_range"]
}

// Draft is the add-event form as the visitor filled it in.
type Draft struct {
	Title     string `form:"title" json:"title"`
	Name      string `form:"name" json:"name"`
	Phone     string `form:"phone" json:"phone"`
	Email     string `form:"email" json:"email"`
	StartTime string `form:"start_time" json:"start_time"`
	EndTime   string `form:"end_time" json:"end_time"`
	Type      string `form:"type" json:"type"`
}

// Validate checks the required name, start and end fields and the time range.
func (d Draft) Validate() error {
	verr := &ValidationError{Invalid: map[string]error{}}

	if strings.TrimSpace(d.Name) == "" {
		verr.Missing = append(verr.Missing, "name")
	}
	if strings.TrimSpace(d.StartTime) == "" {
		verr.Missing = append(verr.Missing, "start_time")
	}
	if strings.TrimSpace(d.EndTime) == "" {
		verr.Missing = append(verr.Missing, "end_time")
	}
	if len(verr.Missing) > 0 {
		return verr
	}

	if email := strings.TrimSpace(d.Email); email != "" && !ValidEmail(email) {
		verr.Invalid["email"] = errBadEmail
	}
	start, serr := ParseClock(d.StartTime)
	if serr != nil {
		verr.Invalid["start_time"] = serr
	}
	end, eerr := ParseClock(d.EndTime)
	if eerr != nil {
		verr.Invalid["end_time"] = eerr
	}
	if serr == nil && eerr == nil && end <= start {
		verr.Invalid["time_range"] = ErrInvalidTimeRange
	}
	if len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

// Build validates the draft and turns it into an event on day.
func (d Draft) Build(day time.Time, now time.Time) (model.CalendarEvent, error) {
	if err := d.Validate(); err != nil {
		return model.CalendarEvent{}, err
	}
	minutes, _ := DurationMinutes(d.StartTime, d.EndTime)

	id, err := uuid.NewV7()
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("event id: %w", err)
	}

	name := strings.TrimSpace(d.Name)
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = "Meeting with " + name
	}
	typ := strings.ToLower(strings.TrimSpace(d.Type))
	if typ == "" {
		typ = TypeMeeting
	}

	return model.CalendarEvent{
		ID:              id.String(),
		Title:           title,
		Date:            midnight(day),
		StartTime:       strings.TrimSpace(d.StartTime),
		EndTime:         strings.TrimSpace(d.EndTime),
		DurationMinutes: minutes,
		Type:            typ,
		ContactName:     name,
		ContactPhone:    strings.TrimSpace(d.Phone),
		ContactEmail:    strings.TrimSpace(d.Email),
		CreatedAt:       now,
	}, nil
}

// ValidEmail reports whether s is a single bare address ("a@b.c") with no
// display name or line breaks, safe to place in a mail header.
func ValidEmail(s string) bool {
	if strings.ContainsAny(s, "\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

// ParseClock parses an "HH:MM" clock time into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, errBadClock
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DurationMinutes is end minus start in minutes, same day only.
func DurationMinutes(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, fmt.Errorf("start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, fmt.Errorf("end: %w", err)
	}
	if e <= s {
		return 0, ErrInvalidTimeRange
	}
	return e - s, nil
}

// StartsAt combines the event date with its start clock time.
func StartsAt(ev model.CalendarEvent) time.Time {
	return atClock(ev.Date, ev.StartTime)
}

// EndsAt combines the event date with its end clock time.
func EndsAt(ev model.CalendarEvent) time.Time {
	return atClock(ev.Date, ev.EndTime)
}

func atClock(day time.Time, clock string) time.Time {
	m, err := ParseClock(clock)
	if err != nil {
		m = 0
	}
	return midnight(day).Add(time.Duration(m) * time.Minute)
}

// StyleClass maps an event type to its display style.
func StyleClass(typ string) string {
	switch typ {
	case TypeMeeting:
		return "event-meeting"
	case TypeReview:
		return "event-review"
	case TypeCall:
		return "event-call"
	default:
		return "event-default"
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
