// Package calendar builds the contact-section month view: a whole-week
// grid of days and the per-visitor selection state on top of it.
package calendar

import (
	"strconv"
	"strings"
	"time"
)

// WeekStart is the weekday shown in the first grid column.
type WeekStart time.Weekday

const (
	Sunday WeekStart = WeekStart(time.Sunday)
	Monday WeekStart = WeekStart(time.Monday)
)

// ParseWeekStart accepts "sunday" or "monday"; anything else is Sunday.
func ParseWeekStart(s string) WeekStart {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return Monday
	}
	return Sunday
}

// Headers returns the short weekday names in column order.
func (ws WeekStart) Headers() []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((int(ws) + i) % 7).String()[:3]
	}
	return out
}

// Cell is one day in the grid.
type Cell struct {
	Date    time.Time
	InMonth bool
	Today   bool
}

// Month is a displayable month: its identity plus a flat, whole-week
// sequence of cells.
type Month struct {
	Year  int
	Month time.Month
	Start WeekStart
	Cells []Cell
}

// Title is the "March 2024" heading.
func (m Month) Title() string {
	return m.Month.String() + " " + strconv.Itoa(m.Year)
}

// Weeks splits Cells into rows of 7.
func (m Month) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(m.Cells)/7)
	for i := 0; i+7 <= len(m.Cells); i += 7 {
		weeks = append(weeks, m.Cells[i:i+7])
	}
	return weeks
}

// Contains reports whether day falls in the displayed month.
func (m Month) Contains(day time.Time) bool {
	return day.Year() == m.Year && day.Month() == m.Month
}

// Grid returns the month containing ref, padded with days of the previous
// and next months so it starts on ws and covers whole weeks. Today is
// flagged relative to now; pass the zero time to flag nothing.
func Grid(ref time.Time, ws WeekStart, now time.Time) Month {
	first := FirstOfMonth(ref)
	last := first.AddDate(0, 1, -1)

	lead := (int(first.Weekday()) - int(ws) + 7) % 7
	trail := (int(ws) + 6 - int(last.Weekday()) + 7) % 7

	total := lead + last.Day() + trail
	cells := make([]Cell, 0, total)
	start := first.AddDate(0, 0, -lead)
	for i := 0; i < total; i++ {
		d := start.AddDate(0, 0, i)
		cells = append(cells, Cell{
			Date:    d,
			InMonth: d.Month() == first.Month(),
			Today:   !now.IsZero() && SameDay(d, now.In(d.Location())),
		})
	}

	return Month{
		Year:  first.Year(),
		Month: first.Month(),
		Start: ws,
		Cells: cells,
	}
}

// FirstOfMonth is midnight on the 1st of t's month, in t's location.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AddMonths moves t by n months, clamping the day to the target month's
// length (Jan 31 + 1 month is Feb 29 in a leap year, not Mar 2).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

// SameDay reports calendar-day equality, ignoring time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseMonth parses "2006-01" in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01", strings.TrimSpace(s), loc)
}

// ParseDay parses "2006-01-02" in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
}
