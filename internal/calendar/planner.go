package calendar

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"portfolio/internal/events"
	"portfolio/internal/model"
)

var (
	// ErrFormClosed is returned by Submit when no day has been picked.
	ErrFormClosed = errors.New("select a day before adding an event")
)

// Planner is one visitor's calendar widget: the displayed month, the
// selected day and the add-event form.
type Planner struct {
	mu sync.Mutex

	repo events.Repository
	ws   WeekStart
	loc  *time.Location
	now  func() time.Time

	month    time.Time // first of the displayed month
	selected time.Time // zero when nothing is selected
	clicked  time.Time
	formOpen bool
	draft    events.Draft
}

// NewPlanner shows the current month. now defaults to time.Now.
func NewPlanner(repo events.Repository, ws WeekStart, loc *time.Location, now func() time.Time) *Planner {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Planner{
		repo:  repo,
		ws:    ws,
		loc:   loc,
		now:   now,
		month: FirstOfMonth(now().In(loc)),
	}
}

func (p *Planner) today() time.Time {
	return p.now().In(p.loc)
}

// Month is the grid of the displayed month.
func (p *Planner) Month() Month {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Grid(p.month, p.ws, p.today())
}

func (p *Planner) NextMonth() {
	p.mu.Lock()
	p.month = AddMonths(p.month, 1)
	p.mu.Unlock()
}

func (p *Planner) PrevMonth() {
	p.mu.Lock()
	p.month = AddMonths(p.month, -1)
	p.mu.Unlock()
}

// ShowMonth jumps to the month containing t.
func (p *Planner) ShowMonth(t time.Time) {
	p.mu.Lock()
	p.showMonth(t)
	p.mu.Unlock()
}

func (p *Planner) showMonth(t time.Time) {
	p.month = FirstOfMonth(t.In(p.loc))
}

// Select picks day, opens the add-event form for it and clears the form.
// Days outside the displayed month are ignored: Select returns false and
// nothing changes.
func (p *Planner) Select(day time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectDay(day)
}

func (p *Planner) selectDay(day time.Time) bool {
	day = day.In(p.loc)
	if day.Year() != p.month.Year() || day.Month() != p.month.Month() {
		return false
	}
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, p.loc)
	p.selected = d
	p.clicked = d
	p.formOpen = true
	p.draft = events.Draft{}
	return true
}

// CloseForm dismisses the add-event form; the selection stays.
func (p *Planner) CloseForm() {
	p.mu.Lock()
	p.formOpen = false
	p.mu.Unlock()
}

// Submit validates d and books it on the clicked day. Exactly one event is
// appended on success and the form closes. On a validation error nothing
// is stored and the form stays open with the draft kept.
func (p *Planner) Submit(ctx context.Context, d events.Draft) (model.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submit(ctx, d)
}

// Book shows day's month, selects day and submits d as one step, so a
// concurrent request from the same visitor cannot move the selection in
// between.
func (p *Planner) Book(ctx context.Context, day time.Time, d events.Draft) (model.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.showMonth(day)
	if !p.selectDay(day) {
		return model.CalendarEvent{}, ErrFormClosed
	}
	return p.submit(ctx, d)
}

func (p *Planner) submit(ctx context.Context, d events.Draft) (model.CalendarEvent, error) {
	if !p.formOpen || p.clicked.IsZero() {
		return model.CalendarEvent{}, ErrFormClosed
	}
	p.draft = d

	ev, err := d.Build(p.clicked, p.now())
	if err != nil {
		return model.CalendarEvent{}, err
	}
	if err := p.repo.Add(ctx, ev); err != nil {
		return model.CalendarEvent{}, err
	}
	p.formOpen = false
	p.draft = events.Draft{}
	return ev, nil
}

// EventsOn lists the events booked on day's calendar date.
func (p *Planner) EventsOn(ctx context.Context, day time.Time) ([]model.CalendarEvent, error) {
	return p.repo.OnDay(ctx, day.In(p.loc))
}

// Events lists every event the visitor booked.
func (p *Planner) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	return p.repo.List(ctx)
}

// State is a snapshot of the widget for rendering and JSON.
type State struct {
	Month       string       `json:"month"`
	Title       string       `json:"title"`
	Selected    string       `json:"selected,omitempty"`
	FormOpen    bool         `json:"form_open"`
	ClickedDate string       `json:"clicked_date,omitempty"`
	Draft       events.Draft `json:"draft"`
}

func (p *Planner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state()
}

func (p *Planner) state() State {
	st := State{
		Month:    p.month.Format("2006-01"),
		Title:    p.month.Month().String() + " " + strconv.Itoa(p.month.Year()),
		FormOpen: p.formOpen,
		Draft:    p.draft,
	}
	if !p.selected.IsZero() {
		st.Selected = p.selected.Format("2006-01-02")
	}
	if !p.clicked.IsZero() {
		st.ClickedDate = p.clicked.Format("2006-01-02")
	}
	return st
}

// DayView is a grid cell with what the widget shows in it.
type DayView struct {
	Cell
	Selected bool
	Events   []model.CalendarEvent
}

// CountLabel is "1 event" / "3 events", empty when there are none.
func (d DayView) CountLabel() string {
	switch n := len(d.Events); n {
	case 0:
		return ""
	case 1:
		return "1 event"
	default:
		return strconv.Itoa(n) + " events"
	}
}

// MonthView is the displayed month with events attached to each cell.
type MonthView struct {
	Month
	Headers []string
	Days    []DayView
	State   State

	// SelectedDate is zero when no day is selected. SelectedEvents is
	// never nil when a day is selected.
	SelectedDate   time.Time
	SelectedEvents []model.CalendarEvent
}

// WeeksOfDays splits Days into rows of 7.
func (v MonthView) WeeksOfDays() [][]DayView {
	weeks := make([][]DayView, 0, len(v.Days)/7)
	for i := 0; i+7 <= len(v.Days); i += 7 {
		weeks = append(weeks, v.Days[i:i+7])
	}
	return weeks
}

// View renders the displayed month with the visitor's events and the
// event list of the selected day.
func (p *Planner) View(ctx context.Context) (MonthView, error) {
	p.mu.Lock()
	month := Grid(p.month, p.ws, p.today())
	st := p.state()
	selected := p.selected
	p.mu.Unlock()

	all, err := p.repo.List(ctx)
	if err != nil {
		return MonthView{}, err
	}

	days := make([]DayView, 0, len(month.Cells))
	for _, c := range month.Cells {
		dv := DayView{Cell: c, Selected: !selected.IsZero() && SameDay(selected, c.Date)}
		for _, ev := range all {
			if SameDay(ev.Date, c.Date) {
				dv.Events = append(dv.Events, ev)
			}
		}
		days = append(days, dv)
	}

	v := MonthView{
		Month:        month,
		Headers:      month.Start.Headers(),
		Days:         days,
		State:        st,
		SelectedDate: selected,
	}
	if !selected.IsZero() {
		v.SelectedEvents = []model.CalendarEvent{}
		for _, ev := range all {
			if SameDay(ev.Date, selected) {
				v.SelectedEvents = append(v.SelectedEvents, ev)
			}
		}
	}
	return v, nil
}
