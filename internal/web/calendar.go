package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/calendar"
	"portfolio/internal/events"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

type dayDTO struct {
	Date    string `json:"date"`
	InMonth bool   `json:"in_month"`
	Today   bool   `json:"today"`
}

type monthDTO struct {
	Month   string   `json:"month"`
	Title   string   `json:"title"`
	Headers []string `json:"headers"`
	Days    []dayDTO `json:"days"`
}

func toMonthDTO(m calendar.Month) monthDTO {
	days := make([]dayDTO, 0, len(m.Cells))
	for _, c := range m.Cells {
		days = append(days, dayDTO{Date: c.Date.Format("2006-01-02"), InMonth: c.InMonth, Today: c.Today})
	}
	return monthDTO{
		Month:   time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Title:   m.Title(),
		Headers: m.Start.Headers(),
		Days:    days,
	}
}

// GET /api/calendar/events
func (s *Server) handleUpcoming(c *gin.Context) {
	l, err := s.agenda.Upcoming(c.Request.Context())
	if err != nil {
		appLog.Error("api calendar events failed", err)
		writeError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	c.JSON(http.StatusOK, l)
}

// GET /api/calendar/month?month=YYYY-MM
func (s *Server) handleMonthJSON(c *gin.Context) {
	now := s.now().In(s.loc)
	ref := now
	if q := c.Query("month"); q != "" {
		t, err := calendar.ParseMonth(q, s.loc)
		if err != nil {
			writeError(c, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		ref = t
	}
	c.JSON(http.StatusOK, toMonthDTO(calendar.Grid(ref, s.ws, now)))
}

// GET /calendar renders the visitor's calendar widget.
func (s *Server) renderCalendar(c *gin.Context, status int) {
	view, err := visitor(c).Planner.View(c.Request.Context())
	if err != nil {
		appLog.Error("calendar view failed", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.HTML(status, "calendar.html", view)
}

func (s *Server) handleCalendarFragment(c *gin.Context) {
	s.renderCalendar(c, http.StatusOK)
}

// POST /calendar/next, POST /calendar/prev
func (s *Server) handleCalendarNav(step int) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := visitor(c).Planner
		if step > 0 {
			p.NextMonth()
		} else {
			p.PrevMonth()
		}
		s.renderCalendar(c, http.StatusOK)
	}
}

// POST /calendar/select date=YYYY-MM-DD
func (s *Server) handleCalendarSelect(c *gin.Context) {
	day, err := calendar.ParseDay(c.PostForm("date"), s.loc)
	if err != nil {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	p := visitor(c).Planner
	ok := p.Select(day)
	c.JSON(http.StatusOK, gin.H{"selected": ok, "state": p.State()})
}

// POST /calendar/close
func (s *Server) handleCalendarClose(c *gin.Context) {
	p := visitor(c).Planner
	p.CloseForm()
	c.JSON(http.StatusOK, gin.H{"state": p.State()})
}

// GET /calendar/events?date=YYYY-MM-DD, or every booking without date.
func (s *Server) handleDayEvents(c *gin.Context) {
	p := visitor(c).Planner
	var (
		evs []model.CalendarEvent
		err error
	)
	if q := c.Query("date"); q != "" {
		day, perr := calendar.ParseDay(q, s.loc)
		if perr != nil {
			writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		evs, err = p.EventsOn(c.Request.Context(), day)
	} else {
		evs, err = p.Events(c.Request.Context())
	}
	if err != nil {
		appLog.Error("list bookings failed", err)
		writeError(c, http.StatusInternalServerError, "Failed to load events")
		return
	}
	if evs == nil {
		evs = []model.CalendarEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

// POST /calendar/events books a meeting on the selected day. A date field,
// when present, selects that day first.
func (s *Server) handleCreateEvent(c *gin.Context) {
	p := visitor(c).Planner

	var d events.Draft
	if err := c.ShouldBind(&d); err != nil {
		writeError(c, http.StatusBadRequest, "invalid form")
		return
	}
	var (
		ev  model.CalendarEvent
		err error
	)
	if q := c.PostForm("date"); q != "" {
		day, perr := calendar.ParseDay(q, s.loc)
		if perr != nil {
			writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ev, err = p.Book(c.Request.Context(), day, d)
	} else {
		ev, err = p.Submit(c.Request.Context(), d)
	}

	var verr *events.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		invalid := make(map[string]string, len(verr.Invalid))
		for k, v := range verr.Invalid {
			invalid[k] = v.Error()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Please fill in all required fields",
			"missing": verr.Missing,
			"invalid": invalid,
		})
		return
	case errors.Is(err, calendar.ErrFormClosed):
		writeError(c, http.StatusConflict, err.Error())
		return
	default:
		appLog.Error("booking failed", err)
		writeError(c, http.StatusInternalServerError, "Failed to save event")
		return
	}

	appLog.Info("booking created", "event", ev.ID, "date", ev.Date.Format("2006-01-02"), "type", ev.Type)
	if s.mailer != nil {
		s.mailer.NotifyAsync(ev)
	}
	c.JSON(http.StatusCreated, gin.H{"event": ev, "state": p.State()})
}

// GET /calendar/events.ics
func (s *Server) handleExportICS(c *gin.Context) {
	evs, err := visitor(c).Planner.Events(c.Request.Context())
	if err != nil {
		appLog.Error("ics export failed", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	body := events.ExportICS(evs, s.prof.Contact.Email, s.now())
	c.Header("Content-Disposition", `attachment; filename="bookings.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
