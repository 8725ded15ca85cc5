// Package web serves the portfolio site: HTML pages, the booking calendar,
// the chat endpoints and the agenda API.
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/agenda"
	"portfolio/internal/calendar"
	"portfolio/internal/chat"
	"portfolio/internal/config"
	appLog "portfolio/internal/log"
	"portfolio/internal/notify"
	"portfolio/internal/profile"
	"portfolio/internal/session"
)

//go:embed all:static
var embeddedStatic embed.FS

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Agenda is the upcoming-events source behind /api/calendar/events.
type Agenda interface {
	Upcoming(ctx context.Context) (agenda.Listing, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config   *config.Config
	Profile  *profile.Profile
	Agenda   Agenda
	Sessions *session.Store
	// Completer answers the stateless /api/chat endpoint.
	Completer chat.Completer
	Mailer    *notify.Mailer
	Location  *time.Location
	Debug     bool
}

type Server struct {
	cfg      *config.Config
	prof     *profile.Profile
	agenda   Agenda
	sessions *session.Store
	llm      chat.Completer
	mailer   *notify.Mailer
	loc      *time.Location
	ws       calendar.WeekStart
	debug    bool

	engine  *gin.Engine
	limiter *ipLimiter
	now     func() time.Time
}

func NewServer(d Deps) (*Server, error) {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:      d.Config,
		prof:     d.Profile,
		agenda:   d.Agenda,
		sessions: d.Sessions,
		llm:      d.Completer,
		mailer:   d.Mailer,
		loc:      loc,
		ws:       calendar.ParseWeekStart(d.Config.WeekStart),
		debug:    d.Debug,
		limiter:  newIPLimiter(d.Config.Chat.RatePerMinute),
		now:      time.Now,
	}

	if !d.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		s.engine.Use(s.basicAuth())
	}

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s.engine.SetHTMLTemplate(tmpl)

	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sweep evicts idle visitor sessions and their rate limiters. It is run
// from the scheduler.
func (s *Server) Sweep(idle time.Duration) {
	n := s.sessions.Sweep(idle)
	m := s.limiter.prune(idle)
	if n > 0 || m > 0 {
		appLog.Info("sessions swept", "visitors", n, "limiters", m, "live", s.sessions.Len())
	}
}

func (s *Server) registerRoutes() error {
	r := s.engine

	r.GET("/health", s.handleHealth)

	static, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(static))

	api := r.Group("/api")
	api.GET("/calendar/events", s.handleUpcoming)
	api.GET("/calendar/month", s.handleMonthJSON)
	api.POST("/chat", s.rateLimit(), s.handleChatProxy)

	site := r.Group("/", s.visitorSession())
	site.GET("/", s.handleIndex)
	site.GET("/resume", s.handleResume)
	site.GET("/resume/download", s.handleResumeDownload)

	site.GET("/calendar", s.handleCalendarFragment)
	site.POST("/calendar/next", s.handleCalendarNav(+1))
	site.POST("/calendar/prev", s.handleCalendarNav(-1))
	site.POST("/calendar/select", s.handleCalendarSelect)
	site.POST("/calendar/close", s.handleCalendarClose)
	site.GET("/calendar/events", s.handleDayEvents)
	site.POST("/calendar/events", s.handleCreateEvent)
	site.GET("/calendar/events.ics", s.handleExportICS)

	site.POST("/chat/send", s.rateLimit(), s.handleChatSend)
	site.GET("/chat/messages", s.handleChatMessages)

	site.POST("/theme/toggle", s.handleThemeToggle)
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// writeError is the JSON error body used by every API route.
func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
