package web

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/internal/calendar"
	"portfolio/internal/chat"
	"portfolio/internal/events"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
	"portfolio/internal/profile"
)

type pageData struct {
	Marker   string
	Profile  *profile.Profile
	Calendar calendar.MonthView
	Messages []model.ChatMessage
	Pending  bool
	UI       uiData
	Resume   bool
}

type uiData struct {
	TitleRotationMs  int
	OverlayDismissMs int
	ChatName         string
	// ChatFallback is shown when the chat request itself fails in the browser.
	ChatFallback string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"eventClass": events.StyleClass,
		"lower":      strings.ToLower,
		"initial": func(s string) string {
			if s == "" {
				return ""
			}
			return strings.ToUpper(s[:1])
		},
	}
}

func (s *Server) resumeAvailable() bool {
	if s.cfg.ResumePath == "" {
		return false
	}
	fi, err := os.Stat(s.cfg.ResumePath)
	return err == nil && !fi.IsDir()
}

func (s *Server) basePage(ctx context.Context, c *gin.Context) (pageData, error) {
	v := visitor(c)
	view, err := v.Planner.View(ctx)
	if err != nil {
		return pageData{}, err
	}
	return pageData{
		Marker:   s.themeFor(c).Marker(),
		Profile:  s.prof,
		Calendar: view,
		Messages: v.Chat.Messages(),
		Pending:  v.Chat.Pending(),
		UI: uiData{
			TitleRotationMs:  s.cfg.UI.TitleRotationMs,
			OverlayDismissMs: s.cfg.UI.OverlayDismissMs,
			ChatName:         s.prof.FirstName(),
			ChatFallback:     chat.FallbackMessage(s.prof.Contact.Email),
		},
		Resume: s.resumeAvailable(),
	}, nil
}

// GET /
func (s *Server) handleIndex(c *gin.Context) {
	data, err := s.basePage(c.Request.Context(), c)
	if err != nil {
		appLog.Error("index: planner view failed", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// GET /resume
func (s *Server) handleResume(c *gin.Context) {
	c.HTML(http.StatusOK, "resume.html", pageData{
		Marker:  s.themeFor(c).Marker(),
		Profile: s.prof,
		Resume:  s.resumeAvailable(),
	})
}

// GET /resume/download
func (s *Server) handleResumeDownload(c *gin.Context) {
	if !s.resumeAvailable() {
		c.String(http.StatusNotFound, "Resume not available")
		return
	}
	c.FileAttachment(s.cfg.ResumePath, filepath.Base(s.cfg.ResumePath))
}
