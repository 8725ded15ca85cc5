package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appLog "portfolio/internal/log"
	"portfolio/internal/theme"
)

const darkModeCookie = "darkMode"

// cookiePersister stores the theme flag in the darkMode cookie.
type cookiePersister struct {
	c      *gin.Context
	secure bool
}

func (p cookiePersister) LoadDarkMode() (bool, bool) {
	v, err := p.c.Cookie(darkModeCookie)
	if err != nil {
		return false, false
	}
	dark, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return dark, true
}

func (p cookiePersister) SaveDarkMode(dark bool) error {
	p.c.SetSameSite(http.SameSiteLaxMode)
	p.c.SetCookie(darkModeCookie, strconv.FormatBool(dark), 365*24*3600, "/", "", p.secure, false)
	return nil
}

func (s *Server) themeFor(c *gin.Context) *theme.Store {
	return theme.New(cookiePersister{c: c, secure: s.cfg.Session.SecureCookie}, s.cfg.UI.DefaultDark)
}

// POST /theme/toggle
func (s *Server) handleThemeToggle(c *gin.Context) {
	st := s.themeFor(c)
	cancel := st.Subscribe(func(dark bool) {
		appLog.Debug("theme changed", "visitor", visitor(c).ID, "dark", dark)
	})
	defer cancel()

	dark := st.Toggle()
	c.JSON(http.StatusOK, gin.H{"dark": dark, "marker": st.Marker()})
}
