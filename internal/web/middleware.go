package web

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appLog "portfolio/internal/log"
	"portfolio/internal/session"
)

const (
	sessionCookie = "sid"
	visitorKey    = "visitor"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start).Round(time.Microsecond),
			"ip", c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			appLog.Warn("http request", kv...)
			return
		}
		appLog.Debug("http request", kv...)
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An empty
// username or password disables it.
func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuth guards every route except /health.
func (s *Server) basicAuth() gin.HandlerFunc {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			c.Header("WWW-Authenticate", `Basic realm="Portfolio", charset="UTF-8"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// visitorSession attaches the visitor for the sid cookie. The cookie is
// re-issued on every request so its Max-Age slides with the idle sweep.
func (s *Server) visitorSession() gin.HandlerFunc {
	maxAge := s.cfg.Session.IdleMinutes * 60
	return func(c *gin.Context) {
		sid, _ := c.Cookie(sessionCookie)
		v := s.sessions.Get(sid)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, v.ID, maxAge, "/", "", s.cfg.Session.SecureCookie, true)
		c.Set(visitorKey, v)
		c.Next()
	}
}

func visitor(c *gin.Context) *session.Visitor {
	return c.MustGet(visitorKey).(*session.Visitor)
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu    sync.Mutex
	perIP map[string]*limiterEntry
	every rate.Limit
	burst int
}

// newIPLimiter allows perMinute requests per IP. Zero or less disables it.
func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		perIP: map[string]*limiterEntry{},
		every: rate.Limit(float64(perMinute) / 60),
		burst: burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	e, ok := l.perIP[ip]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.perIP[ip] = e
	}
	e.seen = time.Now()
	l.mu.Unlock()
	return e.lim.Allow()
}

// prune forgets IPs not seen within idle.
func (l *ipLimiter) prune(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, e := range l.perIP {
		if e.seen.Before(cutoff) {
			delete(l.perIP, ip)
			n++
		}
	}
	return n
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			writeError(c, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
