package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes an external calendar published as an ICS feed. The
// upcoming-events listing on the contact section is built from these.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials. Useful for staging
// deployments that should not be public yet.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type CalendarConfig struct {
	// HorizonDays is how far ahead the upcoming listing looks.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// Refresh is a cron schedule for re-fetching the ICS feeds.
	Refresh string `yaml:"refresh" json:"refresh"`

	// CacheTTLSeconds bounds how long a listing is served from memory
	// between scheduled refreshes.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// CacheDir stores ETag/Last-Modified metadata and the last good body.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`
}

type ChatConfig struct {
	// BaseURL of an OpenAI-compatible API, without the /chat/completions suffix.
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key,omitempty" json:"-"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`

	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// RatePerMinute limits chat requests per client IP. Zero disables it.
	RatePerMinute int `yaml:"rate_per_minute" json:"rate_per_minute"`
}

type EventsConfig struct {
	// Driver is "memory" (per-visitor, lost when the session ends) or
	// "sqlite" (durable, still scoped per visitor).
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// SMTPConfig enables booking notifications. Leave Username empty to disable.
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     string `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password,omitempty" json:"-"`
	To       string `yaml:"to" json:"to"`
}

type SessionConfig struct {
	IdleMinutes  int    `yaml:"idle_minutes" json:"idle_minutes"`
	Sweep        string `yaml:"sweep" json:"sweep"`
	SecureCookie bool   `yaml:"secure_cookie" json:"secure_cookie"`
}

type UIConfig struct {
	TitleRotationMs  int  `yaml:"title_rotation_ms" json:"title_rotation_ms"`
	OverlayDismissMs int  `yaml:"overlay_dismiss_ms" json:"overlay_dismiss_ms"`
	DefaultDark      bool `yaml:"default_dark" json:"default_dark"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for calendar days (e.g. "America/Denver").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ProfilePath optionally overrides the embedded profile.yaml.
	ProfilePath string `yaml:"profile_path" json:"profile_path"`

	// ResumePath is served as an attachment from /resume/download.
	ResumePath string `yaml:"resume_path" json:"resume_path"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Chat     ChatConfig     `yaml:"chat" json:"chat"`
	Events   EventsConfig   `yaml:"events" json:"events"`
	SMTP     SMTPConfig     `yaml:"smtp" json:"smtp"`
	Session  SessionConfig  `yaml:"session" json:"session"`
	UI       UIConfig       `yaml:"ui" json:"ui"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "America/Denver"
	defaultHorizonDays = 30
	defaultRefresh     = "*/15 * * * *"
	defaultSweep       = "*/5 * * * *"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	default:
		c.WeekStart = "sunday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Calendar.HorizonDays <= 0 {
		c.Calendar.HorizonDays = defaultHorizonDays
	}
	if c.Calendar.Refresh == "" {
		c.Calendar.Refresh = defaultRefresh
	}
	if c.Calendar.CacheTTLSeconds <= 0 {
		c.Calendar.CacheTTLSeconds = 60
	}
	if c.Calendar.CacheDir == "" {
		c.Calendar.CacheDir = "./var/ics-cache"
	}
	if c.Calendar.ICS == nil {
		c.Calendar.ICS = []ICSConfig{}
	}

	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = "https://api.openai.com/v1"
	}
	c.Chat.BaseURL = strings.TrimSuffix(c.Chat.BaseURL, "/")
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Chat.Temperature <= 0 {
		c.Chat.Temperature = 0.7
	}
	if c.Chat.MaxTokens <= 0 {
		c.Chat.MaxTokens = 500
	}
	if c.Chat.TimeoutSeconds <= 0 {
		c.Chat.TimeoutSeconds = 60
	}
	if c.Chat.RatePerMinute < 0 {
		c.Chat.RatePerMinute = 0
	}

	switch c.Events.Driver {
	case "sqlite":
		if c.Events.Path == "" {
			c.Events.Path = "./var/events.db"
		}
	default:
		c.Events.Driver = "memory"
	}

	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == "" {
		c.SMTP.Port = "587"
	}

	if c.Session.IdleMinutes <= 0 {
		c.Session.IdleMinutes = 60
	}
	if c.Session.Sweep == "" {
		c.Session.Sweep = defaultSweep
	}

	if c.UI.TitleRotationMs <= 0 {
		c.UI.TitleRotationMs = 3000
	}
	if c.UI.OverlayDismissMs <= 0 {
		c.UI.OverlayDismissMs = 4000
	}
}

// ApplyEnv overrides secrets and deployment knobs from the environment.
// Secrets are expected to come from here (or a .env file) rather than the
// YAML file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}
	if v := getenv("CHAT_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}
	if v := getenv("CHAT_BASE_URL"); v != "" {
		c.Chat.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := getenv("CHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		c.SMTP.Port = v
	}
	if v := getenv("SMTP_USER"); v != "" {
		c.SMTP.Username = v
	}
	if v := getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("TO_EMAIL"); v != "" {
		c.SMTP.To = v
	}
	if v := getenv("CALENDAR_ICS_URL"); v != "" {
		c.Calendar.ICS = append(c.Calendar.ICS, ICSConfig{ID: "env", Name: "primary", URL: v})
	}
	if v := getenv("DEFAULT_DARK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UI.DefaultDark = b
		}
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600) and
// returned. Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
// Secrets tagged omitempty are written only if they were set in the file.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".portfolio-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
