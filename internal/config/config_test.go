package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 30, cfg.Calendar.HorizonDays)
	assert.Equal(t, "memory", cfg.Events.Driver)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9000"
week_start: Monday
calendar:
  ics:
    - url: https://example.com/cal.ics
events:
  driver: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Len(t, cfg.Calendar.ICS, 1)
	assert.Equal(t, "./var/events.db", cfg.Events.Path)
	assert.Equal(t, "*/15 * * * *", cfg.Calendar.Refresh)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":             "3000",
		"CHAT_API_KEY":     "sk-test",
		"SMTP_USER":        "owner@example.com",
		"CALENDAR_ICS_URL": "https://example.com/private.ics",
		"DEFAULT_DARK":     "true",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ":3000", cfg.Listen)
	assert.Equal(t, "sk-test", cfg.Chat.APIKey)
	assert.Equal(t, "owner@example.com", cfg.SMTP.Username)
	require.Len(t, cfg.Calendar.ICS, 1)
	assert.Equal(t, "env", cfg.Calendar.ICS[0].ID)
	assert.True(t, cfg.UI.DefaultDark)
}

func TestSaveRoundTripKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Chat.Model = "local-model"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", loaded.Timezone)
	assert.Equal(t, "local-model", loaded.Chat.Model)
}
