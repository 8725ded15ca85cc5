package notify

import (
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/config"
	"portfolio/internal/model"
)

func booking() model.CalendarEvent {
	return model.CalendarEvent{
		ID:              "0190c2d0-0000-7000-8000-000000000001",
		Title:           "Meeting with Ada\r\nBcc: evil@example.com",
		Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		StartTime:       "10:00",
		EndTime:         "10:45",
		DurationMinutes: 45,
		Type:            "call",
		ContactName:     "Ada",
		ContactEmail:    "ada@example.com",
		ContactPhone:    "555-0100",
	}
}

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "site@example.com", Password: "pw", To: "owner@example.com"}
}

func TestBookingNoticeComposesMessage(t *testing.T) {
	m := NewMailer(smtpConfig())
	m.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	var addr, from string
	var to []string
	var msg []byte
	m.send = func(a string, _ smtp.Auth, f string, rcpt []string, body []byte) error {
		addr, from, to, msg = a, f, rcpt, body
		return nil
	}

	require.NoError(t, m.BookingNotice(booking()))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, "site@example.com", from)
	assert.Equal(t, []string{"owner@example.com"}, to)

	s := string(msg)
	assert.Contains(t, s, "Reply-To: ada@example.com\r\n")
	assert.Contains(t, s, "Subject: Portfolio Booking: Meeting with Ada  Bcc: evil@example.com on 2024-03-15\r\n")
	assert.NotContains(t, s, "\r\nBcc:")
	assert.Contains(t, s, "When: Fri Mar 15, 2024 10:00-10:45 (45 min)")
	assert.Contains(t, s, `filename="booking.ics"`)
	assert.Contains(t, s, "BEGIN:VCALENDAR")
}

func TestBookingNoticeDropsForgedReplyTo(t *testing.T) {
	m := NewMailer(smtpConfig())
	var msg []byte
	m.send = func(_ string, _ smtp.Auth, _ string, _ []string, body []byte) error {
		msg = body
		return nil
	}

	ev := booking()
	ev.ContactEmail = "a@b.c\r\nBcc: victim@example.com\r\nX-Injected: yes"
	require.NoError(t, m.BookingNotice(ev))

	s := string(msg)
	assert.NotContains(t, s, "Reply-To:")
	assert.NotContains(t, s, "\r\nBcc: victim@example.com")
	assert.NotContains(t, s, "X-Injected")
}

func TestDisabledWithoutCredentials(t *testing.T) {
	cfg := smtpConfig()
	cfg.Password = ""
	m := NewMailer(cfg)
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.BookingNotice(booking()), ErrDisabled)
	m.NotifyAsync(booking())
}

func TestSendFailureIsWrapped(t *testing.T) {
	m := NewMailer(smtpConfig())
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }

	err := m.BookingNotice(booking())
	assert.ErrorContains(t, err, "535 auth failed")
}
