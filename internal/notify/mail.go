// Package notify emails the site owner when a visitor books a meeting.
package notify

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/events"
	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

var ErrDisabled = errors.New("notify: smtp credentials not configured")

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  config.SMTPConfig
	send sendFunc
	now  func() time.Time
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Enabled reports whether credentials and a recipient are configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Username != "" && m.cfg.Password != "" && m.cfg.To != ""
}

// BookingNotice mails the owner a summary of ev with the booking attached
// as an .ics file.
func (m *Mailer) BookingNotice(ev model.CalendarEvent) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	msg, err := m.compose(ev)
	if err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.Username, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	appLog.Info("booking notice sent", "event", ev.ID, "to", m.cfg.To)
	return nil
}

// NotifyAsync sends the notice in the background. Failures are logged
// only; a booking never fails because mail did.
func (m *Mailer) NotifyAsync(ev model.CalendarEvent) {
	if !m.Enabled() {
		return
	}
	go func() {
		if err := m.BookingNotice(ev); err != nil {
			appLog.Error("booking notice failed", err, "event", ev.ID)
		}
	}()
}

func (m *Mailer) compose(ev model.CalendarEvent) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var hdr strings.Builder
	hdr.WriteString("To: " + m.cfg.To + "\r\n")
	hdr.WriteString("From: " + m.cfg.Username + "\r\n")
	replyTo := ev.ContactEmail
	if !events.ValidEmail(replyTo) {
		if replyTo != "" {
			appLog.Warn("dropping invalid contact email from booking notice", "event", ev.ID)
		}
		replyTo = ""
	}
	if replyTo != "" {
		hdr.WriteString("Reply-To: " + replyTo + "\r\n")
	}
	hdr.WriteString("Subject: " + subject(ev) + "\r\n")
	hdr.WriteString("MIME-Version: 1.0\r\n")
	hdr.WriteString("Content-Type: multipart/mixed; boundary=" + mw.Boundary() + "\r\n\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(text, "New booking from your portfolio:\r\n\r\n")
	fmt.Fprintf(text, "Name: %s\r\n", ev.ContactName)
	if replyTo != "" {
		fmt.Fprintf(text, "Email: %s\r\n", replyTo)
	}
	if ev.ContactPhone != "" {
		fmt.Fprintf(text, "Phone: %s\r\n", ev.ContactPhone)
	}
	fmt.Fprintf(text, "Type: %s\r\n", ev.Type)
	fmt.Fprintf(text, "When: %s %s-%s (%d min)\r\n", ev.Date.Format("Mon Jan 2, 2006"), ev.StartTime, ev.EndTime, ev.DurationMinutes)
	fmt.Fprintf(text, "\r\n---\r\nSent from your portfolio booking calendar\r\n")

	att, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":        {"text/calendar; charset=utf-8; method=PUBLISH"},
		"Content-Disposition": {`attachment; filename="booking.ics"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := att.Write([]byte(events.ExportICS([]model.CalendarEvent{ev}, m.cfg.To, m.now()))); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(hdr.String()), body.Bytes()...), nil
}

func subject(ev model.CalendarEvent) string {
	// header injection guard
	title := strings.NewReplacer("\r", " ", "\n", " ").Replace(ev.Title)
	return "Portfolio Booking: " + title + " on " + ev.Date.Format("2006-01-02")
}
