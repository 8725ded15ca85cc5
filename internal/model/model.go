package model

import "time"

// CalendarEvent is a meeting a visitor booked through the contact calendar.
// Events are created once and never mutated.
type CalendarEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Date is midnight of the booked day in the display timezone.
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"` // "15:04"
	EndTime   string    `json:"end_time"`   // "15:04"

	// DurationMinutes is derived from StartTime/EndTime.
	DurationMinutes int    `json:"duration_minutes"`
	Type            string `json:"type"`

	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Occurrence represents a single concrete instance of an event on the
// owner's external calendar (after recurrence expansion and timezone
// normalization).
type Occurrence struct {
	SourceID string `json:"source_id"`
	UID      string `json:"uid"`

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start / End are in the configured display timezone.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the chat bubble conversation.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
