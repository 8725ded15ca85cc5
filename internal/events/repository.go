// Package events holds the meetings visitors book through the contact
// calendar: form validation, storage and iCalendar export.
package events

import (
	"context"
	"sync"
	"time"

	"portfolio/internal/model"
)

// Repository stores one visitor's booked events.
type Repository interface {
	Add(ctx context.Context, ev model.CalendarEvent) error
	// List returns all events in insertion order.
	List(ctx context.Context) ([]model.CalendarEvent, error)
	// OnDay returns the events whose date is the same calendar day as day.
	OnDay(ctx context.Context, day time.Time) ([]model.CalendarEvent, error)
}

// MemoryStore keeps events for the lifetime of a visitor session.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.CalendarEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Add(_ context.Context, ev model.CalendarEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]model.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CalendarEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemoryStore) OnDay(_ context.Context, day time.Time) ([]model.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CalendarEvent, 0)
	for _, ev := range m.events {
		if sameDay(ev.Date, day.In(ev.Date.Location())) {
			out = append(out, ev)
		}
	}
	return out, nil
}
