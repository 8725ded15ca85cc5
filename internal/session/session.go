// Package session keeps per-visitor state between requests: the chat
// conversation and the booking planner.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/calendar"
	"portfolio/internal/chat"
)

// Visitor is everything one browser session owns.
type Visitor struct {
	ID      string
	Chat    *chat.Session
	Planner *calendar.Planner

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *Visitor) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visitor) touch(t time.Time) {
	v.mu.Lock()
	v.lastSeen = t
	v.mu.Unlock()
}

// Factory builds the state for a new visitor id.
type Factory func(id string) (*chat.Session, *calendar.Planner)

type Store struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
	factory  Factory
	now      func() time.Time
}

func NewStore(f Factory) *Store {
	return &Store{visitors: map[string]*Visitor{}, factory: f, now: time.Now}
}

// WithClock replaces the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the visitor for id and marks it as seen. An unknown or
// empty id starts a new visitor under a fresh id; callers compare the
// returned ID to decide whether to reissue the cookie.
func (s *Store) Get(id string) *Visitor {
	now := s.now()

	s.mu.Lock()
	v, ok := s.visitors[id]
	if !ok {
		id = newID()
		c, p := s.factory(id)
		v = &Visitor{ID: id, Chat: c, Planner: p}
		s.visitors[id] = v
	}
	s.mu.Unlock()

	v.touch(now)
	return v
}

// Len is the number of live visitors.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// Sweep drops visitors idle for longer than idle and returns how many
// were removed. Visitors with a chat reply in flight are kept.
func (s *Store) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.visitors {
		if v.LastSeen().Before(cutoff) && !v.Chat.Pending() {
			delete(s.visitors, id)
			n++
		}
	}
	return n
}

func newID() string {
	return uuid.NewString()
}
