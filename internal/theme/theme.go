// Package theme holds the day/night flag. Components that depend on it
// subscribe to the Store instead of watching the rendered document.
package theme

import (
	"sync"

	appLog "portfolio/internal/log"
)

// DarkClass is the class put on the document root in dark mode.
const DarkClass = "dark"

// Persister stores the flag between visits.
type Persister interface {
	// LoadDarkMode returns the stored flag and whether one was stored.
	LoadDarkMode() (dark bool, ok bool)
	SaveDarkMode(dark bool) error
}

// Store is the application-level theme state.
type Store struct {
	mu      sync.Mutex
	dark    bool
	persist Persister
	subs    map[int]func(dark bool)
	nextID  int
}

// New initializes the flag from p, or from fallback when p holds nothing.
// p may be nil.
func New(p Persister, fallback bool) *Store {
	dark := fallback
	if p != nil {
		if v, ok := p.LoadDarkMode(); ok {
			dark = v
		}
	}
	return &Store{dark: dark, persist: p, subs: map[int]func(bool){}}
}

func (s *Store) Dark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Marker is the document-root class for the current flag.
func (s *Store) Marker() string {
	if s.Dark() {
		return DarkClass
	}
	return ""
}

// Toggle flips the flag and returns the new value.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	v := !s.dark
	s.mu.Unlock()
	s.Set(v)
	return v
}

// Set stores the flag, persists it and notifies subscribers. The flag is
// persisted on every call, even when unchanged.
func (s *Store) Set(dark bool) {
	s.mu.Lock()
	changed := s.dark != dark
	s.dark = dark
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	p := s.persist
	s.mu.Unlock()

	if p != nil {
		if err := p.SaveDarkMode(dark); err != nil {
			appLog.Error("theme: persist failed", err, "dark", dark)
		}
	}
	if !changed {
		return
	}
	for _, fn := range subs {
		fn(dark)
	}
}

// Subscribe registers fn for changes and returns a function that removes it.
func (s *Store) Subscribe(fn func(dark bool)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// MemoryPersister keeps the flag in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	value *bool
}

func (m *MemoryPersister) LoadDarkMode() (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		return false, false
	}
	return *m.value, true
}

func (m *MemoryPersister) SaveDarkMode(dark bool) error {
	m.mu.Lock()
	m.value = &dark
	m.mu.Unlock()
	return nil
}
