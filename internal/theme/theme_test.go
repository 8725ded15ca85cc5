package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUsesPersistedFlag(t *testing.T) {
	p := &MemoryPersister{}
	_ = p.SaveDarkMode(true)

	s := New(p, false)
	assert.True(t, s.Dark())
	assert.Equal(t, DarkClass, s.Marker())
}

func TestNewFallsBackWithoutPersistedFlag(t *testing.T) {
	assert.False(t, New(&MemoryPersister{}, false).Dark())
	assert.True(t, New(nil, true).Dark())
}

func TestToggleTwiceRestoresMarkerAndFlag(t *testing.T) {
	for _, initial := range []bool{false, true} {
		p := &MemoryPersister{}
		_ = p.SaveDarkMode(initial)
		s := New(p, false)
		marker := s.Marker()

		assert.Equal(t, !initial, s.Toggle())
		stored, _ := p.LoadDarkMode()
		assert.Equal(t, !initial, stored)

		s.Toggle()
		assert.Equal(t, marker, s.Marker())
		stored, ok := p.LoadDarkMode()
		assert.True(t, ok)
		assert.Equal(t, initial, stored)
	}
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	s := New(&MemoryPersister{}, false)

	var seen []bool
	cancel := s.Subscribe(func(dark bool) { seen = append(seen, dark) })

	s.Toggle()
	s.Set(true) // unchanged, no notification
	s.Toggle()
	cancel()
	s.Toggle()

	assert.Equal(t, []bool{true, false}, seen)
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := New(nil, false)
	var marker string
	s.Subscribe(func(bool) { marker = s.Marker() })

	s.Toggle()
	assert.Equal(t, DarkClass, marker)
}
