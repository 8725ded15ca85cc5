package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/calendar"
	"portfolio/internal/chat"
	"portfolio/internal/events"
	"portfolio/internal/model"
)

type echo struct{}

func (echo) Complete(_ context.Context, h []model.ChatMessage) (string, error) {
	return "echo: " + h[len(h)-1].Content, nil
}

func newTestStore(now *time.Time) *Store {
	clock := func() time.Time { return *now }
	return NewStore(func(id string) (*chat.Session, *calendar.Planner) {
		return chat.NewSession(echo{}, "me@example.com", ""),
			calendar.NewPlanner(events.NewMemoryStore(), calendar.Sunday, time.UTC, clock)
	}).WithClock(clock)
}

func TestGetCreatesAndReuses(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)

	v := s.Get("")
	require.NotEmpty(t, v.ID)
	assert.Same(t, v, s.Get(v.ID))

	other := s.Get("forged-id")
	assert.NotEqual(t, "forged-id", other.ID)
	assert.NotSame(t, v, other)
	assert.Equal(t, 2, s.Len())
}

func TestVisitorsAreIsolated(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)
	a, b := s.Get(""), s.Get("")

	_, err := a.Chat.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Len(t, a.Chat.Messages(), 2)
	assert.Empty(t, b.Chat.Messages())

	a.Planner.NextMonth()
	assert.NotEqual(t, a.Planner.Month().Title(), b.Planner.Month().Title())
}

func TestSweepDropsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(&now)

	old := s.Get("")
	now = now.Add(50 * time.Minute)
	fresh := s.Get("")
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, s.Sweep(time.Hour))
	assert.Equal(t, 1, s.Len())
	assert.NotEqual(t, old.ID, s.Get(old.ID).ID)
	assert.Equal(t, fresh.ID, s.Get(fresh.ID).ID)
}
