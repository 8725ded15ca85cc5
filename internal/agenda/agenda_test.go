package agenda

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/config"
	"portfolio/internal/ics"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:b
DTSTAMP:20240301T000000Z
DTSTART:20240320T150000Z
DTEND:20240320T160000Z
SUMMARY:Later
END:VEVENT
BEGIN:VEVENT
UID:a
DTSTAMP:20240301T000000Z
DTSTART:20240312T090000Z
DTEND:20240312T100000Z
SUMMARY:Sooner
END:VEVENT
BEGIN:VEVENT
UID:c
DTSTAMP:20240301T000000Z
DTSTART:20240501T090000Z
DTEND:20240501T100000Z
SUMMARY:Beyond horizon
END:VEVENT
END:VCALENDAR
`

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	body  string
	err   error
}

func (f *fakeFetcher) FetchAll(ctx context.Context, sources []ics.Source) ([]ics.Feed, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, []error{f.err}
	}
	out := make([]ics.Feed, 0, len(sources))
	for _, s := range sources {
		out = append(out, ics.Feed{Source: s, Body: []byte(strings.ReplaceAll(f.body, "\n", "\r\n"))})
	}
	return out, nil
}

func calendarConfig() config.CalendarConfig {
	return config.CalendarConfig{
		HorizonDays:     30,
		CacheTTLSeconds: 60,
		ICS:             []config.ICSConfig{{ID: "main", URL: "https://cal.example/feed.ics"}},
	}
}

func TestUpcomingOrderedWithinHorizon(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewService(&fakeFetcher{body: feed}, calendarConfig(), time.UTC).WithClock(func() time.Time { return now })

	l, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, l.Occurrences, 2)
	assert.Equal(t, "Sooner", l.Occurrences[0].Summary)
	assert.Equal(t, "Later", l.Occurrences[1].Summary)
	assert.Equal(t, now.AddDate(0, 0, 30), l.To)
	assert.Equal(t, "UTC", l.Timezone)
}

func TestUpcomingServesCacheUntilTTL(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	f := &fakeFetcher{body: feed}
	svc := NewService(f, calendarConfig(), time.UTC).WithClock(func() time.Time { return now })

	_, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	_, err = svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	now = now.Add(2 * time.Minute)
	_, err = svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, 3, f.calls)
}

func TestUpcomingFailsWhenNoFeedReadable(t *testing.T) {
	svc := NewService(&fakeFetcher{err: errors.New("dial tcp: refused")}, calendarConfig(), time.UTC)

	_, err := svc.Upcoming(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	svc = NewService(&fakeFetcher{body: "garbage"}, calendarConfig(), time.UTC)
	_, err = svc.Upcoming(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUpcomingWithoutSources(t *testing.T) {
	f := &fakeFetcher{}
	svc := NewService(f, config.CalendarConfig{}, time.UTC)

	l, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l.Occurrences)
	assert.NotNil(t, l.Occurrences)
	assert.Zero(t, f.calls)
}
