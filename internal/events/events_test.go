package events

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/model"
)

var (
	testDay = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	testNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
)

func validDraft() Draft {
	return Draft{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		StartTime: "10:00",
		EndTime:   "11:30",
	}
}

func TestDraftValidateMissingFields(t *testing.T) {
	err := Draft{StartTime: "10:00"}.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "end_time"}, verr.Missing)
	assert.Contains(t, err.Error(), "missing required fields: name, end_time")
}

func TestDraftValidateWhitespaceNameIsMissing(t *testing.T) {
	d := validDraft()
	d.Name = "   "

	var verr *ValidationError
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, []string{"name"}, verr.Missing)
}

func TestDraftValidateRejectsOvernightRange(t *testing.T) {
	d := validDraft()
	d.StartTime = "23:00"
	d.EndTime = "01:00"

	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimeRange))
}

func TestDraftValidateRejectsBadClock(t *testing.T) {
	d := validDraft()
	d.EndTime = "half past ten"

	var verr *ValidationError
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Contains(t, verr.Invalid, "end_time")
	assert.NotContains(t, verr.Invalid, "start_time")
}

func TestDraftValidateRejectsMalformedEmail(t *testing.T) {
	for _, email := range []string{
		"not-an-email",
		"a@b.c\r\nBcc: victim@example.com",
		"Ada <ada@example.com>",
	} {
		d := validDraft()
		d.Email = email

		var verr *ValidationError
		require.ErrorAs(t, d.Validate(), &verr, email)
		assert.Contains(t, verr.Invalid, "email", email)
	}

	d := validDraft()
	d.Email = ""
	assert.NoError(t, d.Validate(), "email is optional")
}

func TestDurationMinutes(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
		wantErr    bool
	}{
		{"10:00", "11:30", 90, false},
		{"09:15", "09:45", 30, false},
		{"00:00", "23:59", 1439, false},
		{"14:00", "14:00", 0, true},
		{"15:00", "14:00", 0, true},
		{"25:00", "26:00", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.start+"-"+tc.end, func(t *testing.T) {
			got, err := DurationMinutes(tc.start, tc.end)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildDerivesFields(t *testing.T) {
	ev, err := validDraft().Build(testDay.Add(15*time.Hour), testNow)
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "Meeting with Ada Lovelace", ev.Title)
	assert.Equal(t, testDay, ev.Date)
	assert.Equal(t, 90, ev.DurationMinutes)
	assert.Equal(t, TypeMeeting, ev.Type)
	assert.Equal(t, testNow, ev.CreatedAt)
	assert.Equal(t, testDay.Add(10*time.Hour), StartsAt(ev))
	assert.Equal(t, testDay.Add(11*time.Hour+30*time.Minute), EndsAt(ev))
}

func TestBuildIDsAreTimeOrdered(t *testing.T) {
	a, err := validDraft().Build(testDay, testNow)
	require.NoError(t, err)
	b, err := validDraft().Build(testDay, testNow)
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)
}

func TestStyleClass(t *testing.T) {
	assert.Equal(t, "event-review", StyleClass(TypeReview))
	assert.Equal(t, "event-default", StyleClass("party"))
}

func mustBuild(t *testing.T, day time.Time, start, end string) model.CalendarEvent {
	t.Helper()
	d := validDraft()
	d.StartTime, d.EndTime = start, end
	ev, err := d.Build(day, testNow)
	require.NoError(t, err)
	return ev
}

func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	other := testDay.AddDate(0, 0, 1)

	first := mustBuild(t, testDay, "10:00", "11:00")
	second := mustBuild(t, other, "12:00", "12:30")
	third := mustBuild(t, testDay, "15:00", "16:00")
	for _, ev := range []model.CalendarEvent{first, second, third} {
		require.NoError(t, repo.Add(ctx, ev))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)

	// Time of day on the lookup key must not matter.
	onDay, err := repo.OnDay(ctx, testDay.Add(18*time.Hour))
	require.NoError(t, err)
	require.Len(t, onDay, 2)
	assert.Equal(t, first.ID, onDay[0].ID)
	assert.Equal(t, third.ID, onDay[1].ID)
	assert.Equal(t, testDay, onDay[0].Date)
	assert.Equal(t, 60, onDay[0].DurationMinutes)

	none, err := repo.OnDay(ctx, testDay.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore(t *testing.T) {
	exerciseRepository(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "events.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	exerciseRepository(t, db.For("visitor-a"))

	// Another owner sees nothing.
	others, err := db.For("visitor-b").List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestExportICS(t *testing.T) {
	ev := mustBuild(t, testDay, "10:00", "11:30")
	out := ExportICS([]model.CalendarEvent{ev}, "owner@example.com", testNow)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "SUMMARY:Meeting with Ada Lovelace")
	assert.Contains(t, out, "DTSTART:20240315T100000Z")
	assert.Contains(t, out, "DTEND:20240315T113000Z")
	assert.Contains(t, out, "mailto:ada@example.com")
}
