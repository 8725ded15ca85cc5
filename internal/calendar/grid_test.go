package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGridMarch2024(t *testing.T) {
	m := Grid(date(2024, time.March, 15), Sunday, time.Time{})

	require.Len(t, m.Cells, 42)
	assert.Equal(t, date(2024, time.February, 25), m.Cells[0].Date)
	assert.Equal(t, time.Sunday, m.Cells[0].Date.Weekday())
	assert.Equal(t, date(2024, time.April, 6), m.Cells[len(m.Cells)-1].Date)
	assert.Equal(t, time.Saturday, m.Cells[len(m.Cells)-1].Date.Weekday())
	assert.Equal(t, "March 2024", m.Title())
	assert.Len(t, m.Weeks(), 6)
}

func TestGridMonthStartingOnWeekStartHasNoLeadingDays(t *testing.T) {
	// September 2024 starts on a Sunday and ends on a Monday.
	m := Grid(date(2024, time.September, 10), Sunday, time.Time{})

	assert.Equal(t, date(2024, time.September, 1), m.Cells[0].Date)
	assert.True(t, m.Cells[0].InMonth)
	assert.Equal(t, date(2024, time.October, 5), m.Cells[len(m.Cells)-1].Date)
}

func TestGridFebruaryExactlyFourWeeks(t *testing.T) {
	// February 2015: 28 days, Sunday 1st through Saturday 28th.
	m := Grid(date(2015, time.February, 14), Sunday, time.Time{})

	assert.Len(t, m.Cells, 28)
	for _, c := range m.Cells {
		assert.True(t, c.InMonth)
	}
}

func TestGridLeapFebruary(t *testing.T) {
	m := Grid(date(2024, time.February, 1), Sunday, time.Time{})

	inMonth := 0
	for _, c := range m.Cells {
		if c.InMonth {
			inMonth++
		}
	}
	assert.Equal(t, 29, inMonth)
}

func TestGridMondayStart(t *testing.T) {
	m := Grid(date(2024, time.March, 15), Monday, time.Time{})

	assert.Equal(t, date(2024, time.February, 26), m.Cells[0].Date)
	assert.Equal(t, date(2024, time.March, 31), m.Cells[len(m.Cells)-1].Date)
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, Monday.Headers())
	assert.Equal(t, "Sun", Sunday.Headers()[0])
}

func TestGridProperties(t *testing.T) {
	for _, ws := range []WeekStart{Sunday, Monday} {
		ref := date(1999, time.January, 1)
		for i := 0; i < 400; i++ {
			d := ref.AddDate(0, 0, i*17)
			m := Grid(d, ws, time.Time{})

			require.Zero(t, len(m.Cells)%7, "grid for %s", d)
			assert.Equal(t, time.Weekday(ws), m.Cells[0].Date.Weekday())

			found := false
			for j, c := range m.Cells {
				if j > 0 {
					assert.Equal(t, m.Cells[j-1].Date.AddDate(0, 0, 1), c.Date)
				}
				if SameDay(c.Date, d) {
					found = true
					assert.True(t, c.InMonth)
				}
				assert.Equal(t, c.Date.Month() == d.Month(), c.InMonth)
			}
			assert.True(t, found, "reference day %s missing", d)
		}
	}
}

func TestGridFlagsToday(t *testing.T) {
	now := time.Date(2024, time.March, 20, 17, 45, 0, 0, time.UTC)
	m := Grid(date(2024, time.March, 1), Sunday, now)

	var today []time.Time
	for _, c := range m.Cells {
		if c.Today {
			today = append(today, c.Date)
		}
	}
	assert.Equal(t, []time.Time{date(2024, time.March, 20)}, today)
}

func TestAddMonthsClampsDay(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 29), AddMonths(date(2024, time.January, 31), 1))
	assert.Equal(t, date(2023, time.February, 28), AddMonths(date(2023, time.January, 31), 1))
	assert.Equal(t, date(2023, time.December, 15), AddMonths(date(2024, time.January, 15), -1))
	assert.Equal(t, date(2024, time.April, 30), AddMonths(date(2024, time.March, 31), 1))
}

func TestSameDayIgnoresTime(t *testing.T) {
	a := time.Date(2024, time.March, 15, 0, 0, 1, 0, time.UTC)
	b := time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.Add(time.Hour)))
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, Monday, ParseWeekStart("Monday"))
	assert.Equal(t, Sunday, ParseWeekStart(""))
	assert.Equal(t, Sunday, ParseWeekStart("friday"))
}

func TestParseMonthAndDay(t *testing.T) {
	m, err := ParseMonth("2024-03", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 1), m)

	d, err := ParseDay("2024-03-15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 15), d)

	_, err = ParseDay("15/03/2024", time.UTC)
	assert.Error(t, err)
}
