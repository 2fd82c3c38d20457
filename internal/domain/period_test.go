package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriod_Daily(t *testing.T) {
	now := time.Date(2024, time.February, 15, 10, 30, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodDaily, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.February, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestResolvePeriod_WeeklyStartsOnSunday(t *testing.T) {
	// 2024-02-15 is a Thursday; the week began Sunday 2024-02-11
	now := time.Date(2024, time.February, 15, 10, 30, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodWeekly, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.February, 11, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Sunday, w.Start.Weekday())
	// The end is clamped to the end of now's day, not the end of the week
	assert.Equal(t, time.Date(2024, time.February, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestResolvePeriod_WeeklyOnSunday(t *testing.T) {
	// Resolving on a Sunday starts the window that same day
	now := time.Date(2024, time.February, 11, 8, 0, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodWeekly, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.February, 11, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestResolvePeriod_MonthlyLeapFebruary(t *testing.T) {
	now := time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodMonthly, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestResolvePeriod_MonthlyThirtyOneDays(t *testing.T) {
	now := time.Date(2023, time.January, 5, 12, 0, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodMonthly, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2023, time.January, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestResolvePeriod_Yearly(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodYearly, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.December, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestResolvePeriod_AllTime(t *testing.T) {
	now := time.Date(2024, time.February, 15, 10, 30, 0, 0, time.UTC)

	w, err := ResolvePeriod(PeriodAllTime, now)
	require.NoError(t, err)

	assert.Equal(t, AllTimeAnchor, w.Start)
	assert.Equal(t, now, w.End)
}

func TestResolvePeriod_Deterministic(t *testing.T) {
	now := time.Date(2024, time.February, 15, 10, 30, 0, 0, time.UTC)

	for _, period := range Periods() {
		a, err := ResolvePeriod(period, now)
		require.NoError(t, err)
		b, err := ResolvePeriod(period, now)
		require.NoError(t, err)
		assert.Equal(t, a, b, "period %s must resolve identically for a fixed now", period)
	}
}

func TestResolvePeriod_Invalid(t *testing.T) {
	_, err := ResolvePeriod(Period("quarterly"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestWindowMatches_WithinTolerance(t *testing.T) {
	base := Window{
		Start: time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.February, 15, 23, 59, 59, 0, time.UTC),
	}

	shifted := Window{
		Start: base.Start.Add(30 * time.Minute),
		End:   base.End.Add(-30 * time.Minute),
	}
	assert.True(t, base.Matches(shifted))

	drifted := Window{
		Start: base.Start.Add(2 * time.Hour),
		End:   base.End,
	}
	assert.False(t, base.Matches(drifted))
}

func TestWindowOverlapsAndContains(t *testing.T) {
	w := Window{
		Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
	}

	assert.True(t, w.Overlaps(
		time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC),
	))
	assert.False(t, w.Overlaps(
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
	))

	assert.True(t, w.Contains(time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}
