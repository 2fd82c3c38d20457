package domain

import "time"

// AllTimeAnchor is the platform launch date used as the start of every
// all_time window.
var AllTimeAnchor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// WindowTolerance absorbs clock skew and scheduler jitter when matching a
// snapshot row's stored window against a freshly resolved one. Two runs that
// land within this tolerance target the same bucket.
const WindowTolerance = time.Hour

// Window is a concrete [Start, End] time range resolved from a Period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ResolvePeriod maps a period label plus "now" to a concrete window.
// Deterministic for a fixed now. daily and weekly windows always end at the
// end of now's calendar day, so later recomputation within the same bucket
// extends the effective window; monthly and yearly use fixed calendar
// boundaries; all_time runs from the launch anchor up to now.
func ResolvePeriod(period Period, now time.Time) (Window, error) {
	switch period {
	case PeriodDaily:
		return Window{Start: startOfDay(now), End: endOfDay(now)}, nil
	case PeriodWeekly:
		// Most recent Sunday, end clamped to the end of now's day rather
		// than the following Saturday.
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return Window{Start: start, End: endOfDay(now)}, nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := endOfDay(start.AddDate(0, 1, -1))
		return Window{Start: start, End: end}, nil
	case PeriodYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year(), time.December, 31, 23, 59, 59, int(999*time.Millisecond), now.Location())
		return Window{Start: start, End: end}, nil
	case PeriodAllTime:
		return Window{Start: AllTimeAnchor, End: now}, nil
	}
	return Window{}, ErrInvalidPeriod
}

// Matches reports whether another window targets the same bucket, allowing
// both boundaries to drift within WindowTolerance.
func (w Window) Matches(other Window) bool {
	return absDuration(w.Start.Sub(other.Start)) <= WindowTolerance &&
		absDuration(w.End.Sub(other.End)) <= WindowTolerance
}

// Overlaps reports whether the two ranges intersect at all.
func (w Window) Overlaps(start, end time.Time) bool {
	return !start.After(w.End) && !end.Before(w.Start)
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
