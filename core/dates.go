package core

import "time"

// All wall-clock scheduling is civil-timezone-local, not UTC, so that
// "day 3" always means the same local weekday regardless of where the
// server runs. Normalization happens once at range construction.

// StartOfDay returns t at 00:00:00.000000000 in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns t at 23:59:59.999999999 in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns the first instant of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// EndOfMonth returns the last instant of t's month in loc.
func EndOfMonth(t time.Time, loc *time.Location) time.Time {
	return StartOfMonth(t, loc).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// ISOWeekday returns the ISO-8601 weekday of t in its own location:
// Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 { // time.Sunday
		return 7
	}
	return wd
}

// CivilRange normalizes an arbitrary [start, end] pair to civil day
// boundaries: start of start's day and end of end's day in loc.
func CivilRange(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	return StartOfDay(start, loc), EndOfDay(end, loc)
}

// MonthsBack returns the range covering the last `count` calendar months
// up to and including the current one, aligned to month boundaries in loc.
// count <= 1 yields the current month alone.
func MonthsBack(now time.Time, count int, loc *time.Location) (time.Time, time.Time) {
	if count < 1 {
		count = 1
	}
	start := StartOfMonth(now.In(loc).AddDate(0, -(count-1), 0), loc)
	return start, EndOfMonth(now, loc)
}

// DayRange is a finite, restartable iterator over the civil days between
// two bounds (inclusive). The zero value is exhausted.
type DayRange struct {
	start, end time.Time
	cur        time.Time
}

// NewDayRange builds an iterator over every civil day from start's day to
// end's day in loc, inclusive. An end before start yields no days.
func NewDayRange(start, end time.Time, loc *time.Location) *DayRange {
	s, e := CivilRange(start, end, loc)
	return &DayRange{start: s, end: e, cur: s}
}

// Next returns the next day's start instant, or ok=false when exhausted.
func (r *DayRange) Next() (time.Time, bool) {
	if r == nil || r.cur.IsZero() || r.cur.After(r.end) {
		return time.Time{}, false
	}
	day := r.cur
	// AddDate over DST transitions keeps the civil day aligned since cur
	// is always a midnight constructed in loc.
	r.cur = r.cur.AddDate(0, 0, 1)
	return day, true
}

// Reset rewinds the iterator to its first day.
func (r *DayRange) Reset() {
	r.cur = r.start
}

// Len counts the days the full range yields.
func (r *DayRange) Len() int {
	if r == nil || r.cur.IsZero() || r.start.After(r.end) {
		return 0
	}
	n := 0
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
