package core

import (
	"testing"
	"time"
)

func baku(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Baku")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	return loc
}

func TestISOWeekday(t *testing.T) {
	loc := baku(t)
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{name: "monday", date: time.Date(2021, 3, 1, 10, 0, 0, 0, loc), want: 1},
		{name: "saturday", date: time.Date(2021, 3, 6, 0, 0, 0, 0, loc), want: 6},
		{name: "sunday remaps to 7", date: time.Date(2021, 3, 7, 23, 59, 0, 0, loc), want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ISOWeekday(tt.date); got != tt.want {
				t.Errorf("ISOWeekday() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayRange(t *testing.T) {
	loc := baku(t)
	start := time.Date(2021, 2, 26, 14, 30, 0, 0, time.UTC) // mid-day UTC instants
	end := time.Date(2021, 3, 2, 3, 0, 0, 0, time.UTC)

	r := NewDayRange(start, end, loc)
	var days []time.Time
	for d, ok := r.Next(); ok; d, ok = r.Next() {
		days = append(days, d)
	}

	// 2021-02-26T14:30Z is already Feb 26 in Baku (+4); 2021-03-02T03:00Z as well.
	if len(days) != 5 {
		t.Fatalf("got %d days, want 5", len(days))
	}
	for i, d := range days {
		if d.Location() != loc {
			t.Errorf("day %d not in civil timezone: %v", i, d.Location())
		}
		if d.Hour() != 0 || d.Minute() != 0 {
			t.Errorf("day %d not normalized to midnight: %v", i, d)
		}
	}
	if got := days[0].Day(); got != 26 {
		t.Errorf("first day = %d, want 26", got)
	}
	if got := days[4].Day(); got != 2 {
		t.Errorf("last day = %d, want 2", got)
	}

	// restartable
	r.Reset()
	if d, ok := r.Next(); !ok || !d.Equal(days[0]) {
		t.Errorf("Reset() did not rewind: got %v, %v", d, ok)
	}

	if got := r.Len(); got != 5 {
		t.Errorf("Len() = %d, want 5", got)
	}
}

func TestDayRangeEndBeforeStart(t *testing.T) {
	loc := baku(t)
	r := NewDayRange(
		time.Date(2021, 3, 5, 0, 0, 0, 0, loc),
		time.Date(2021, 3, 1, 0, 0, 0, 0, loc),
		loc,
	)
	if _, ok := r.Next(); ok {
		t.Error("expected no days when end precedes start")
	}
	if got := r.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestMonthsBack(t *testing.T) {
	loc := baku(t)
	now := time.Date(2021, 3, 15, 12, 0, 0, 0, loc)

	tests := []struct {
		name      string
		count     int
		wantStart time.Time
	}{
		{name: "current month only", count: 1, wantStart: time.Date(2021, 3, 1, 0, 0, 0, 0, loc)},
		{name: "three months", count: 3, wantStart: time.Date(2021, 1, 1, 0, 0, 0, 0, loc)},
		{name: "spanning year boundary", count: 4, wantStart: time.Date(2020, 12, 1, 0, 0, 0, 0, loc)},
		{name: "zero clamps to one", count: 0, wantStart: time.Date(2021, 3, 1, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthsBack(now, tt.count, loc)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			wantEnd := time.Date(2021, 3, 31, 23, 59, 59, 999999999, loc)
			if !end.Equal(wantEnd) {
				t.Errorf("end = %v, want %v", end, wantEnd)
			}
		})
	}
}

func TestCivilRange(t *testing.T) {
	loc := baku(t)
	// 20:30 UTC on Mar 1 is already Mar 2 00:30 in Baku (+4).
	start := time.Date(2021, 3, 1, 20, 30, 0, 0, time.UTC)
	end := time.Date(2021, 3, 10, 20, 30, 0, 0, time.UTC)

	s, e := CivilRange(start, end, loc)
	if s.Day() != 2 || s.Hour() != 0 {
		t.Errorf("start = %v, want Baku midnight Mar 2", s)
	}
	if e.Day() != 11 || e.Hour() != 23 {
		t.Errorf("end = %v, want Baku end of day Mar 11", e)
	}
}
