package services

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestResolveDueDay(t *testing.T) {
	tests := []struct {
		name        string
		month       string
		day         int
		wantDay     int
		wantClamped bool
		wantLabel   string
		wantNote    string
	}{
		{
			name: "leap february clamps 31 to 29", month: "2024-02", day: 31,
			wantDay: 29, wantClamped: true, wantLabel: "Feb 29*",
			wantNote: "requested day 31, month has 29 days, using day 29",
		},
		{
			name: "common february keeps 28", month: "2023-02", day: 28,
			wantDay: 28, wantClamped: false, wantLabel: "Feb 28",
		},
		{
			name: "common february clamps 29", month: "2023-02", day: 29,
			wantDay: 28, wantClamped: true, wantLabel: "Feb 28*",
			wantNote: "requested day 29, month has 28 days, using day 28",
		},
		{
			name: "thirty day month", month: "2024-04", day: 31,
			wantDay: 30, wantClamped: true, wantLabel: "Apr 30*",
			wantNote: "requested day 31, month has 30 days, using day 30",
		},
		{
			name: "below range", month: "2024-05", day: 0,
			wantDay: 1, wantClamped: true, wantLabel: "May 1*",
			wantNote: "requested day 0 is out of range, using day 1",
		},
		{
			name: "above range in long month", month: "2024-01", day: 45,
			wantDay: 31, wantClamped: true, wantLabel: "Jan 31*",
			wantNote: "requested day 45 is out of range, using day 31",
		},
		{
			name: "above range in short month", month: "2024-02", day: 40,
			wantDay: 29, wantClamped: true, wantLabel: "Feb 29*",
			wantNote: "requested day 40, month has 29 days, using day 29",
		},
		{
			name: "unknown month uses 31 days", month: "", day: 31,
			wantDay: 31, wantClamped: false, wantLabel: "Day 31",
		},
		{
			name: "unparseable month has no month note", month: "2024-13", day: 50,
			wantDay: 31, wantClamped: true, wantLabel: "Day 31*",
			wantNote: "requested day 50 is out of range, using day 31",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDueDay(tt.month, intPtr(tt.day))
			if !ok {
				t.Fatal("expected a due date")
			}
			if got.Day != tt.wantDay {
				t.Errorf("Day = %d, want %d", got.Day, tt.wantDay)
			}
			if got.Clamped != tt.wantClamped {
				t.Errorf("Clamped = %v, want %v", got.Clamped, tt.wantClamped)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if got.Note != tt.wantNote {
				t.Errorf("Note = %q, want %q", got.Note, tt.wantNote)
			}
			if got.Requested != tt.day {
				t.Errorf("Requested = %d, want %d", got.Requested, tt.day)
			}
		})
	}
}

func TestResolveDueDayAbsent(t *testing.T) {
	if _, ok := ResolveDueDay("2024-02", nil); ok {
		t.Fatal("absent due day must resolve to no due date")
	}
}
