package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"zero months", date(2024, time.January, 15), 0, date(2024, time.January, 15)},
		{"plain month", date(2024, time.January, 15), 1, date(2024, time.February, 15)},
		{"jan 31 clamps to feb 29 in leap year", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 clamps to feb 28", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"anchor recovers after clamp", date(2024, time.January, 31), 2, date(2024, time.March, 31)},
		{"may 31 to jun 30", date(2024, time.May, 31), 1, date(2024, time.June, 30)},
		{"year rollover", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
		{"many months keep anchor", date(2024, time.January, 31), 12, date(2025, time.January, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AddMonthsClamped(tc.start, tc.n)
			if !got.Equal(tc.want) {
				t.Fatalf("AddMonthsClamped(%v, %d) = %v, want %v", tc.start, tc.n, got, tc.want)
			}
		})
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, time.March, 5, 23, 59, 58, 0, time.UTC)
	if got := DateOnly(in); !got.Equal(date(2024, time.March, 5)) {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(date(2024, time.January, 31)); got != "2024-01" {
		t.Fatalf("expected 2024-01, got %s", got)
	}
	if got := MonthKey(date(2024, time.December, 1)); got != "2024-12" {
		t.Fatalf("expected 2024-12, got %s", got)
	}
}

func TestInRange(t *testing.T) {
	start := date(2024, time.January, 1)
	end := date(2024, time.January, 31)
	cases := []struct {
		d    time.Time
		want bool
	}{
		{date(2024, time.January, 1), true},
		{date(2024, time.January, 31), true},
		{date(2024, time.January, 15), true},
		{date(2023, time.December, 31), false},
		{date(2024, time.February, 1), false},
	}
	for i, tc := range cases {
		if got := InRange(tc.d, start, end); got != tc.want {
			t.Fatalf("case %d: InRange(%v) = %v, want %v", i, tc.d, got, tc.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("DaysInMonth(%d, %v) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}
