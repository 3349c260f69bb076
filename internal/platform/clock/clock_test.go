package clock

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	cal := New(time.UTC)

	in := time.Date(2025, 3, 14, 18, 45, 12, 999, time.UTC)
	got := cal.StartOfDay(in)
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	if !got.Equal(want) {
		t.Fatalf("StartOfDay = %v, want %v", got, want)
	}
}

func TestSameDay(t *testing.T) {
	cal := New(time.UTC)

	a := time.Date(2025, 3, 14, 0, 0, 1, 0, time.UTC)
	b := time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC)
	cNext := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	if !cal.SameDay(a, b) {
		t.Fatalf("expected same day for %v and %v", a, b)
	}
	if cal.SameDay(b, cNext) {
		t.Fatalf("did not expect same day for %v and %v", b, cNext)
	}
}

func TestWithinWindow(t *testing.T) {
	cal := New(time.UTC)

	start := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) // hora se ignora
	end := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		date time.Time
		end  *time.Time
		want bool
	}{
		{"before start", time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC), &end, false},
		{"on start day", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), &end, true},
		{"inside", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), &end, true},
		{"on end day", time.Date(2025, 3, 20, 23, 59, 0, 0, time.UTC), &end, true},
		{"after end", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), &end, false},
		{"open ended", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cal.WithinWindow(tc.date, start, tc.end); got != tc.want {
				t.Fatalf("WithinWindow(%v) = %v, want %v", tc.date, got, tc.want)
			}
		})
	}
}
