package constraints

import (
	"math"
	"testing"
)

func TestParseTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2 hours", 120},
		{"1 hour", 60},
		{"1.5 hours", 90},
		{"30 min", 30},
		{"45 minutes", 45},
		{"1 day", 1440},
		{"90", 90},
		{"", DefaultMinutes},
		{"a while", DefaultMinutes},
		{"hours", DefaultMinutes},
	}

	for _, tc := range tests {
		if got := ParseTimeToMinutes(tc.in); got != tc.want {
			t.Errorf("ParseTimeToMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDistanceToKm(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5 km", 5},
		{"2.5km", 2.5},
		{"3 kilometers", 3},
		{"3 miles", 3 * 1.60934},
		{"1000 m", 1},
		{"7", 7},
		{"", DefaultKm},
		{"around the block", DefaultKm},
	}

	for _, tc := range tests {
		if got := ParseDistanceToKm(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ParseDistanceToKm(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
