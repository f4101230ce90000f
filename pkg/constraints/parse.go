// Package constraints parses the free-form time and distance strings users
// enter for a tour request.
package constraints

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	// DefaultMinutes is used when a time constraint cannot be parsed.
	DefaultMinutes = 120
	// DefaultKm is used when a distance constraint cannot be parsed.
	DefaultKm = 5.0

	kmPerMile = 1.60934
)

// ParseTimeToMinutes parses strings like "2 hours", "30 min", "1 day".
// Unparseable input falls back to DefaultMinutes.
func ParseTimeToMinutes(s string) int {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "hour"):
		if v, ok := leadingNumber(lower, "hour"); ok {
			return int(v * 60)
		}
	case strings.Contains(lower, "min"):
		if v, ok := digitsOnly(lower); ok {
			return v
		}
	case strings.Contains(lower, "day"):
		if v, ok := leadingNumber(lower, "day"); ok {
			return int(v * 24 * 60)
		}
	default:
		// Bare number is already minutes.
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return DefaultMinutes
}

// ParseDistanceToKm parses strings like "5 km", "3 miles", "1000 m".
// Unparseable input falls back to DefaultKm.
func ParseDistanceToKm(s string) float64 {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "kilometer"):
		if v, ok := leadingNumber(lower, "kilometer"); ok {
			return v
		}
	case strings.Contains(lower, "km"):
		if v, ok := leadingNumber(lower, "km"); ok {
			return v
		}
	case strings.Contains(lower, "mile"):
		if v, ok := leadingNumber(lower, "mile"); ok {
			return v * kmPerMile
		}
	case strings.Contains(lower, "m"):
		if v, ok := digitsOnly(lower); ok {
			return float64(v) / 1000
		}
	default:
		// Bare number is already km.
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return DefaultKm
}

// leadingNumber extracts the numeric value preceding the given unit word.
func leadingNumber(s, unit string) (float64, bool) {
	head, _, found := strings.Cut(s, unit)
	if !found {
		return 0, false
	}
	var b strings.Builder
	for _, r := range head {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// digitsOnly extracts all digits from the string as one integer.
func digitsOnly(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return v, true
}
