package util

import (
	"fmt"
	"time"
)

// ParseMonth parses a "YYYY-MM" string into its year and month components.
func ParseMonth(month string) (year, m int, err error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return t.Year(), int(t.Month()), nil
}

// FormatMonth renders a year/month pair as "YYYY-MM".
func FormatMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// MonthOf returns the "YYYY-MM" bucket for a timestamp (UTC).
func MonthOf(t time.Time) string {
	t = t.UTC()
	return FormatMonth(t.Year(), int(t.Month()))
}

// PreviousMonth returns the "YYYY-MM" string for the month before the given one.
func PreviousMonth(month string) (string, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	if m == 1 {
		return FormatMonth(year-1, 12), nil
	}
	return FormatMonth(year, m-1), nil
}
