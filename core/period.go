package core

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

var ErrInvalidPeriod = NewValidationError(nil, FieldError{Field: "period", Error: "period must be a month in the YYYY-MM format"})

// ParsePeriod parses a YYYY-MM month into the first instant of that month (UTC).
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return t, nil
}

// FormatPeriod returns the YYYY-MM month of t.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

func CurrentPeriod(now time.Time) string {
	return FormatPeriod(now)
}

// PeriodDate returns the given day of the period's month; day is clamped to 1..28.
func PeriodDate(period string, day int) (time.Time, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	if day < 1 {
		day = 1
	} else if day > 28 {
		day = 28
	}
	return time.Date(start.Year(), start.Month(), day, 0, 0, 0, 0, time.UTC), nil
}

// MonthKey buckets t by month: YYYY-MM.
func MonthKey(t time.Time) string {
	return FormatPeriod(t)
}

// WeekKey buckets t by ISO week: YYYY-Www.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
