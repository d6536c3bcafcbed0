package model

import (
	"strings"
	"time"
)

// DateFormat is the canonical format used to persist dates.
const DateFormat = "2006-01-02"

// dateLayouts are the layouts accepted when reading dates, the canonical one first.
var dateLayouts = []string{
	DateFormat,
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
}

// ParseDate parses a date in any of the accepted layouts. Returns nil if the
// value is empty or can't be parsed.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t
		}
	}

	return nil
}

// FormatDate formats a date using the canonical format, nil dates are empty.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateFormat)
}

// DateOf returns the UTC calendar day of t at midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is a helper to get a pointer to the calendar day of t.
func DatePtr(t time.Time) *time.Time {
	d := DateOf(t)
	return &d
}
