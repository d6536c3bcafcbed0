package printer

import (
	"fmt"
	"time"
)

// FormatAge returns a human-readable duration.
// Examples: "5 seconds", "2 minutes", "3 hours", "1 day".
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatTimestamp returns a formatted timestamp string in local time.
// Format: "2006-01-02 15:04:05".
func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatSlip returns a signed business day slip, missing slips are "-".
func FormatSlip(days *int) string {
	switch {
	case days == nil:
		return "-"
	case *days > 0:
		return fmt.Sprintf("+%d", *days)
	default:
		return fmt.Sprintf("%d", *days)
	}
}
