package model

import (
	"sort"
	"time"
)

// HolidayCalendar is a set of non working dates. They are only used to annotate
// schedules, the business day arithmetic doesn't consume them.
type HolidayCalendar struct {
	dates map[time.Time]struct{}
}

// NewHolidayCalendar returns a calendar with the given dates.
func NewHolidayCalendar(dates []time.Time) HolidayCalendar {
	c := HolidayCalendar{dates: make(map[time.Time]struct{}, len(dates))}
	for _, d := range dates {
		c.dates[DateOf(d)] = struct{}{}
	}
	return c
}

// Len returns the number of holidays.
func (c HolidayCalendar) Len() int { return len(c.dates) }

// Contains returns true if d is a holiday.
func (c HolidayCalendar) Contains(d time.Time) bool {
	_, ok := c.dates[DateOf(d)]
	return ok
}

// Within returns the sorted holidays in the [start, end] range.
func (c HolidayCalendar) Within(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	var res []time.Time
	for d := range c.dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Before(res[j]) })
	return res
}
