// Package schedule has the schedule and progress computations over a task store.
//
// Every computation is synchronous and fail-soft: tasks with missing or
// unparsable inputs are excluded from the computation instead of aborting it.
package schedule

import (
	"time"

	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/plan"
)

// IsBusinessDay returns true from Monday to Friday.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// CalculatedEndDate returns the date reached after counting duration business
// days from start. The start itself is not counted. Returns nil when any of the
// inputs is missing or the duration is negative.
func CalculatedEndDate(start *time.Time, duration *int) *time.Time {
	if start == nil || duration == nil || *duration < 0 {
		return nil
	}

	end := AddBusinessDays(*start, *duration)
	return &end
}

// AddBusinessDays walks forward one calendar day at a time until n business days
// have been counted.
func AddBusinessDays(start time.Time, n int) time.Time {
	d := model.DateOf(start)
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			counted++
		}
	}
	return d
}

// nextBusinessDay returns d when it is a business day, otherwise the following Monday.
func nextBusinessDay(d time.Time) time.Time {
	d = model.DateOf(d)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// UpdateCalculatedEndDates recomputes the calculated end date of every task.
func UpdateCalculatedEndDates(s *plan.Store) {
	for _, t := range s.Tasks() {
		t.CalculatedEndDate = CalculatedEndDate(t.StartDate, t.DurationDays)
	}
}

// businessEpoch is a Monday used as the origin of the business day axis.
var businessEpoch = time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)

// businessOrdinal maps a date to a business day axis where each working day is
// one unit. Weekend days map to the preceding Friday, which keeps the axis
// consistent with AddBusinessDays (the start day is never counted).
func businessOrdinal(d time.Time) int {
	days := int(model.DateOf(d).Sub(businessEpoch).Hours() / 24)
	weeks, wd := floorDiv(days, 7), floorMod(days, 7)
	if wd > 4 {
		wd = 4
	}
	return weeks*5 + wd
}

// fromBusinessOrdinal is the inverse of businessOrdinal, it always returns a business day.
func fromBusinessOrdinal(o int) time.Time {
	weeks, wd := floorDiv(o, 5), floorMod(o, 5)
	return businessEpoch.AddDate(0, 0, weeks*7+wd)
}

// BusinessDaysBetween returns the signed number of business days from a to b.
func BusinessDaysBetween(a, b time.Time) int {
	return businessOrdinal(b) - businessOrdinal(a)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
