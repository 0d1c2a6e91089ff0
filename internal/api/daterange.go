package api

import (
	"time"

	"github.com/dailypush/einkcal/internal/model"
)

const dateLayout = "2006-01-02"

// DateRangeForView returns the inclusive start/end dates (YYYY-MM-DD) the
// API should be queried with for a view type. Weekly views cover the
// current Monday..Sunday, monthly views the current calendar month, yearly
// the calendar year. Unknown views fall back to the weekly range.
func DateRangeForView(view string, now time.Time) (start, end string) {
	switch view {
	case model.ViewDualMonthly, model.ViewMonthlySquare, model.ViewMonthlyRe:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		last := first.AddDate(0, 1, -1)
		return first.Format(dateLayout), last.Format(dateLayout)
	case model.ViewDualYearly:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		last := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())
		return first.Format(dateLayout), last.Format(dateLayout)
	default: // weekly, dual_weekly and anything unrecognized
		monday := StartOfWeek(now)
		return monday.Format(dateLayout), monday.AddDate(0, 0, 6).Format(dateLayout)
	}
}

// StartOfWeek returns midnight of the Monday of now's week.
func StartOfWeek(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	day := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
}
