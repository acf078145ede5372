package appointment

import "time"

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Range returns the inclusive calendar-date bounds of p around now.
// Weeks start on Monday. Unknown periods fall back to the current month.
func (p Period) Range(now time.Time) (from, to string) {
	y, m, d := now.Date()
	loc := now.Location()

	var start, end time.Time
	switch p {
	case PeriodToday:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = start
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 6)
	case PeriodYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, -1)
	}

	return start.Format(DateLayout), end.Format(DateLayout)
}
