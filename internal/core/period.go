package core

import (
	"strings"
	"time"
)

// Period is the aggregation window accepted by the analytics endpoints.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// DateLayout is the wire and form format for calendar dates.
const DateLayout = "2006-01-02"

// Periods lists the selectable periods in display order.
var Periods = []Period{PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear}

// ParsePeriod defaults to month for empty or unknown input.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p
	default:
		return PeriodMonth
	}
}

// Label is the human name shown in selectors.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "This week"
	case PeriodQuarter:
		return "This quarter"
	case PeriodYear:
		return "This year"
	default:
		return "This month"
	}
}

// Range returns the [start, end) window of the period containing now.
// Weeks start on Monday.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 7)
	case PeriodQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, qm, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 3, 0)
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
}

// ParseDate parses a YYYY-MM-DD date. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
