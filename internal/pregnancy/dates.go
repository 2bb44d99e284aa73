package pregnancy

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// CalendarDate keeps the wall-clock date of t and drops the time of day, normalized to UTC.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDate(t), nil
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the whole calendar days from a to b (negative when b precedes a).
// It counts days through Unix seconds, so spans beyond time.Duration's ~292 years stay exact.
func DaysBetween(a, b time.Time) int {
	return int(dayNumber(b) - dayNumber(a))
}

// dayNumber is the day index of t's calendar date counted from the Unix epoch.
func dayNumber(t time.Time) int64 {
	return CalendarDate(t).Unix() / secondsPerDay
}

func StartFromDue(due time.Time) time.Time {
	return CalendarDate(due).AddDate(0, 0, -StandardTermDays)
}

func OvulationWeekStart(start time.Time) time.Time {
	return CalendarDate(start).AddDate(0, 0, 14)
}

// WeekNumber is the 1-based gestational week of target counted from start.
func WeekNumber(target, start time.Time) int {
	return floorDiv(DaysBetween(start, target), 7) + 1
}
