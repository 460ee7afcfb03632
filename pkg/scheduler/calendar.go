package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Week is one Monday-Sunday span
type Week struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days lists the seven calendar days of the week
func (w Week) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// Date builds a normalized calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday on or before the given day
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthDays returns every date of the target month in order
func MonthDays(year, month int) []time.Time {
	first := Date(year, time.Month(month), 1)
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MonthWeeks returns every Monday-Sunday week that intersects the target
// month, in order. The first and last weeks may extend into the neighboring
// months; the shifts they carry still belong to this schedule.
func MonthWeeks(year, month int) []Week {
	days := MonthDays(year, month)
	first := WeekStart(days[0])
	last := WeekStart(days[len(days)-1])
	var weeks []Week
	for start := first; !start.After(last); start = start.AddDate(0, 0, 7) {
		weeks = append(weeks, Week{Start: start, End: start.AddDate(0, 0, 6)})
	}
	return weeks
}

// ParseMonth parses a target month in MM/YYYY form
func ParseMonth(s string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not MM/YYYY", ErrInvalidMonth, s)
	}
	month, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not MM/YYYY", ErrInvalidMonth, s)
	}
	year, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not MM/YYYY", ErrInvalidMonth, s)
	}
	if month < 1 || month > 12 || year < 1 {
		return 0, 0, fmt.Errorf("%w: %02d/%04d", ErrInvalidMonth, month, year)
	}
	return year, month, nil
}
