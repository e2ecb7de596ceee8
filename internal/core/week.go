package core

import (
	"fmt"
	"strings"
	"time"
)

// WeekPeriod is the Monday–Sunday week containing a reference date.
// Start is Monday 00:00:00.000 and End is Sunday 23:59:59.999, both in the
// location of the reference date; End is an inclusive bound.
type WeekPeriod struct {
	Start time.Time
	End   time.Time
	Label string
	Key   string
}

// ResolveWeek returns the week that contains ref.
func ResolveWeek(ref time.Time) WeekPeriod {
	loc := ref.Location()
	y, m, d := ref.Date()

	// Sunday counts as the seventh day, so weeks never run Sunday→Saturday.
	offset := 1 - int(ref.Weekday())
	if ref.Weekday() == time.Sunday {
		offset = -6
	}
	start := time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
	sy, sm, sd := start.Date()
	end := time.Date(sy, sm, sd+6, 23, 59, 59, 999_000_000, loc)

	return WeekPeriod{
		Start: start,
		End:   end,
		Label: shortDate(start) + " – " + shortDate(end),
		Key:   start.Format(time.DateOnly) + "_" + end.Format(time.DateOnly),
	}
}

// ParseReferenceDate reads a reference date given as YYYY-MM-DD or RFC3339.
// Empty or malformed input yields now; it never fails.
func ParseReferenceDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(now.Location())
	}
	return now
}

// Contains reports whether the instant t lies within the week, inclusive on
// both ends.
func (p WeekPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// StartDate returns the Monday of the week.
func (p WeekPeriod) StartDate() Date {
	return DateOf(p.Start)
}

// EndDate returns the Sunday of the week.
func (p WeekPeriod) EndDate() Date {
	return DateOf(p.End)
}

func (p WeekPeriod) Next() WeekPeriod {
	return ResolveWeek(p.Start.AddDate(0, 0, 7))
}

func (p WeekPeriod) Prev() WeekPeriod {
	return ResolveWeek(p.Start.AddDate(0, 0, -7))
}

// InPeriod reports whether a record dated d belongs to the week. The date is
// taken as the instant it starts in the week's location.
func InPeriod(d Date, p WeekPeriod) bool {
	if d.IsZero() {
		return false
	}
	return p.Contains(d.In(p.Start.Location()))
}

// shortDate formats t as d/m/yyyy, the id-ID short date form.
func shortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// ShortDate formats a calendar date as d/m/yyyy.
func ShortDate(d Date) string {
	return shortDate(d.Time)
}
