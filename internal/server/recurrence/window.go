package recurrence

import (
	"sort"
	"time"
)

type date struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) date {
	y, m, d := t.Date()
	return date{y, m, d}
}

// Window is a reporting window: a set of calendar days in one location.
// Its start is midnight of the earliest day.
type Window struct {
	loc  *time.Location
	days map[date]struct{}
	from time.Time
}

// NewWindow builds a window from the calendar dates of days, read in the
// location of the first day. An empty window contains nothing.
func NewWindow(days ...time.Time) Window {
	w := Window{loc: time.UTC, days: make(map[date]struct{}, len(days))}
	if len(days) == 0 {
		return w
	}
	w.loc = days[0].Location()

	sorted := make([]time.Time, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for _, d := range sorted {
		w.days[dateOf(d.In(w.loc))] = struct{}{}
	}
	first := dateOf(sorted[0].In(w.loc))
	w.from = time.Date(first.year, first.month, first.day, 0, 0, 0, 0, w.loc)
	return w
}

// MonthWindow returns the days a Monday-first month calendar page shows for
// year and month: the month itself plus the leading and trailing days that
// complete its first and last weeks.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -daysSinceMonday(first.Weekday()))
	end := last.AddDate(0, 0, 6-daysSinceMonday(last.Weekday()))

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return NewWindow(days...)
}

func daysSinceMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Start is midnight of the earliest day, or the zero time for an empty window.
func (w Window) Start() time.Time {
	return w.from
}

// Len is the number of days in the window.
func (w Window) Len() int {
	return len(w.days)
}

// Contains reports whether the calendar date of t, read in the window's
// location, is one of its days.
func (w Window) Contains(t time.Time) bool {
	_, ok := w.days[dateOf(t.In(w.loc))]
	return ok
}
