// Package calendar maps between elapsed working time and wall-clock
// instants. A Calendar is defined by a daily working window and a set of
// working weekdays; everything outside the window is skipped.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidWindow is returned when the end of the working day is not
// after its start.
var ErrInvalidWindow = errors.New("workday end must be after workday start")

// ErrNoWorkdays is returned when a calendar has no working weekdays.
var ErrNoWorkdays = errors.New("calendar has no working weekdays")

// Calendar converts between working-hour offsets and timestamps. The zero
// value is not usable; construct one with New or Default.
type Calendar struct {
	dayStart time.Duration // offset from midnight
	dayEnd   time.Duration
	workdays [7]bool
}

// New creates a calendar working from dayStart to dayEnd on the given
// weekdays. Duplicate weekdays are ignored.
func New(dayStart, dayEnd Clock, workdays []time.Weekday) (*Calendar, error) {
	if dayEnd.offset() <= dayStart.offset() {
		return nil, fmt.Errorf("%w: %s - %s", ErrInvalidWindow, dayStart, dayEnd)
	}
	c := &Calendar{
		dayStart: dayStart.offset(),
		dayEnd:   dayEnd.offset(),
	}
	for _, wd := range workdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, fmt.Errorf("calendar: weekday %d out of range", wd)
		}
		c.workdays[wd] = true
	}
	if len(c.Workdays()) == 0 {
		return nil, ErrNoWorkdays
	}
	return c, nil
}

// Default returns the 08:00-17:00, Monday-Friday calendar.
func Default() *Calendar {
	c, _ := New(Clock{Hour: 8}, Clock{Hour: 17}, []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	})
	return c
}

// HoursPerDay is the length of the working window in hours. It is a
// property of the calendar only; duration unit conventions are separate.
func (c *Calendar) HoursPerDay() float64 {
	return (c.dayEnd - c.dayStart).Hours()
}

// Workdays returns the working weekdays, Sunday first.
func (c *Calendar) Workdays() []time.Weekday {
	var days []time.Weekday
	for wd, ok := range c.workdays {
		if ok {
			days = append(days, time.Weekday(wd))
		}
	}
	return days
}

// IsWorkday reports whether t falls on a working weekday.
func (c *Calendar) IsWorkday(t time.Time) bool {
	return c.workdays[t.Weekday()]
}

// AlignStart moves t forward to the next instant at which work can start.
// Instants already inside the working window are returned unchanged.
func (c *Calendar) AlignStart(t time.Time) time.Time {
	switch {
	case !c.IsWorkday(t):
		return c.nextWorkdayStart(t)
	case !t.Before(c.endOf(t)):
		return c.nextWorkdayStart(midnight(t).AddDate(0, 0, 1))
	case t.Before(c.startOf(t)):
		return c.startOf(t)
	}
	return t
}

// AlignFinish moves t backward to the last instant at which work could
// have finished. Instants inside the window, including the window end,
// are returned unchanged.
func (c *Calendar) AlignFinish(t time.Time) time.Time {
	switch {
	case !c.IsWorkday(t):
		return c.prevWorkdayEnd(t)
	case t.Before(c.startOf(t)):
		return c.prevWorkdayEnd(midnight(t).AddDate(0, 0, -1))
	case t.After(c.endOf(t)):
		return c.endOf(t)
	}
	return t
}

// AddHours advances t by the given number of working hours. A result that
// exactly exhausts a working day lands on that day's end. Negative hours
// delegate to SubtractHours; zero returns AlignStart(t).
func (c *Calendar) AddHours(t time.Time, hours float64) time.Time {
	if hours < 0 {
		return c.SubtractHours(t, -hours)
	}
	cur := c.AlignStart(t)
	remaining := toDuration(hours)
	for remaining > 0 {
		available := c.endOf(cur).Sub(cur)
		if remaining <= available {
			return cur.Add(remaining)
		}
		remaining -= available
		cur = c.nextWorkdayStart(midnight(cur).AddDate(0, 0, 1))
	}
	return cur
}

// SubtractHours moves t backward by the given number of working hours.
// Negative hours delegate to AddHours; zero returns AlignFinish(t).
func (c *Calendar) SubtractHours(t time.Time, hours float64) time.Time {
	if hours < 0 {
		return c.AddHours(t, -hours)
	}
	cur := c.AlignFinish(t)
	remaining := toDuration(hours)
	for remaining > 0 {
		available := cur.Sub(c.startOf(cur))
		if remaining <= available {
			return cur.Add(-remaining)
		}
		remaining -= available
		cur = c.prevWorkdayEnd(midnight(cur).AddDate(0, 0, -1))
	}
	return cur
}

// HoursBetween counts the working hours in [from, to). It returns zero
// when to is not after from.
func (c *Calendar) HoursBetween(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	cur := c.AlignStart(from)
	end := c.AlignFinish(to)
	var total time.Duration
	for cur.Before(end) {
		limit := c.endOf(cur)
		if !end.After(limit) {
			total += end.Sub(cur)
			break
		}
		total += limit.Sub(cur)
		cur = c.nextWorkdayStart(midnight(cur).AddDate(0, 0, 1))
	}
	return total.Hours()
}

// OffsetToDate resolves a working-hour offset from projectStart to a
// timestamp. The project start is first aligned forward into the working
// window; offsets that exhaust a day land on that day's end.
func (c *Calendar) OffsetToDate(hours float64, projectStart time.Time) time.Time {
	origin := c.AlignStart(projectStart)
	if hours == 0 {
		return origin
	}
	return c.AddHours(origin, hours)
}

// StartDate is OffsetToDate with start semantics: an offset that lands on
// a day end resolves to the next working morning instead.
func (c *Calendar) StartDate(hours float64, projectStart time.Time) time.Time {
	return c.AlignStart(c.OffsetToDate(hours, projectStart))
}

// DateToOffset returns the working hours elapsed between the aligned
// project start and t. Dates before the project start yield negative
// offsets.
func (c *Calendar) DateToOffset(t, projectStart time.Time) float64 {
	origin := c.AlignStart(projectStart)
	if t.Before(origin) {
		if h := c.HoursBetween(t, origin); h > 0 {
			return -h
		}
		return 0
	}
	return c.HoursBetween(origin, t)
}

// String describes the calendar, e.g.
// "workday 08:00-17:00 (9 hours), working days: Mon, Tue, Wed, Thu, Fri".
func (c *Calendar) String() string {
	names := make([]string, 0, 7)
	// Monday-first ordering reads more naturally in reports.
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		if c.workdays[wd] {
			names = append(names, wd.String()[:3])
		}
	}
	return fmt.Sprintf("workday %s-%s (%g hours), working days: %s",
		clockOf(c.dayStart), clockOf(c.dayEnd), c.HoursPerDay(), strings.Join(names, ", "))
}

func (c *Calendar) startOf(t time.Time) time.Time {
	return wallClock(t, c.dayStart)
}

func (c *Calendar) endOf(t time.Time) time.Time {
	return wallClock(t, c.dayEnd)
}

// nextWorkdayStart returns the window start of the first working day on
// or after t's date.
func (c *Calendar) nextWorkdayStart(t time.Time) time.Time {
	day := midnight(t)
	for !c.IsWorkday(day) {
		day = day.AddDate(0, 0, 1)
	}
	return wallClock(day, c.dayStart)
}

// prevWorkdayEnd returns the window end of the last working day on or
// before t's date.
func (c *Calendar) prevWorkdayEnd(t time.Time) time.Time {
	day := midnight(t)
	for !c.IsWorkday(day) {
		day = day.AddDate(0, 0, -1)
	}
	return wallClock(day, c.dayEnd)
}

// wallClock returns the time of day d on t's date, read on the wall clock
// of t's location. Adding d to midnight would drift by an hour on days
// with a DST transition.
func wallClock(t time.Time, d time.Duration) time.Time {
	y, m, day := t.Date()
	c := clockOf(d)
	return time.Date(y, m, day, c.Hour, c.Minute, 0, 0, t.Location())
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func toDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}
