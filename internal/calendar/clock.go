package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clockLayout is the HH:MM layout used for workday boundaries.
const clockLayout = "15:04"

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM time of day. "24:00" is accepted as the end
// of the day.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return Clock{Hour: 24}, nil
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("calendar: time of day must use HH:MM, got %q", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func clockOf(d time.Duration) Clock {
	return Clock{Hour: int(d / time.Hour), Minute: int((d % time.Hour) / time.Minute)}
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// ParseWeekdays parses weekday names, abbreviations or indices where
// 0 is Monday and 6 is Sunday. The result is deduplicated and sorted
// Sunday first.
func ParseWeekdays(values []string) ([]time.Weekday, error) {
	var seen [7]bool
	for _, raw := range values {
		v := strings.ToLower(strings.TrimSpace(raw))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 || n > 6 {
				return nil, fmt.Errorf("calendar: weekday index %d out of range 0-6", n)
			}
			seen[(n+1)%7] = true
			continue
		}
		wd, ok := weekdayNames[v]
		if !ok {
			return nil, fmt.Errorf("calendar: unable to parse weekday %q", raw)
		}
		seen[wd] = true
	}
	var days []time.Weekday
	for wd, ok := range seen {
		if ok {
			days = append(days, time.Weekday(wd))
		}
	}
	return days, nil
}
