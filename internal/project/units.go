package project

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned for duration text that cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

// ErrInvalidLag is returned for lag text that cannot be parsed.
var ErrInvalidLag = errors.New("invalid lag")

// Unit is a duration unit as written in source data.
type Unit string

const (
	Hour  Unit = "h"
	Day   Unit = "d"
	Week  Unit = "w"
	Month Unit = "mo"
)

// Units holds the conventions used to convert durations and lags to
// working hours. They are independent of the calendar window: a
// 9-hour calendar day with an 8-hour duration day is a valid setup.
type Units struct {
	HoursPerDay  float64
	DaysPerWeek  float64
	DaysPerMonth float64
}

// DefaultUnits returns 1d = 8h, 1w = 5d, 1mo = 20d.
func DefaultUnits() Units {
	return Units{HoursPerDay: 8, DaysPerWeek: 5, DaysPerMonth: 20}
}

// Hours converts value in unit to working hours.
func (u Units) Hours(value float64, unit Unit) float64 {
	switch unit {
	case Day:
		return value * u.HoursPerDay
	case Week:
		return value * u.DaysPerWeek * u.HoursPerDay
	case Month:
		return value * u.DaysPerMonth * u.HoursPerDay
	}
	return value
}

// Days converts working hours to duration days.
func (u Units) Days(hours float64) float64 {
	return hours / u.HoursPerDay
}

// Weeks converts working hours to duration weeks.
func (u Units) Weeks(hours float64) float64 {
	return hours / (u.HoursPerDay * u.DaysPerWeek)
}

// ParseUnit parses a unit suffix such as "d", "days", "wk" or "mo".
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "hr", "hrs", "hour", "hours":
		return Hour, true
	case "d", "day", "days":
		return Day, true
	case "w", "wk", "wks", "week", "weeks":
		return Week, true
	case "mo", "mon", "mons", "month", "months":
		return Month, true
	}
	return "", false
}

// The optional "e" marks elapsed durations in project tools; it is
// accepted and treated as working time.
var (
	durationPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*e?([a-z]*)$`)
	lagPattern      = regexp.MustCompile(`^([+-]?)\s*([0-9]*\.?[0-9]+)\s*e?([a-z]*)$`)
)

// ParseDuration parses text such as "3d", "2.5 w", "4h", "1mo" or "3d?"
// into working hours. A bare number is read in unit def.
func (u Units) ParseDuration(text string, def Unit) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSuffix(s, "?")
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	unit := def
	if m[2] != "" {
		var ok bool
		if unit, ok = ParseUnit(m[2]); !ok {
			return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidDuration, text)
		}
	}
	return u.Hours(value, unit), nil
}

// ParseLag parses a signed lag such as "+2d", "-1w" or "4" into working
// hours. A bare number is read in unit def. Empty text is zero lag.
func (u Units) ParseLag(text string, def Unit) (float64, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	if s == "" {
		return 0, nil
	}
	m := lagPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLag, text)
	}
	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLag, text)
	}
	unit := def
	if m[3] != "" {
		var ok bool
		if unit, ok = ParseUnit(m[3]); !ok {
			return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidLag, text)
		}
	}
	hours := u.Hours(value, unit)
	if m[1] == "-" {
		hours = -hours
	}
	return hours, nil
}
