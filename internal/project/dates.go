package project

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for date text in none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid date")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"Mon 1/2/06",
	"Mon 1/2/06 3:04 PM",
}

// ParseTime parses a date or timestamp in one of the layouts commonly
// exported by project tools. Times without a zone are read in loc.
// The second return value reports whether the text carried a time of day.
func ParseTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, strings.Contains(layout, "15") || strings.Contains(layout, "3:04"), nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
