// Package ansi provides ANSI escape code constants and helpers for terminal output.
// All colored/styled terminal output should reference these constants to avoid duplication.
package ansi

import (
	"os"
	"regexp"
)

// ANSI SGR (Select Graphic Rendition) codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Blue    = "\033[34m"
	Yellow  = "\033[33m"
	Green   = "\033[32m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	Magenta = "\033[35m"
)

var sgr = regexp.MustCompile("\033\\[[0-9;]*m")

// Strip removes SGR sequences from s.
func Strip(s string) string {
	return sgr.ReplaceAllString(s, "")
}

// Enabled reports whether colored output is wanted: NO_COLOR is unset and
// f is a character device.
func Enabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
