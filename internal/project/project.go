// Package project defines the typed task model consumed by the scheduler:
// tasks, typed dependencies, date constraints and the unit conventions used
// to turn spreadsheet durations into working hours.
package project

import (
	"fmt"
	"strings"
	"time"
)

// Kind is a precedence relationship between two tasks.
type Kind string

const (
	FinishToStart  Kind = "FS"
	StartToStart   Kind = "SS"
	FinishToFinish Kind = "FF"
	StartToFinish  Kind = "SF"
)

// ParseKind parses a dependency type such as "FS" or "start-to-start".
// The second return value is false for unrecognized input.
func ParseKind(s string) (Kind, bool) {
	switch normalizeKey(s) {
	case "FS", "FINISH_TO_START":
		return FinishToStart, true
	case "SS", "START_TO_START":
		return StartToStart, true
	case "FF", "FINISH_TO_FINISH":
		return FinishToFinish, true
	case "SF", "START_TO_FINISH":
		return StartToFinish, true
	}
	return "", false
}

// ConstraintKind identifies a fixed-date constraint on a task.
type ConstraintKind string

const (
	NoConstraint        ConstraintKind = ""
	MustStartOn         ConstraintKind = "MSO"
	MustFinishOn        ConstraintKind = "MFO"
	StartNoEarlierThan  ConstraintKind = "SNET"
	FinishNoEarlierThan ConstraintKind = "FNET"
	StartNoLaterThan    ConstraintKind = "SNLT"
	FinishNoLaterThan   ConstraintKind = "FNLT"
)

var constraintAliases = map[string]ConstraintKind{
	"MSO": MustStartOn, "MUST_START_ON": MustStartOn,
	"MFO": MustFinishOn, "MUST_FINISH_ON": MustFinishOn,
	"SNET": StartNoEarlierThan, "START_NO_EARLIER_THAN": StartNoEarlierThan,
	"FNET": FinishNoEarlierThan, "FINISH_NO_EARLIER_THAN": FinishNoEarlierThan,
	"SNLT": StartNoLaterThan, "START_NO_LATER_THAN": StartNoLaterThan,
	"FNLT": FinishNoLaterThan, "FINISH_NO_LATER_THAN": FinishNoLaterThan,
	"ASAP": NoConstraint, "AS_SOON_AS_POSSIBLE": NoConstraint,
}

// ParseConstraintKind maps spellings like "Must Start On", "MSO" or
// "MUST_START_ON" to a ConstraintKind. "As Soon As Possible" is recognized
// and maps to NoConstraint. The second return value is false for
// unrecognized input.
func ParseConstraintKind(s string) (ConstraintKind, bool) {
	k, ok := constraintAliases[normalizeKey(s)]
	return k, ok
}

// String returns the long form, e.g. "Must Start On".
func (k ConstraintKind) String() string {
	switch k {
	case MustStartOn:
		return "Must Start On"
	case MustFinishOn:
		return "Must Finish On"
	case StartNoEarlierThan:
		return "Start No Earlier Than"
	case FinishNoEarlierThan:
		return "Finish No Earlier Than"
	case StartNoLaterThan:
		return "Start No Later Than"
	case FinishNoLaterThan:
		return "Finish No Later Than"
	}
	return ""
}

// OnFinish reports whether the constraint date refers to the task finish.
func (k ConstraintKind) OnFinish() bool {
	return k == MustFinishOn || k == FinishNoEarlierThan || k == FinishNoLaterThan
}

// Constraint pins or bounds a task date.
type Constraint struct {
	Kind ConstraintKind
	Date time.Time
}

// IsZero reports whether c imposes nothing.
func (c Constraint) IsZero() bool {
	return c.Kind == NoConstraint
}

// Task is one schedulable unit of work. Duration is in working hours.
type Task struct {
	ID             string
	Name           string
	Duration       float64
	Constraint     Constraint
	BaselineStart  time.Time
	BaselineFinish time.Time
	Level          string

	// Err marks a task whose source record could not be fully parsed.
	// Such tasks are still placed in the graph, with zero duration.
	Err error
}

// IsMilestone reports whether the task has zero duration.
func (t Task) IsMilestone() bool {
	return t.Duration == 0
}

// Dependency links a predecessor to a successor with a typed relationship
// and a signed lag in working hours.
type Dependency struct {
	Predecessor string
	Successor   string
	Kind        Kind
	Lag         float64
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s->%s %s%+gh", d.Predecessor, d.Successor, d.Kind, d.Lag)
}

// normalizeKey upper-cases s and folds spaces and hyphens to underscores.
func normalizeKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}
