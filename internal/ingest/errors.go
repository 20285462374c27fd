package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateTask is returned when two records share a task ID.
var ErrDuplicateTask = errors.New("duplicate task id")

// ErrEmptyID is returned for a record without a task ID.
var ErrEmptyID = errors.New("empty task id")

// ErrMissingColumn is returned when a CSV header has no task ID column.
var ErrMissingColumn = errors.New("missing required column")

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// MissingRef is a dependency whose predecessor is not a known task.
type MissingRef struct {
	Task        string `json:"task"`
	Predecessor string `json:"predecessor"`
}

// MissingReferenceError lists dependencies on tasks that do not exist.
type MissingReferenceError struct {
	Refs []MissingRef
}

func (e *MissingReferenceError) Error() string {
	parts := make([]string, 0, len(e.Refs))
	for _, r := range e.Refs {
		parts = append(parts, fmt.Sprintf("%s (from %s)", r.Predecessor, r.Task))
	}
	return "missing predecessor references: " + strings.Join(parts, ", ")
}

// IDs returns the distinct missing predecessor IDs in first-seen order.
func (e *MissingReferenceError) IDs() []string {
	seen := make(map[string]bool, len(e.Refs))
	var ids []string
	for _, r := range e.Refs {
		if !seen[r.Predecessor] {
			seen[r.Predecessor] = true
			ids = append(ids, r.Predecessor)
		}
	}
	return ids
}

// Issue is a recoverable data-quality problem found while building.
type Issue struct {
	TaskID string
	Err    error
}

func (i Issue) String() string {
	return i.Err.Error()
}
