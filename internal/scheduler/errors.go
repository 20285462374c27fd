package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/project"
)

// ErrNilGraph is returned when Schedule is called without a graph.
var ErrNilGraph = errors.New("scheduler: nil graph")

// ErrNoProjectStart is returned when no project start was given and none
// can be inferred from constraint or baseline dates.
var ErrNoProjectStart = errors.New("scheduler: no project start given and none could be inferred")

// CycleError reports dependency cycles that were broken by removing edges.
type CycleError struct {
	Resolutions []dag.Resolution
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Resolutions))
	for _, r := range e.Resolutions {
		parts = append(parts, fmt.Sprintf("%s (removed %s)", strings.Join(r.Cycle, " -> "), r.Removed.ID()))
	}
	return fmt.Sprintf("%d dependency cycle(s) broken: %s", len(e.Resolutions), strings.Join(parts, "; "))
}

// ConstraintConflictError reports a date constraint that cannot be met
// together with the task's dependencies or the project start. The
// constraint still determines the task's dates.
type ConstraintConflictError struct {
	TaskID     string
	Constraint project.ConstraintKind
	Date       time.Time
	Detail     string
}

func (e *ConstraintConflictError) Error() string {
	return fmt.Sprintf("task %s: %s %s: %s", e.TaskID, e.Constraint, e.Date.Format(time.RFC3339), e.Detail)
}
