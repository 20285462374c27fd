package scheduler

import (
	"errors"
	"sort"
	"time"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/project"
)

// Result is the outcome of one scheduling run. It is built once and not
// modified afterwards.
type Result struct {
	ProjectStart  time.Time
	ProjectFinish time.Time
	// FinishOffset is the project finish in working hours from the start.
	FinishOffset float64

	// Tasks are in input order.
	Tasks  []ScheduledTask
	Cycles []dag.Resolution
	// Missing lists dependencies on unknown tasks. They were skipped.
	Missing []ingest.MissingRef
	// Ignored lists dependencies on unknown tasks dropped on request.
	Ignored  []ingest.MissingRef
	Issues   []ingest.Issue
	Networks []dag.Network

	// Units are the duration conventions used for derived columns.
	Units project.Units
}

// Task returns the scheduled task with the given ID.
func (r *Result) Task(id string) (ScheduledTask, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return ScheduledTask{}, false
}

// CriticalPath returns the critical tasks ordered by early start, then ID.
func (r *Result) CriticalPath() []ScheduledTask {
	var path []ScheduledTask
	for _, t := range r.Tasks {
		if t.Critical {
			path = append(path, t)
		}
	}
	sort.SliceStable(path, func(i, j int) bool {
		if path[i].ES != path[j].ES {
			return path[i].ES < path[j].ES
		}
		return path[i].ID < path[j].ID
	})
	return path
}

// Conflicts returns the constraint conflicts in task order.
func (r *Result) Conflicts() []*ConstraintConflictError {
	var out []*ConstraintConflictError
	for _, t := range r.Tasks {
		if t.Conflict != nil {
			out = append(out, t.Conflict)
		}
	}
	return out
}

// Err joins every data-quality problem of the run: missing references,
// broken cycles, constraint conflicts and malformed records. It returns
// nil for a clean run.
func (r *Result) Err() error {
	var errs []error
	if len(r.Missing) > 0 {
		errs = append(errs, &ingest.MissingReferenceError{Refs: r.Missing})
	}
	if len(r.Cycles) > 0 {
		errs = append(errs, &CycleError{Resolutions: r.Cycles})
	}
	for _, c := range r.Conflicts() {
		errs = append(errs, c)
	}
	for _, issue := range r.Issues {
		errs = append(errs, issue.Err)
	}
	return errors.Join(errs...)
}

// Exporter writes schedule rows to a file.
type Exporter interface {
	WriteFile(path string, rows []Row, cycles []dag.Resolution) error
}

// ToFile writes the rows and cycle listing through e.
func (r *Result) ToFile(path string, e Exporter) error {
	return e.WriteFile(path, r.ToRows(), r.Cycles)
}
