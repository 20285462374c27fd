package scheduler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/project"
)

// AdjustedRecords returns the task list as it was scheduled: the edges
// removed to break cycles and dangling references are gone, and every
// dependency is spelled out inline as "ID:TYPE:LAGh". Feeding the records
// back through ingest.Build yields the same graph without cycles.
//
// Durations and lags are written in hours. A task whose duration could
// not be parsed keeps its original text so the problem is reported again.
func (r *Result) AdjustedRecords() []ingest.Record {
	records := make([]ingest.Record, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		rec := ingest.Record{
			ID:       t.ID,
			Name:     t.Name,
			Level:    t.Level,
			Duration: hours(t.Duration),
		}
		var merr *project.MalformedRecordError
		if errors.As(t.Err, &merr) && merr.Field == "duration" {
			rec.Duration = merr.Value
		}

		deps := make([]string, 0, len(t.Predecessors))
		for _, d := range t.Predecessors {
			deps = append(deps, d.Predecessor+":"+string(d.Kind)+":"+hours(d.Lag))
		}
		rec.Predecessors = strings.Join(deps, "; ")

		if !t.Constraint.IsZero() {
			rec.ConstraintType = string(t.Constraint.Kind)
			rec.ConstraintDate = timestamp(t.Constraint.Date)
		}
		rec.BaselineStart = timestamp(t.BaselineStart)
		rec.BaselineFinish = timestamp(t.BaselineFinish)
		records = append(records, rec)
	}
	return records
}

func hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// timestamp keeps the time of day so finish dates are not moved to the
// end of the day a second time.
func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
