package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is the flat, export-ready form of a ScheduledTask.
type Row struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Level          string    `json:"level,omitempty"`
	DurationHours  float64   `json:"duration_hours"`
	// EffectiveHours differs from DurationHours only for tasks in an
	// effective level.
	EffectiveHours float64   `json:"effective_duration_hours"`
	DurationDays   float64   `json:"duration_days"`
	DurationWeeks  float64   `json:"duration_weeks"`
	ES             float64   `json:"es_hours"`
	EF             float64   `json:"ef_hours"`
	LS             float64   `json:"ls_hours"`
	LF             float64   `json:"lf_hours"`
	EarlyStart     time.Time `json:"early_start"`
	EarlyFinish    time.Time `json:"early_finish"`
	LateStart      time.Time `json:"late_start"`
	LateFinish     time.Time `json:"late_finish"`
	TotalFloat     float64   `json:"total_float_hours"`
	FreeFloat      float64   `json:"free_float_hours"`
	Critical       bool      `json:"critical"`
	Predecessors   string    `json:"predecessors,omitempty"`
	Constraint     string    `json:"constraint,omitempty"`
	Conflict       string    `json:"conflict,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Columns are the export headers, in Record order.
var Columns = []string{
	"Task ID", "Name", "Level",
	"Duration (h)", "Effective Duration (h)", "Duration (d)", "Duration (w)",
	"ES (h)", "EF (h)", "LS (h)", "LF (h)",
	"Early Start", "Early Finish", "Late Start", "Late Finish",
	"Total Float (h)", "Free Float (h)", "Critical",
	"Predecessors", "Constraint", "Conflict", "Error",
}

// ToRows flattens the tasks in result order.
func (r *Result) ToRows() []Row {
	rows := make([]Row, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		row := Row{
			ID:             t.ID,
			Name:           t.Name,
			Level:          t.Level,
			DurationHours:  t.Duration,
			EffectiveHours: t.EffectiveDuration,
			DurationDays:   r.Units.Days(t.Duration),
			DurationWeeks:  r.Units.Weeks(t.Duration),
			ES:             t.ES,
			EF:             t.EF,
			LS:             t.LS,
			LF:             t.LF,
			EarlyStart:     t.EarlyStart,
			EarlyFinish:    t.EarlyFinish,
			LateStart:      t.LateStart,
			LateFinish:     t.LateFinish,
			TotalFloat:     t.TotalFloat,
			FreeFloat:      t.FreeFloat,
			Critical:       t.Critical,
		}
		deps := make([]string, 0, len(t.Predecessors))
		for _, d := range t.Predecessors {
			deps = append(deps, formatDependency(d.Predecessor, string(d.Kind), d.Lag))
		}
		row.Predecessors = strings.Join(deps, "; ")
		if !t.Constraint.IsZero() {
			row.Constraint = string(t.Constraint.Kind) + " " + t.Constraint.Date.Format(time.RFC3339)
		}
		if t.Conflict != nil {
			row.Conflict = t.Conflict.Detail
		}
		if t.Err != nil {
			row.Error = t.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// formatDependency renders "A FS", "B SS+4h" or "C FF-8h".
func formatDependency(pred, kind string, lag float64) string {
	if lag == 0 {
		return pred + " " + kind
	}
	return fmt.Sprintf("%s %s%+gh", pred, kind, lag)
}

// Record renders the row as strings in Columns order. Floats use the
// shortest exact representation and times RFC 3339 with
// nanoseconds, so ParseRecord
// restores the same values.
func (r Row) Record() []string {
	return []string{
		r.ID, r.Name, r.Level,
		formatFloat(r.DurationHours), formatFloat(r.EffectiveHours), formatFloat(r.DurationDays), formatFloat(r.DurationWeeks),
		formatFloat(r.ES), formatFloat(r.EF), formatFloat(r.LS), formatFloat(r.LF),
		formatTime(r.EarlyStart), formatTime(r.EarlyFinish), formatTime(r.LateStart), formatTime(r.LateFinish),
		formatFloat(r.TotalFloat), formatFloat(r.FreeFloat), strconv.FormatBool(r.Critical),
		r.Predecessors, r.Constraint, r.Conflict, r.Error,
	}
}

// ParseRecord rebuilds a Row from fields labelled by header. Columns are
// matched by name, so order and extra columns do not matter; absent
// columns leave zero values.
func ParseRecord(header, fields []string) (Row, error) {
	var row Row
	var err error
	for i, name := range header {
		if i >= len(fields) {
			break
		}
		v := fields[i]
		switch name {
		case "Task ID":
			row.ID = v
		case "Name":
			row.Name = v
		case "Level":
			row.Level = v
		case "Duration (h)":
			row.DurationHours, err = parseFloat(v)
		case "Effective Duration (h)":
			row.EffectiveHours, err = parseFloat(v)
		case "Duration (d)":
			row.DurationDays, err = parseFloat(v)
		case "Duration (w)":
			row.DurationWeeks, err = parseFloat(v)
		case "ES (h)":
			row.ES, err = parseFloat(v)
		case "EF (h)":
			row.EF, err = parseFloat(v)
		case "LS (h)":
			row.LS, err = parseFloat(v)
		case "LF (h)":
			row.LF, err = parseFloat(v)
		case "Early Start":
			row.EarlyStart, err = parseTime(v)
		case "Early Finish":
			row.EarlyFinish, err = parseTime(v)
		case "Late Start":
			row.LateStart, err = parseTime(v)
		case "Late Finish":
			row.LateFinish, err = parseTime(v)
		case "Total Float (h)":
			row.TotalFloat, err = parseFloat(v)
		case "Free Float (h)":
			row.FreeFloat, err = parseFloat(v)
		case "Critical":
			if v != "" {
				row.Critical, err = strconv.ParseBool(v)
			}
		case "Predecessors":
			row.Predecessors = v
		case "Constraint":
			row.Constraint = v
		case "Conflict":
			row.Conflict = v
		case "Error":
			row.Error = v
		}
		if err != nil {
			return Row{}, fmt.Errorf("column %q: %w", name, err)
		}
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
