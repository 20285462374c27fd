package export

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/critpath/internal/ingest"
)

// TaskColumns are the headers of a task listing. ingest.ReadCSV accepts
// every one of them.
var TaskColumns = []string{
	"Task ID", "Task Name", "Level", "Duration", "Predecessors",
	"Constraint Type", "Constraint Date", "Baseline Start", "Baseline Finish",
}

// WriteTasksCSV writes records as an input file that can be scheduled
// again.
func WriteTasksCSV(w io.Writer, records []ingest.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TaskColumns); err != nil {
		return err
	}
	for _, r := range records {
		err := cw.Write([]string{
			r.ID, r.Name, r.Level, r.Duration, r.Predecessors,
			r.ConstraintType, r.ConstraintDate, r.BaselineStart, r.BaselineFinish,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTasksFile writes records to path with WriteTasksCSV.
func WriteTasksFile(path string, records []ingest.Record) error {
	return writeTo(path, func(w io.Writer) error { return WriteTasksCSV(w, records) })
}

// AdjustedPath returns the sibling CSV path for the cycle-adjusted task
// listing of an export: "out/schedule.xlsx" becomes
// "out/schedule_adjusted.csv".
func AdjustedPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_adjusted.csv"
}
