package history

import "math"

// Change describes how one task moved between two runs.
type Change struct {
	TaskID string
	// Added and Removed mark tasks present in only one run.
	Added, Removed bool
	// FinishDelta is the change in early finish, in working hours.
	FinishDelta float64
	// FloatDelta is the change in total float, in working hours.
	FloatDelta     float64
	BecameCritical bool
	LeftCritical   bool
}

// Diff compares two runs' tasks and returns the tasks whose early finish,
// total float or criticality changed by more than eps, followed by added
// and removed tasks. Order follows cur, then prev.
func Diff(prev, cur []TaskRecord, eps float64) []Change {
	before := make(map[string]TaskRecord, len(prev))
	for _, t := range prev {
		before[t.TaskID] = t
	}
	seen := make(map[string]bool, len(cur))

	var changes []Change
	for _, t := range cur {
		seen[t.TaskID] = true
		p, ok := before[t.TaskID]
		if !ok {
			changes = append(changes, Change{TaskID: t.TaskID, Added: true})
			continue
		}
		c := Change{
			TaskID:         t.TaskID,
			FinishDelta:    t.EF - p.EF,
			FloatDelta:     t.TotalFloat - p.TotalFloat,
			BecameCritical: t.Critical && !p.Critical,
			LeftCritical:   !t.Critical && p.Critical,
		}
		if math.Abs(c.FinishDelta) > eps || math.Abs(c.FloatDelta) > eps || c.BecameCritical || c.LeftCritical {
			changes = append(changes, c)
		}
	}
	for _, t := range prev {
		if !seen[t.TaskID] {
			changes = append(changes, Change{TaskID: t.TaskID, Removed: true})
		}
	}
	return changes
}
