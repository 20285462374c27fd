package project

import "fmt"

// MalformedRecordError reports a field of a task record that could not be
// parsed. The task is still scheduled; the error travels on Task.Err.
type MalformedRecordError struct {
	TaskID string
	Field  string
	Value  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("task %s: malformed %s %q: %v", e.TaskID, e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
