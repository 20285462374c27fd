// Package telemetry provides a JSONL event stream for scheduling runs.
// Every run start, broken cycle, missing reference, constraint conflict and
// completion is recorded as a structured JSON event, making runs auditable
// and comparable across input revisions.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/critpath/internal/scheduler"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart           = "run_start"
	KindRunDone            = "run_done"
	KindCycleBroken        = "cycle_broken"
	KindMissingReference   = "missing_reference"
	KindConstraintConflict = "constraint_conflict"
	KindRecordIssue        = "record_issue"
	KindWatchReload        = "watch_reload"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, and optional context identifiers (run, task) along with
// arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	TaskID    string    `json:"task,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewRunID returns a fresh identifier for one scheduling run.
func NewRunID() string {
	return uuid.NewString()
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes a single event to the JSONL file. It is safe for concurrent use.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// EmitAll writes events in order and stops at the first error.
func (e *Emitter) EmitAll(events []Event) error {
	for _, evt := range events {
		if err := e.Emit(evt); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// ScheduleEvents describes a finished run as events stamped with now: one
// per broken cycle, missing reference, constraint conflict and record
// issue, followed by a run_done summary.
func ScheduleEvents(runID string, now time.Time, res *scheduler.Result) []Event {
	var events []Event
	add := func(kind, task string, data any) {
		events = append(events, Event{Timestamp: now, Kind: kind, RunID: runID, TaskID: task, Data: data})
	}
	for _, c := range res.Cycles {
		add(KindCycleBroken, c.Removed.To, map[string]any{
			"cycle":   strings.Join(c.Cycle, "->"),
			"removed": c.Removed.ID(),
		})
	}
	for _, m := range res.Missing {
		add(KindMissingReference, m.Task, map[string]any{"predecessor": m.Predecessor})
	}
	for _, m := range res.Ignored {
		add(KindMissingReference, m.Task, map[string]any{"predecessor": m.Predecessor, "ignored": true})
	}
	for _, c := range res.Conflicts() {
		add(KindConstraintConflict, c.TaskID, map[string]any{
			"constraint": string(c.Constraint),
			"detail":     c.Detail,
		})
	}
	for _, issue := range res.Issues {
		add(KindRecordIssue, issue.TaskID, map[string]any{"error": issue.Err.Error()})
	}
	add(KindRunDone, "", map[string]any{
		"tasks":         len(res.Tasks),
		"critical":      len(res.CriticalPath()),
		"finish_hours":  res.FinishOffset,
		"project_start": res.ProjectStart.Format(time.RFC3339),
	})
	return events
}

// Format renders a JSONL line for humans. Lines that are not events are
// returned prefixed with "???".
func Format(line string) string {
	var evt Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		return "??? " + line
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Format(time.TimeOnly)), evt.Kind}
	if evt.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", shortID(evt.RunID)))
	}
	if evt.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", evt.TaskID))
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, " ")
}

// Print writes the formatted form of each non-empty line to w.
func Print(w io.Writer, lines ...string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			fmt.Fprintln(w, Format(line))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}
