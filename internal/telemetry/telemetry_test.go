package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

func TestNewEmitter_CreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")

	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter(%q): %v", path, err)
	}
	defer em.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist at %q: %v", path, err)
	}
}

func TestNewEmitter_ErrorOnBadPath(t *testing.T) {
	t.Parallel()
	_, err := NewEmitter("/nonexistent/dir/events.jsonl")
	if err == nil {
		t.Fatal("expected error for bad path, got nil")
	}
	if !strings.Contains(err.Error(), "telemetry: open") {
		t.Errorf("expected wrapped error, got: %v", err)
	}
}

func TestEmit_WritesValidJSONL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")

	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	events := []Event{
		{Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Kind: KindRunStart, RunID: "r1"},
		{Timestamp: time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC), Kind: KindCycleBroken, RunID: "r1", TaskID: "t1", Data: map[string]string{"cycle": "t1->t2", "removed": "t2->t1[FS+0h]"}},
		{Timestamp: time.Date(2025, 1, 1, 0, 2, 0, 0, time.UTC), Kind: KindRunDone, RunID: "r1"},
	}

	for _, evt := range events {
		if err := em.Emit(evt); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if err := em.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Read back and verify each line is valid JSON.
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []Event
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid JSON line: %v\nline: %s", err, line)
		}
		decoded = append(decoded, evt)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner: %v", err)
	}

	if len(decoded) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(decoded))
	}
	for i, got := range decoded {
		if got.Kind != events[i].Kind {
			t.Errorf("event %d: kind=%q, want %q", i, got.Kind, events[i].Kind)
		}
		if got.RunID != events[i].RunID {
			t.Errorf("event %d: run=%q, want %q", i, got.RunID, events[i].RunID)
		}
	}
}

func TestEmit_ConcurrentSafety(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "concurrent.jsonl")

	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(idx int) {
			defer wg.Done()
			evt := Event{
				Timestamp: time.Now(),
				Kind:      KindConstraintConflict,
				TaskID:    "concurrent",
				Data:      map[string]int{"idx": idx},
			}
			if err := em.Emit(evt); err != nil {
				t.Errorf("Emit from goroutine %d: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	if err := em.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify all lines are valid JSON.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != n {
		t.Fatalf("expected %d lines, got %d", n, len(lines))
	}
	for i, line := range lines {
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Errorf("line %d: invalid JSON: %v", i, err)
		}
	}
}

func TestNilEmitter_NoOp(t *testing.T) {
	t.Parallel()
	var em *Emitter

	// Emit on nil should return nil.
	if err := em.Emit(Event{Kind: KindRunStart}); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	// Close on nil should return nil.
	if err := em.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestEmit_AppendsToExistingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "append.jsonl")

	// Write first batch.
	em1, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	if err := em1.Emit(Event{Kind: KindRunStart, RunID: "r1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	em1.Close()

	// Write second batch.
	em2, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	if err := em2.Emit(Event{Kind: KindRunDone, RunID: "r1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	em2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestEventKinds_AreDistinct(t *testing.T) {
	t.Parallel()
	kinds := []string{
		KindRunStart,
		KindRunDone,
		KindCycleBroken,
		KindMissingReference,
		KindConstraintConflict,
		KindRecordIssue,
		KindWatchReload,
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k == "" {
			t.Errorf("empty kind constant found")
		}
		if seen[k] {
			t.Errorf("duplicate kind: %q", k)
		}
		seen[k] = true
	}
}

func TestEvent_OmitsEmptyFields(t *testing.T) {
	t.Parallel()
	evt := Event{
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Kind:      KindRunStart,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, `"run"`) {
		t.Errorf("expected run to be omitted, got: %s", s)
	}
	if strings.Contains(s, `"task"`) {
		t.Errorf("expected task to be omitted, got: %s", s)
	}
	if strings.Contains(s, `"data"`) {
		t.Errorf("expected data to be omitted, got: %s", s)
	}
}

func TestScheduleEvents(t *testing.T) {
	t.Parallel()
	res, err := scheduler.ScheduleRecords([]ingest.Record{
		{ID: "A", Duration: "1d", Predecessors: "C"},
		{ID: "B", Duration: "1d", Predecessors: "A,GHOST"},
		{ID: "C", Duration: "1d", Predecessors: "B"},
		{ID: "D", Duration: "1d", ConstraintType: "MSO", ConstraintDate: "2024-01-05 08:00"},
	}, scheduler.Options{ProjectStart: time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("ScheduleRecords: %v", err)
	}

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	events := ScheduleEvents("run-1", now, res)

	var kinds []string
	for _, e := range events {
		if e.RunID != "run-1" || !e.Timestamp.Equal(now) {
			t.Errorf("event %s: run=%q ts=%v", e.Kind, e.RunID, e.Timestamp)
		}
		kinds = append(kinds, e.Kind)
	}
	want := []string{KindCycleBroken, KindMissingReference, KindConstraintConflict, KindRunDone}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	if events[1].TaskID != "B" {
		t.Errorf("missing reference task = %q, want B", events[1].TaskID)
	}
	done := events[len(events)-1].Data.(map[string]any)
	if done["tasks"] != 4 {
		t.Errorf("run_done tasks = %v, want 4", done["tasks"])
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "full event",
			line: `{"ts":"2025-01-01T10:04:05Z","kind":"cycle_broken","run":"0123456789abcdef","task":"B","data":{"removed":"C->B[FS+0h]","cycle":"B->C"}}`,
			want: "[10:04:05] cycle_broken run=01234567 task=B cycle=B->C removed=C->B[FS+0h]",
		},
		{
			name: "bare kind",
			line: `{"ts":"2025-01-01T00:00:00Z","kind":"run_start"}`,
			want: "[00:00:00] run_start",
		},
		{
			name: "not json",
			line: "garbage",
			want: "??? garbage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Format(tt.line); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRunID_Unique(t *testing.T) {
	t.Parallel()
	a, b := NewRunID(), NewRunID()
	if a == "" || a == b {
		t.Errorf("NewRunID() returned %q and %q", a, b)
	}
}
