package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_DetectsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.csv")
	if err := os.WriteFile(file, []byte("ID,Duration\nA,1d\n"), 0o644); err != nil {
		t.Fatalf("failed to create input file: %v", err)
	}

	w, err := NewWatcher(file)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(file, []byte("ID,Duration\nA,2d\n"), 0o644); err != nil {
		t.Fatalf("failed to update input file: %v", err)
	}

	select {
	case change := <-w.Changes:
		if filepath.Base(change.File) != "plan.csv" {
			t.Errorf("expected plan.csv, got %q", change.File)
		}
		if change.Removed {
			t.Error("change reported as removal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.csv")
	if err := os.WriteFile(file, []byte("ID\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(file)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.toml")
	if err := os.WriteFile(file, []byte("[[task]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(file)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-w.Changes:
		if !change.Removed {
			t.Errorf("expected removal, got %+v", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal event")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan Change, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, func(c Change) { calls <- c }, file)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(file, []byte(`[{"id":"A"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
