package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

func schedule(t *testing.T, records []ingest.Record) *scheduler.Result {
	t.Helper()
	res, err := scheduler.ScheduleRecords(records, scheduler.Options{
		ProjectStart: time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ScheduleRecords: %v", err)
	}
	return res
}

func cyclicProject(t *testing.T) *scheduler.Result {
	t.Helper()
	return schedule(t, []ingest.Record{
		{ID: "A", Name: "Design", Duration: "2d", ConstraintType: "SNET", ConstraintDate: "2024-01-08"},
		{ID: "B", Name: "Build, test", Duration: "3d", Predecessors: "A,C"},
		{ID: "C", Name: "Review", Duration: "1d", Predecessors: "B"},
	})
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()
	res := cyclicProject(t)
	rows := res.ToRows()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "empty", input: "", want: 0},
		{name: "header only", input: "Task ID,ES (h)\n", want: 0},
		{name: "two rows", input: "Task ID,ES (h)\nA,0\nB,8\n", want: 2},
		{name: "bad number", input: "Task ID,ES (h)\nA,soon\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := ReadCSV(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(rows) != tt.want {
				t.Errorf("got %d rows, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	res := cyclicProject(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, res.ToRows(), res.Cycles); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(doc.Tasks) != 3 {
		t.Errorf("got %d tasks, want 3", len(doc.Tasks))
	}
	if len(doc.Cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(doc.Cycles))
	}
	c := doc.Cycles[0]
	if c.From != "C" || c.To != "B" {
		t.Errorf("removed edge = %s -> %s, want C -> B", c.From, c.To)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil, nil); err != nil {
		t.Fatalf("WriteJSON(empty): %v", err)
	}
	if !strings.Contains(buf.String(), `"tasks": []`) {
		t.Errorf("empty export = %s, want an empty tasks array", buf.String())
	}
}

func TestWriterCSV(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.csv")
	res := cyclicProject(t)

	if err := res.ToFile(path, Writer{}); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	rows, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}

	cycles, err := os.ReadFile(filepath.Join(dir, "plan_cycles.csv"))
	if err != nil {
		t.Fatalf("reading cycle listing: %v", err)
	}
	want := "Cycle,Removed Predecessor,Removed Successor,Removed Edge\nB -> C,C,B,C->B[FS+0h]\n"
	if string(cycles) != want {
		t.Errorf("cycle listing =\n%s\nwant\n%s", cycles, want)
	}
}

func TestWriterCSV_NoCycles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.csv")
	res := schedule(t, []ingest.Record{{ID: "A", Duration: "1d"}})

	if err := res.ToFile(path, Writer{}); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	if _, err := os.Stat(CyclesPath(path)); !os.IsNotExist(err) {
		t.Errorf("cycle listing should not exist, stat err = %v", err)
	}
}

func TestWriterXLSX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	res := cyclicProject(t)

	if err := res.ToFile(path, Writer{}); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{ScheduleSheet, CyclesSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows(ScheduleSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "Task ID" || rows[1][0] != "A" || rows[3][0] != "C" {
		t.Errorf("first column = %q %q %q", rows[0][0], rows[1][0], rows[3][0])
	}
	cycles, err := f.GetRows(CyclesSheet)
	if err != nil {
		t.Fatalf("GetRows(cycles): %v", err)
	}
	if len(cycles) != 2 || cycles[1][3] != "C->B[FS+0h]" {
		t.Errorf("cycles sheet = %v", cycles)
	}
}

func TestWriteXLSX_CriticalDatesKeepFill(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	res := schedule(t, []ingest.Record{
		{ID: "A", Duration: "2d"},
		{ID: "B", Duration: "1d"},
	})
	if err := WriteXLSX(path, res.ToRows(), nil); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	style := func(row int) *excelize.Style {
		t.Helper()
		cell, err := excelize.CoordinatesToCellName(columnIndex("Early Start"), row)
		if err != nil {
			t.Fatal(err)
		}
		id, err := f.GetCellStyle(ScheduleSheet, cell)
		if err != nil {
			t.Fatalf("GetCellStyle(%s): %v", cell, err)
		}
		s, err := f.GetStyle(id)
		if err != nil {
			t.Fatalf("GetStyle(%d): %v", id, err)
		}
		return s
	}

	critical, plain := style(2), style(3)
	if critical.Fill.Pattern != 1 {
		t.Errorf("critical date cell fill pattern = %d, want 1", critical.Fill.Pattern)
	}
	if plain.Fill.Pattern != 0 {
		t.Errorf("non-critical date cell fill pattern = %d, want 0", plain.Fill.Pattern)
	}
	for name, s := range map[string]*excelize.Style{"critical": critical, "non-critical": plain} {
		if s.CustomNumFmt == nil || *s.CustomNumFmt != dateFormat {
			t.Errorf("%s date cell number format = %v, want %q", name, s.CustomNumFmt, dateFormat)
		}
	}

	rows, err := f.GetRows(ScheduleSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if got := rows[0][columnIndex("Effective Duration (h)")-1]; got != "Effective Duration (h)" {
		t.Errorf("header = %q", got)
	}
	if got := rows[1][columnIndex("Effective Duration (h)")-1]; got != "16" {
		t.Errorf("effective duration of A = %q, want 16", got)
	}
}

func TestWriterUnsupported(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.pdf")
	err := Writer{}.WriteFile(path, nil, []dag.Resolution{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("WriteFile error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestCyclesPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"schedule.csv", "schedule_cycles.csv"},
		{"out/plan.v2.csv", "out/plan.v2_cycles.csv"},
	}
	for _, tt := range tests {
		if got := CyclesPath(tt.in); got != tt.want {
			t.Errorf("CyclesPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
