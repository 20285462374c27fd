// Package export writes schedule rows to CSV, JSON and XLSX files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

// ErrUnsupportedFormat is returned for output paths with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// CycleColumns are the headers of the cycle listing.
var CycleColumns = []string{"Cycle", "Removed Predecessor", "Removed Successor", "Removed Edge"}

// Writer writes schedules to files, choosing the format from the extension.
// It implements scheduler.Exporter.
type Writer struct{}

var _ scheduler.Exporter = Writer{}

// WriteFile writes rows to path. For .csv outputs the cycle listing goes
// to a sibling file named by CyclesPath; .xlsx uses a second sheet and
// .json a "cycles" array.
func (Writer) WriteFile(path string, rows []scheduler.Row, cycles []dag.Resolution) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		if err := writeTo(path, func(w io.Writer) error { return WriteCSV(w, rows) }); err != nil {
			return err
		}
		if len(cycles) == 0 {
			return nil
		}
		return writeTo(CyclesPath(path), func(w io.Writer) error { return WriteCyclesCSV(w, cycles) })
	case ".json":
		return writeTo(path, func(w io.Writer) error { return WriteJSON(w, rows, cycles) })
	case ".xlsx":
		return WriteXLSX(path, rows, cycles)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// CyclesPath returns the sibling path used for the cycle listing of a CSV
// export: "out/schedule.csv" becomes "out/schedule_cycles.csv".
func CyclesPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_cycles" + ext
}

func writeTo(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes a header row and one record per task.
func WriteCSV(w io.Writer, rows []scheduler.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduler.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCyclesCSV writes one record per removed edge with the cycle it closed.
func WriteCyclesCSV(w io.Writer, cycles []dag.Resolution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CycleColumns); err != nil {
		return err
	}
	for _, c := range cycles {
		if err := cw.Write(cycleRecord(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cycleRecord(c dag.Resolution) []string {
	return []string{
		strings.Join(c.Cycle, " -> "),
		c.Removed.From,
		c.Removed.To,
		c.Removed.ID(),
	}
}

// ReadCSV parses a file written by WriteCSV.
func ReadCSV(r io.Reader) ([]scheduler.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var rows []scheduler.Row
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := scheduler.ParseRecord(header, fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}

// Document is the JSON export layout.
type Document struct {
	Tasks  []scheduler.Row `json:"tasks"`
	Cycles []CycleEntry    `json:"cycles,omitempty"`
}

// CycleEntry is one broken cycle in the JSON export.
type CycleEntry struct {
	Cycle   []string `json:"cycle"`
	Removed string   `json:"removed"`
	From    string   `json:"from"`
	To      string   `json:"to"`
}

// WriteJSON writes rows and cycles as an indented Document.
func WriteJSON(w io.Writer, rows []scheduler.Row, cycles []dag.Resolution) error {
	doc := Document{Tasks: rows}
	if doc.Tasks == nil {
		doc.Tasks = []scheduler.Row{}
	}
	for _, c := range cycles {
		doc.Cycles = append(doc.Cycles, CycleEntry{
			Cycle:   c.Cycle,
			Removed: c.Removed.ID(),
			From:    c.Removed.From,
			To:      c.Removed.To,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding schedule JSON: %w", err)
	}
	return nil
}
