package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

// Sheet names used by WriteXLSX.
const (
	ScheduleSheet = "Schedule"
	CyclesSheet   = "Cycles"
)

const dateFormat = "yyyy-mm-dd hh:mm"

// WriteXLSX writes rows to the Schedule sheet of a new workbook. Critical
// tasks are shaded. A Cycles sheet is added when cycles were broken.
func WriteXLSX(path string, rows []scheduler.Row, cycles []dag.Resolution) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	critical, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8D7DA"}},
	})
	if err != nil {
		return fmt.Errorf("creating critical style: %w", err)
	}
	dates, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(dateFormat)})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}
	criticalDates, err := f.NewStyle(&excelize.Style{
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8D7DA"}},
		CustomNumFmt: strPtr(dateFormat),
	})
	if err != nil {
		return fmt.Errorf("creating critical date style: %w", err)
	}

	if err := writeSheetRow(f, ScheduleSheet, 1, toAny(scheduler.Columns)); err != nil {
		return err
	}
	if err := f.SetRowStyle(ScheduleSheet, 1, 1, header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	firstDate, lastDate := columnIndex("Early Start"), columnIndex("Late Finish")
	for i, r := range rows {
		n := i + 2
		if err := writeSheetRow(f, ScheduleSheet, n, rowValues(r)); err != nil {
			return err
		}
		style := dates
		if r.Critical {
			if err := f.SetRowStyle(ScheduleSheet, n, n, critical); err != nil {
				return fmt.Errorf("styling row %d: %w", n, err)
			}
			style = criticalDates
		}
		first, _ := excelize.CoordinatesToCellName(firstDate, n)
		last, _ := excelize.CoordinatesToCellName(lastDate, n)
		if err := f.SetCellStyle(ScheduleSheet, first, last, style); err != nil {
			return fmt.Errorf("styling dates of row %d: %w", n, err)
		}
	}

	if len(cycles) > 0 {
		if _, err := f.NewSheet(CyclesSheet); err != nil {
			return fmt.Errorf("adding cycles sheet: %w", err)
		}
		if err := writeSheetRow(f, CyclesSheet, 1, toAny(CycleColumns)); err != nil {
			return err
		}
		if err := f.SetRowStyle(CyclesSheet, 1, 1, header); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
		for i, c := range cycles {
			if err := writeSheetRow(f, CyclesSheet, i+2, toAny(cycleRecord(c))); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

// rowValues mirrors scheduler.Row.Record but keeps numbers and times typed.
func rowValues(r scheduler.Row) []any {
	return []any{
		r.ID, r.Name, r.Level,
		r.DurationHours, r.EffectiveHours, r.DurationDays, r.DurationWeeks,
		r.ES, r.EF, r.LS, r.LF,
		r.EarlyStart, r.EarlyFinish, r.LateStart, r.LateFinish,
		r.TotalFloat, r.FreeFloat, r.Critical,
		r.Predecessors, r.Constraint, r.Conflict, r.Error,
	}
}

// columnIndex returns the 1-based position of name in scheduler.Columns.
func columnIndex(name string) int {
	for i, c := range scheduler.Columns {
		if c == name {
			return i + 1
		}
	}
	panic("export: unknown schedule column " + name)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
