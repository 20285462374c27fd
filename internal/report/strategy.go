// Package report renders scheduling results for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/papapumpkin/critpath/internal/scheduler"
)

// Strategy defines how to present a schedule. Each implementation
// produces a distinct view of the same result.
type Strategy interface {
	Render(r *scheduler.Result) string
}

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "summary", "":
		return SummaryStrategy{}, nil
	case "critical", "critical-path":
		return CriticalPathStrategy{}, nil
	case "cycles":
		return CyclesStrategy{}, nil
	case "networks":
		return NetworksStrategy{}, nil
	case "table":
		return TableStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown report %q (want summary, critical, cycles, networks or table)", name)
}

// SummaryStrategy renders project dates and counts of every data-quality
// finding.
type SummaryStrategy struct{}

// Render produces the summary report.
func (SummaryStrategy) Render(r *scheduler.Result) string {
	if len(r.Tasks) == 0 {
		return "No tasks in project."
	}
	var b strings.Builder
	b.WriteString("# Schedule Summary\n\n")
	fmt.Fprintf(&b, "Start:    %s\n", r.ProjectStart.Format(dateLayout))
	fmt.Fprintf(&b, "Finish:   %s (%s)\n", r.ProjectFinish.Format(dateLayout), hours(r.FinishOffset))
	fmt.Fprintf(&b, "Tasks:    %d (%d critical)\n", len(r.Tasks), len(r.CriticalPath()))
	fmt.Fprintf(&b, "Networks: %d\n", len(r.Networks))

	findings := []struct {
		label string
		n     int
	}{
		{"missing references", len(r.Missing)},
		{"ignored references", len(r.Ignored)},
		{"broken cycles", len(r.Cycles)},
		{"constraint conflicts", len(r.Conflicts())},
		{"record issues", len(r.Issues)},
	}
	for _, f := range findings {
		if f.n > 0 {
			fmt.Fprintf(&b, "\n%d %s", f.n, f.label)
		}
	}
	if r.Err() == nil {
		b.WriteString("\nNo data-quality problems.")
	}
	b.WriteByte('\n')
	return b.String()
}

// CriticalPathStrategy renders the zero-float tasks in early-start order.
type CriticalPathStrategy struct{}

// Render produces the critical path report.
func (CriticalPathStrategy) Render(r *scheduler.Result) string {
	path := r.CriticalPath()
	if len(path) == 0 {
		return "No critical tasks."
	}
	var b strings.Builder
	b.WriteString("# Critical Path\n\n")
	fmt.Fprintf(&b, "Length: %d of %d total tasks (%.0f%%)\n\n",
		len(path), len(r.Tasks), 100*float64(len(path))/float64(len(r.Tasks)))
	for step, t := range path {
		arrow := ""
		if step < len(path)-1 {
			arrow = " →"
		}
		fmt.Fprintf(&b, "%d. %s%s  %s → %s (%s)%s\n",
			step+1, t.ID, label(t.Name),
			t.EarlyStart.Format(dateLayout), t.EarlyFinish.Format(dateLayout), hours(t.EffectiveDuration), arrow)
	}
	return b.String()
}

// CyclesStrategy renders each broken cycle and the edge removed from it.
type CyclesStrategy struct{}

// Render produces the cycle report.
func (CyclesStrategy) Render(r *scheduler.Result) string {
	if len(r.Cycles) == 0 {
		return "No dependency cycles."
	}
	var b strings.Builder
	b.WriteString("# Broken Cycles\n\n")
	for i, c := range r.Cycles {
		loop := append(append([]string(nil), c.Cycle...), c.Cycle[0])
		fmt.Fprintf(&b, "%d. %s\n   removed %s\n", i+1, strings.Join(loop, " → "), c.Removed.ID())
	}
	return b.String()
}

// NetworksStrategy renders the independent sub-networks of the project,
// largest first.
type NetworksStrategy struct{}

// Render produces the network report.
func (NetworksStrategy) Render(r *scheduler.Result) string {
	if len(r.Networks) == 0 {
		return "No networks."
	}
	var b strings.Builder
	b.WriteString("# Networks\n\n")
	fmt.Fprintf(&b, "Total networks: %d\n\n", len(r.Networks))
	for _, n := range r.Networks {
		finish := 0.0
		for _, id := range n.NodeIDs {
			if t, ok := r.Task(id); ok && t.EF > finish {
				finish = t.EF
			}
		}
		fmt.Fprintf(&b, "## Network %d (%d tasks, finish %s)\n", n.ID, len(n.NodeIDs), hours(finish))
		for _, id := range n.NodeIDs {
			fmt.Fprintf(&b, "  - %s\n", id)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	criticalStyle = cellStyle.Foreground(lipgloss.Color("1")).Bold(true)
	conflictStyle = cellStyle.Foreground(lipgloss.Color("3"))
)

// TableStrategy renders every task as a bordered table. Critical rows are
// highlighted and conflicting rows dimmed to a warning colour.
type TableStrategy struct{}

// Render produces the task table.
func (TableStrategy) Render(r *scheduler.Result) string {
	if len(r.Tasks) == 0 {
		return "No tasks in project."
	}
	rows := make([][]string, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		crit := ""
		if t.Critical {
			crit = "yes"
		}
		rows = append(rows, []string{
			t.ID, t.Name, hours(t.EffectiveDuration),
			t.EarlyStart.Format(dateLayout), t.EarlyFinish.Format(dateLayout),
			t.LateStart.Format(dateLayout), t.LateFinish.Format(dateLayout),
			hours(t.TotalFloat), hours(t.FreeFloat), crit,
		})
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name", "Dur", "Early Start", "Early Finish", "Late Start", "Late Finish", "TF", "FF", "Crit").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(r.Tasks) {
				return cellStyle
			}
			switch t := r.Tasks[row]; {
			case t.Conflict != nil:
				return conflictStyle
			case t.Critical:
				return criticalStyle
			}
			return cellStyle
		})
	return tbl.String() + "\n"
}

const dateLayout = "Mon 2006-01-02 15:04"

func label(name string) string {
	if name == "" {
		return ""
	}
	return " " + name
}

// hours formats a working-hour quantity without trailing zeros.
func hours(h float64) string {
	v := math.Round(h*1000) / 1000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return fmt.Sprintf("%gh", v)
}

// Names lists the reports accepted by ByName.
func Names() []string {
	return []string{"summary", "critical", "cycles", "networks", "table"}
}
