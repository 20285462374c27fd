// Package ui provides stderr-based status output for critpath.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/papapumpkin/critpath/internal/ansi"
	"github.com/papapumpkin/critpath/internal/history"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

// Printer writes status lines, colored when the terminal allows it.
type Printer struct {
	out   io.Writer
	color bool
}

// New returns a Printer writing to stderr.
func New() *Printer {
	return &Printer{out: os.Stderr, color: ansi.Enabled(os.Stderr)}
}

// NewWriter returns a Printer writing plain text to w.
func NewWriter(w io.Writer) *Printer {
	return &Printer{out: w}
}

func (p *Printer) printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if !p.color {
		s = ansi.Strip(s)
	}
	io.WriteString(p.out, s)
}

func (p *Printer) println(s string) {
	p.printf("%s\n", s)
}

func (p *Printer) Error(msg string) {
	p.printf(ansi.Red+ansi.Bold+"error: "+ansi.Reset+"%s\n", msg)
}

func (p *Printer) Warn(msg string) {
	p.printf(ansi.Yellow+"⚠ "+ansi.Reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	p.printf(ansi.Dim+"%s"+ansi.Reset+"\n", msg)
}

// ScheduleDone prints the one-line outcome of a run.
func (p *Printer) ScheduleDone(name string, res *scheduler.Result) {
	if len(res.Tasks) == 0 {
		p.printf(ansi.Yellow+"◆ %s"+ansi.Reset+" — no tasks\n", name)
		return
	}
	p.printf(ansi.Green+ansi.Bold+"✓ %s"+ansi.Reset+" — %d task(s), finish %s "+ansi.Dim+"(%gh, %d critical)"+ansi.Reset+"\n",
		name, len(res.Tasks), res.ProjectFinish.Format("Mon 2006-01-02 15:04"), res.FinishOffset, len(res.CriticalPath()))
}

// Findings lists every data-quality problem of a run and returns how many
// were printed.
func (p *Printer) Findings(res *scheduler.Result) int {
	var lines []string
	for _, m := range res.Missing {
		lines = append(lines, fmt.Sprintf("task %s: predecessor %s not found", m.Task, m.Predecessor))
	}
	for _, c := range res.Cycles {
		lines = append(lines, fmt.Sprintf("cycle %s: removed %s", strings.Join(c.Cycle, " -> "), c.Removed.ID()))
	}
	for _, c := range res.Conflicts() {
		lines = append(lines, c.Error())
	}
	for _, issue := range res.Issues {
		lines = append(lines, issue.String())
	}
	for _, l := range lines {
		p.printf("  "+ansi.Yellow+"• "+ansi.Reset+"%s\n", l)
	}
	if n := len(res.Ignored); n > 0 {
		p.printf(ansi.Dim+"  %d missing reference(s) ignored"+ansi.Reset+"\n", n)
	}
	return len(lines)
}

// ValidateResult prints the outcome of a validation run.
func (p *Printer) ValidateResult(name string, res *scheduler.Result) {
	problems := len(res.Missing) + len(res.Cycles) + len(res.Conflicts()) + len(res.Issues)
	if problems == 0 {
		p.printf(ansi.Green+ansi.Bold+"✓ %q"+ansi.Reset+" — %d task(s), no problems\n", name, len(res.Tasks))
		return
	}
	p.printf(ansi.Red+ansi.Bold+"✗ %q"+ansi.Reset+" — %d problem(s):\n", name, problems)
	p.Findings(res)
}

// Trace prints the upstream and downstream tasks of id.
func (p *Printer) Trace(id string, upstream, downstream []string) {
	p.printf(ansi.Bold+ansi.Cyan+"%s"+ansi.Reset+"\n", id)
	for _, part := range []struct {
		label string
		ids   []string
	}{{"upstream", upstream}, {"downstream", downstream}} {
		if len(part.ids) == 0 {
			p.printf("  %-11s "+ansi.Dim+"(none)"+ansi.Reset+"\n", part.label+":")
			continue
		}
		p.printf("  %-11s %s\n", part.label+":", strings.Join(part.ids, ", "))
	}
}

// WatchReload announces a recomputation after an input change.
func (p *Printer) WatchReload(file string) {
	p.printf("\n"+ansi.Bold+ansi.Magenta+"── %s changed ──"+ansi.Reset+"\n", file)
}

// Runs prints recorded runs, newest first.
func (p *Printer) Runs(runs []history.Run) {
	if len(runs) == 0 {
		p.println(ansi.Dim+"(no recorded runs)"+ansi.Reset)
		return
	}
	for _, r := range runs {
		flags := ""
		if r.Cycles+r.Missing+r.Conflicts > 0 {
			flags = fmt.Sprintf(ansi.Yellow+" cycles:%d missing:%d conflicts:%d"+ansi.Reset, r.Cycles, r.Missing, r.Conflicts)
		}
		p.printf("%s  %s  %-20s %3d tasks  finish %s (%gh)%s\n",
			shortID(r.ID), r.RecordedAt.Local().Format("2006-01-02 15:04"), r.Source,
			r.Tasks, r.ProjectFinish.Format("2006-01-02 15:04"), r.FinishHours, flags)
	}
}

// Changes prints the task-level differences between two runs.
func (p *Printer) Changes(changes []history.Change) {
	if len(changes) == 0 {
		p.println(ansi.Dim+"  no task changes since the previous run"+ansi.Reset)
		return
	}
	for _, c := range changes {
		var symbol, color, detail string
		switch {
		case c.Added:
			symbol, color = "+", ansi.Green
		case c.Removed:
			symbol, color = "×", ansi.Red
		default:
			symbol, color = "~", ansi.Yellow
			detail = fmt.Sprintf("finish %+gh, float %+gh", c.FinishDelta, c.FloatDelta)
			if c.BecameCritical {
				detail += ", now critical"
			}
			if c.LeftCritical {
				detail += ", no longer critical"
			}
		}
		p.printf("  "+color+symbol+" %-20s"+ansi.Reset+" %s\n", c.TaskID, detail)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
