// Package ingest turns raw task records into the typed task graph the
// scheduler consumes. Header spellings and list formats are resolved here
// once, so nothing downstream special-cases them.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/papapumpkin/critpath/internal/project"
)

// Record is one normalized raw task row. All values are text as found in
// the source; Build does the parsing.
type Record struct {
	ID              string `toml:"id" json:"id"`
	Name            string `toml:"name" json:"name,omitempty"`
	Duration        string `toml:"duration" json:"duration,omitempty"`
	Predecessors    string `toml:"predecessors" json:"predecessors,omitempty"`
	DependencyTypes string `toml:"dependency_types" json:"dependency_types,omitempty"`
	Lags            string `toml:"lags" json:"lags,omitempty"`
	ConstraintType  string `toml:"constraint_type" json:"constraint_type,omitempty"`
	ConstraintDate  string `toml:"constraint_date" json:"constraint_date,omitempty"`
	BaselineStart   string `toml:"start" json:"start,omitempty"`
	BaselineFinish  string `toml:"finish" json:"finish,omitempty"`
	Level           string `toml:"level" json:"level,omitempty"`
}

// Options controls how records are interpreted.
type Options struct {
	Units project.Units
	// DefaultUnit applies to bare numbers in durations and lags.
	DefaultUnit project.Unit
	// IgnoreMissing drops dependencies on unknown tasks instead of
	// keeping them as dangling edges.
	IgnoreMissing bool
	// Location is used for dates without a zone. Defaults to UTC.
	Location *time.Location
	Logger   *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Units.HoursPerDay == 0 {
		o.Units = project.DefaultUnits()
	}
	if o.DefaultUnit == "" {
		o.DefaultUnit = project.Day
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Graph is the typed result of Build.
type Graph struct {
	Tasks map[string]project.Task
	// Order lists task IDs in record order.
	Order []string
	// Edges keeps dependencies on unknown tasks unless IgnoreMissing was set.
	Edges []project.Dependency
	// Missing lists dangling edges kept in Edges.
	Missing []MissingRef
	// Ignored lists dependencies on unknown tasks dropped by IgnoreMissing.
	Ignored []MissingRef
	Issues  []Issue
}

// MissingError returns a *MissingReferenceError when the graph kept
// dangling edges, or nil.
func (g *Graph) MissingError() error {
	if len(g.Missing) == 0 {
		return nil
	}
	return &MissingReferenceError{Refs: g.Missing}
}

// NewGraph returns an empty graph ready for AddTask and AddDependency.
func NewGraph() *Graph {
	return &Graph{Tasks: make(map[string]project.Task)}
}

// AddTask adds an already-typed task.
func (g *Graph) AddTask(t project.Task) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if _, dup := g.Tasks[t.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	g.Tasks[t.ID] = t
	g.Order = append(g.Order, t.ID)
	return nil
}

// AddDependency adds an edge without checking its endpoints.
func (g *Graph) AddDependency(d project.Dependency) {
	if d.Kind == "" {
		d.Kind = project.FinishToStart
	}
	g.Edges = append(g.Edges, d)
}

var (
	listSeparator = regexp.MustCompile(`[;,\n]`)
	// suffixToken matches predecessor tokens such as "12FS+2d" or "A SS".
	suffixToken = regexp.MustCompile(`(?i)^(.+?)\s*(FS|SS|FF|SF)(\s*[+-].*)?$`)
)

// splitList splits on commas, semicolons and newlines, trimming each
// entry. Empty entries are kept so positional zipping survives blanks
// like "FS,,SS".
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := listSeparator.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// pick returns values[i], the only value when there is exactly one, or ""
// when the list is shorter.
func pick(values []string, i int) string {
	switch {
	case i < len(values):
		return values[i]
	case len(values) == 1:
		return values[0]
	}
	return ""
}

// pickType returns values[i], or values[0] for positions past the end of
// a non-empty list. A list of types shorter than the predecessors repeats
// its first entry.
func pickType(values []string, i int) string {
	switch {
	case i < len(values):
		return values[i]
	case len(values) > 0:
		return values[0]
	}
	return ""
}

// Build parses records into a Graph. Only an empty or duplicate task ID
// is fatal; every other data problem is recorded in Graph.Issues or on
// the task's Err and the batch continues.
func Build(records []Record, opts Options) (*Graph, error) {
	opts = opts.withDefaults()
	g := NewGraph()

	known := make(map[string]bool, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("record %d: %w", i+1, ErrEmptyID)
		}
		if known[id] {
			return nil, fmt.Errorf("record %d: %w: %s", i+1, ErrDuplicateTask, id)
		}
		known[id] = true
	}

	b := &builder{opts: opts, graph: g, known: known}
	for _, r := range records {
		task := b.task(r)
		if err := g.AddTask(task); err != nil {
			return nil, err
		}
		b.dependencies(task.ID, r)
	}
	b.checkReferences()
	return g, nil
}

type builder struct {
	opts  Options
	graph *Graph
	known map[string]bool
}

func (b *builder) issue(taskID, field, value string, err error) error {
	merr := &project.MalformedRecordError{TaskID: taskID, Field: field, Value: value, Err: err}
	b.graph.Issues = append(b.graph.Issues, Issue{TaskID: taskID, Err: merr})
	b.opts.Logger.Warn("malformed record", "task", taskID, "field", field, "value", value, "err", err)
	return merr
}

func (b *builder) task(r Record) project.Task {
	t := project.Task{
		ID:    strings.TrimSpace(r.ID),
		Name:  strings.TrimSpace(r.Name),
		Level: strings.TrimSpace(r.Level),
	}

	if text := strings.TrimSpace(r.Duration); text != "" {
		hours, err := b.opts.Units.ParseDuration(text, b.opts.DefaultUnit)
		if err != nil {
			t.Err = b.issue(t.ID, "duration", text, err)
		} else {
			t.Duration = hours
		}
	}

	t.Constraint = b.constraint(t.ID, r)
	t.BaselineStart = b.date(t.ID, "start", r.BaselineStart, false)
	t.BaselineFinish = b.date(t.ID, "finish", r.BaselineFinish, true)
	return t
}

func (b *builder) constraint(taskID string, r Record) project.Constraint {
	text := strings.TrimSpace(r.ConstraintType)
	if text == "" {
		return project.Constraint{}
	}
	kind, ok := project.ParseConstraintKind(text)
	if !ok {
		b.issue(taskID, "constraint type", text, errors.New("unrecognized constraint"))
		return project.Constraint{}
	}
	if kind == project.NoConstraint {
		return project.Constraint{}
	}
	date := b.date(taskID, "constraint date", r.ConstraintDate, kind.OnFinish())
	if date.IsZero() {
		if strings.TrimSpace(r.ConstraintDate) == "" {
			b.issue(taskID, "constraint date", "", fmt.Errorf("%s requires a date", kind))
		}
		return project.Constraint{}
	}
	return project.Constraint{Kind: kind, Date: date}
}

// date parses an optional date. A date without a time of day used as a
// finish refers to the end of that day, so it maps to the next midnight.
func (b *builder) date(taskID, field, text string, finish bool) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}
	t, hasTime, err := project.ParseTime(text, b.opts.Location)
	if err != nil {
		b.issue(taskID, field, text, err)
		return time.Time{}
	}
	if finish && !hasTime {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (b *builder) dependencies(taskID string, r Record) {
	preds := splitList(r.Predecessors)
	types := splitList(r.DependencyTypes)
	lags := splitList(r.Lags)
	if len(lags) > 1 && len(lags) < len(preds) {
		b.issue(taskID, "lags", r.Lags,
			fmt.Errorf("%d lags for %d predecessors, missing lags are 0", len(lags), len(preds)))
	}

	for i, token := range preds {
		if token == "" {
			continue
		}
		pred, kindText, lagText := b.token(token)
		if kindText == "" {
			kindText = pickType(types, i)
		}
		if lagText == "" {
			lagText = pick(lags, i)
		}

		kind := project.FinishToStart
		if kindText != "" {
			k, ok := project.ParseKind(kindText)
			if ok {
				kind = k
			} else {
				b.issue(taskID, "dependency type", kindText, errors.New("unknown dependency type, using FS"))
			}
		}

		lag, err := b.opts.Units.ParseLag(lagText, b.opts.DefaultUnit)
		if err != nil {
			b.issue(taskID, "lag", lagText, err)
			lag = 0
		}

		b.graph.AddDependency(project.Dependency{
			Predecessor: pred,
			Successor:   taskID,
			Kind:        kind,
			Lag:         lag,
		})
	}
}

// token splits one predecessor token into ID, type and lag. Accepted
// forms are "ID", "ID:TYPE:LAG" and "IDTYPE+LAG" (e.g. "12FS+2d"). The
// suffix form is only used when the whole token is not a known task ID
// and the part before the type is.
func (b *builder) token(token string) (id, kind, lag string) {
	if strings.Contains(token, ":") {
		parts := strings.SplitN(token, ":", 3)
		id = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			kind = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			lag = strings.TrimSpace(parts[2])
		}
		return id, kind, lag
	}
	if b.known[token] {
		return token, "", ""
	}
	if m := suffixToken.FindStringSubmatch(token); m != nil && b.known[strings.TrimSpace(m[1])] {
		return strings.TrimSpace(m[1]), m[2], strings.TrimSpace(m[3])
	}
	return token, "", ""
}

func (b *builder) checkReferences() {
	kept := b.graph.Edges[:0]
	for _, d := range b.graph.Edges {
		if b.known[d.Predecessor] {
			kept = append(kept, d)
			continue
		}
		ref := MissingRef{Task: d.Successor, Predecessor: d.Predecessor}
		if b.opts.IgnoreMissing {
			b.graph.Ignored = append(b.graph.Ignored, ref)
			b.opts.Logger.Debug("ignoring missing predecessor", "task", ref.Task, "predecessor", ref.Predecessor)
			continue
		}
		b.graph.Missing = append(b.graph.Missing, ref)
		b.opts.Logger.Warn("missing predecessor", "task", ref.Task, "predecessor", ref.Predecessor)
		kept = append(kept, d)
	}
	b.graph.Edges = kept
}
