// Package scheduler runs the critical path method over a task graph: a
// forward pass for early dates, a backward pass for late dates, then
// total and free float and the critical flag. Offsets are working hours
// from the project start and are resolved to timestamps through a
// calendar.
//
// Schedule is a pure function of its inputs. Data-quality problems never
// abort a run; they are returned on the Result.
package scheduler

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/papapumpkin/critpath/internal/calendar"
	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/project"
)

// DefaultEpsilon is the float tolerance, in hours, below which a task is
// critical.
const DefaultEpsilon = 1e-6

// State tracks how far a task has been scheduled.
type State int

const (
	Unscheduled State = iota
	ForwardScheduled
	FullyScheduled
)

func (s State) String() string {
	switch s {
	case ForwardScheduled:
		return "forward-scheduled"
	case FullyScheduled:
		return "fully-scheduled"
	}
	return "unscheduled"
}

// Options configures a scheduling run.
type Options struct {
	// Calendar defaults to calendar.Default().
	Calendar *calendar.Calendar
	// ProjectStart is inferred from constraint and baseline dates when zero.
	ProjectStart time.Time
	// IgnoreMissing reports dangling dependencies as ignored instead of
	// as a MissingReferenceError.
	IgnoreMissing bool
	// Epsilon defaults to DefaultEpsilon.
	Epsilon float64
	// Units is used to parse records and to derive day and week columns.
	Units project.Units
	// EffectiveLevels lists task levels, matched case-insensitively,
	// whose tasks last at least as long as the sum of their distinct
	// predecessors' effective durations.
	EffectiveLevels []string
	Logger          *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Calendar == nil {
		o.Calendar = calendar.Default()
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Units.HoursPerDay == 0 {
		o.Units = project.DefaultUnits()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// ScheduledTask is a task with its computed dates. Offsets are working
// hours from the project start.
type ScheduledTask struct {
	project.Task

	// EffectiveDuration is the duration used by the passes: Duration,
	// or the rolled-up predecessor sum for tasks in an effective level.
	EffectiveDuration float64

	ES, EF, LS, LF float64

	EarlyStart  time.Time
	EarlyFinish time.Time
	LateStart   time.Time
	LateFinish  time.Time

	TotalFloat float64
	FreeFloat  float64
	Critical   bool
	State      State

	// Predecessors are the dependencies used for this task, after cycle
	// resolution and without dangling references.
	Predecessors []project.Dependency
	Conflict     *ConstraintConflictError
}

// ScheduleRecords builds a graph from raw records and schedules it.
func ScheduleRecords(records []ingest.Record, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	g, err := ingest.Build(records, ingest.Options{
		Units:         opts.Units,
		IgnoreMissing: opts.IgnoreMissing,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return Schedule(g, opts)
}

// Schedule computes the schedule for g. It returns an error only for
// unusable input: a nil graph, or tasks with no project start given and
// none inferable. Cycles, missing references, constraint conflicts and
// malformed records are reported on the Result.
func Schedule(g *ingest.Graph, opts Options) (*Result, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	opts = opts.withDefaults()
	cal := opts.Calendar

	res := &Result{
		Units:  opts.Units,
		Issues: append([]ingest.Issue(nil), g.Issues...),
	}
	res.Ignored = append(res.Ignored, g.Ignored...)
	if opts.IgnoreMissing {
		res.Ignored = append(res.Ignored, g.Missing...)
	} else {
		res.Missing = append(res.Missing, g.Missing...)
	}

	if len(g.Order) == 0 {
		if !opts.ProjectStart.IsZero() {
			res.ProjectStart = cal.AlignStart(opts.ProjectStart)
			res.ProjectFinish = res.ProjectStart
		}
		return res, nil
	}

	start := opts.ProjectStart
	if start.IsZero() {
		var ok bool
		if start, ok = inferProjectStart(g); !ok {
			return nil, ErrNoProjectStart
		}
		opts.Logger.Debug("inferred project start", "start", start)
	}
	res.ProjectStart = cal.AlignStart(start)

	d, err := BuildDAG(g)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	res.Cycles = d.ResolveCycles()
	for _, c := range res.Cycles {
		opts.Logger.Warn("broke dependency cycle", "cycle", c.Cycle, "removed", c.Removed.ID())
	}
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	res.Networks = d.ComputeNetworks()

	p := &pass{
		cal:   cal,
		start: res.ProjectStart,
		eps:   opts.Epsilon,
		dag:   d,
		tasks: make(map[string]*ScheduledTask, len(order)),
	}
	for _, id := range g.Order {
		st := &ScheduledTask{Task: g.Tasks[id]}
		for _, e := range d.Incoming(id) {
			st.Predecessors = append(st.Predecessors, project.Dependency{
				Predecessor: e.From, Successor: e.To, Kind: e.Kind, Lag: e.Lag,
			})
		}
		p.tasks[id] = st
	}

	p.effectiveDurations(order, opts.EffectiveLevels)
	p.forward(order)
	for _, id := range order {
		st := p.tasks[id]
		if st.Err != nil {
			continue
		}
		if st.EF > res.FinishOffset {
			res.FinishOffset = st.EF
		}
	}
	p.backward(order, res.FinishOffset)
	p.floats(order)
	p.dates()

	res.ProjectFinish = cal.OffsetToDate(res.FinishOffset, res.ProjectStart)
	res.Tasks = make([]ScheduledTask, 0, len(g.Order))
	for _, id := range g.Order {
		st := p.tasks[id]
		if st.Conflict != nil {
			opts.Logger.Warn("constraint conflict", "task", id, "detail", st.Conflict.Detail)
		}
		if st.Err != nil {
			opts.Logger.Warn("task left unscheduled", "task", id, "err", st.Err)
		}
		res.Tasks = append(res.Tasks, *st)
	}
	opts.Logger.Debug("schedule computed",
		"tasks", len(res.Tasks),
		"finish_hours", res.FinishOffset,
		"cycles", len(res.Cycles),
		"missing", len(res.Missing),
	)
	return res, nil
}

// BuildDAG returns the dependency graph of g: every task, and every
// dependency whose endpoints both exist. Dangling dependencies are
// already recorded on the graph.
func BuildDAG(g *ingest.Graph) (*dag.DAG, error) {
	d := dag.New()
	for _, id := range g.Order {
		if err := d.AddNode(id); err != nil {
			return nil, err
		}
	}
	for _, dep := range g.Edges {
		if d.Node(dep.Predecessor) == nil || d.Node(dep.Successor) == nil {
			continue
		}
		if _, err := d.AddEdge(dag.Edge{
			From: dep.Predecessor,
			To:   dep.Successor,
			Kind: dep.Kind,
			Lag:  dep.Lag,
		}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// inferProjectStart returns the earliest constraint date or baseline start.
func inferProjectStart(g *ingest.Graph) (time.Time, bool) {
	var earliest time.Time
	consider := func(t time.Time) {
		if !t.IsZero() && (earliest.IsZero() || t.Before(earliest)) {
			earliest = t
		}
	}
	for _, id := range g.Order {
		t := g.Tasks[id]
		if !t.Constraint.IsZero() {
			consider(t.Constraint.Date)
		}
		consider(t.BaselineStart)
	}
	return earliest, !earliest.IsZero()
}

type pass struct {
	cal   *calendar.Calendar
	start time.Time
	eps   float64
	dag   *dag.DAG
	tasks map[string]*ScheduledTask
}

// offset converts a constraint date to hours from the project start.
func (p *pass) offset(t time.Time) float64 {
	return p.cal.DateToOffset(t, p.start)
}

func (p *pass) conflict(st *ScheduledTask, format string, args ...any) {
	if st.Conflict != nil {
		return
	}
	st.Conflict = &ConstraintConflictError{
		TaskID:     st.ID,
		Constraint: st.Constraint.Kind,
		Date:       st.Constraint.Date,
		Detail:     fmt.Sprintf(format, args...),
	}
}

// effectiveDurations sets EffectiveDuration in topological order, so a
// rolled-up task sees its predecessors' rolled-up values.
func (p *pass) effectiveDurations(order []string, levels []string) {
	targeted := make(map[string]bool, len(levels))
	for _, l := range levels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			targeted[l] = true
		}
	}
	for _, id := range order {
		st := p.tasks[id]
		st.EffectiveDuration = st.Duration
		if !targeted[strings.ToLower(st.Level)] {
			continue
		}
		seen := make(map[string]bool)
		var sum float64
		for _, e := range p.dag.Incoming(id) {
			if seen[e.From] {
				continue
			}
			seen[e.From] = true
			sum += p.tasks[e.From].EffectiveDuration
		}
		st.EffectiveDuration = math.Max(st.Duration, sum)
	}
}

// forward computes early dates. A task with a malformed record is passed
// through as a zero-length task so its successors still get dates, but it
// stays Unscheduled.
func (p *pass) forward(order []string) {
	for _, id := range order {
		st := p.tasks[id]
		dur := st.EffectiveDuration

		es := 0.0
		for _, e := range p.dag.Incoming(id) {
			pred := p.tasks[e.From]
			var bound float64
			switch e.Kind {
			case project.StartToStart:
				bound = pred.ES + e.Lag
			case project.FinishToFinish:
				bound = pred.EF + e.Lag - dur
			case project.StartToFinish:
				bound = pred.ES + e.Lag - dur
			default:
				bound = pred.EF + e.Lag
			}
			es = math.Max(es, bound)
		}
		st.ES = p.applyEarlyConstraint(st, es)
		st.EF = st.ES + dur
		if st.Err == nil {
			st.State = ForwardScheduled
		}
	}
}

// applyEarlyConstraint adjusts the dependency-driven early start es for
// the task's constraint. Pinning constraints win over dependencies and
// record a conflict when they disagree.
func (p *pass) applyEarlyConstraint(st *ScheduledTask, es float64) float64 {
	c := st.Constraint
	if c.IsZero() {
		return es
	}
	off := p.offset(c.Date)
	dur := st.EffectiveDuration

	switch c.Kind {
	case project.MustStartOn, project.MustFinishOn:
		pinned := off
		if c.Kind == project.MustFinishOn {
			pinned = off - dur
		}
		if pinned < es-p.eps {
			p.conflict(st, "dependencies allow a start no earlier than %s", p.cal.StartDate(es, p.start).Format(time.RFC3339))
		}
		if pinned < 0 {
			p.conflict(st, "falls before the project start %s", p.start.Format(time.RFC3339))
			pinned = 0
		}
		return pinned
	case project.StartNoEarlierThan:
		return math.Max(es, off)
	case project.FinishNoEarlierThan:
		return math.Max(es, off-dur)
	case project.StartNoLaterThan:
		if es > off+p.eps {
			p.conflict(st, "earliest start is %s", p.cal.StartDate(es, p.start).Format(time.RFC3339))
		}
	case project.FinishNoLaterThan:
		if es+dur > off+p.eps {
			p.conflict(st, "earliest finish is %s", p.cal.OffsetToDate(es+dur, p.start).Format(time.RFC3339))
		}
	}
	return es
}

func (p *pass) backward(order []string, finish float64) {
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		st := p.tasks[id]
		dur := st.EffectiveDuration

		lf := finish
		if st.Err != nil {
			// Not part of the finish; only its successors bound it.
			lf = math.Max(finish, st.EF)
		}
		for _, e := range p.dag.Outgoing(id) {
			succ := p.tasks[e.To]
			var bound float64
			switch e.Kind {
			case project.StartToStart:
				bound = succ.LS - e.Lag + dur
			case project.FinishToFinish:
				bound = succ.LF - e.Lag
			case project.StartToFinish:
				bound = succ.LF - e.Lag + dur
			default:
				bound = succ.LS - e.Lag
			}
			lf = math.Min(lf, bound)
		}
		lf = p.applyLateConstraint(st, lf)
		st.LF = lf
		st.LS = lf - dur
		if st.Err == nil {
			st.State = FullyScheduled
		}
	}
}

func (p *pass) applyLateConstraint(st *ScheduledTask, lf float64) float64 {
	c := st.Constraint
	if c.IsZero() {
		return lf
	}
	off := p.offset(c.Date)
	switch c.Kind {
	case project.MustStartOn, project.StartNoLaterThan:
		return math.Min(lf, off+st.EffectiveDuration)
	case project.MustFinishOn, project.FinishNoLaterThan:
		return math.Min(lf, off)
	}
	return lf
}

func (p *pass) floats(order []string) {
	for _, id := range order {
		st := p.tasks[id]
		st.TotalFloat = st.LS - st.ES

		free := math.Inf(1)
		for _, e := range p.dag.Outgoing(id) {
			succ := p.tasks[e.To]
			var slack float64
			switch e.Kind {
			case project.StartToStart:
				slack = succ.ES - st.ES - e.Lag
			case project.FinishToFinish:
				slack = succ.EF - st.EF - e.Lag
			case project.StartToFinish:
				slack = succ.EF - st.ES - e.Lag
			default:
				slack = succ.ES - st.EF - e.Lag
			}
			free = math.Min(free, slack)
		}
		st.FreeFloat = math.Min(free, st.TotalFloat)
		st.Critical = st.Err == nil && st.TotalFloat <= p.eps
	}
}

// dates resolves offsets to timestamps. Starts use start semantics so a
// task never begins at a day end; a zero-duration task finishes at the
// instant it starts.
func (p *pass) dates() {
	for _, st := range p.tasks {
		st.EarlyStart = p.cal.StartDate(st.ES, p.start)
		st.LateStart = p.cal.StartDate(st.LS, p.start)
		if st.EffectiveDuration == 0 {
			st.EarlyFinish = st.EarlyStart
			st.LateFinish = st.LateStart
			continue
		}
		st.EarlyFinish = p.cal.OffsetToDate(st.EF, p.start)
		st.LateFinish = p.cal.OffsetToDate(st.LF, p.start)
	}
}
