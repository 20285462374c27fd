package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/papapumpkin/critpath/internal/calendar"
	"github.com/papapumpkin/critpath/internal/config"
	"github.com/papapumpkin/critpath/internal/ingest"
	"github.com/papapumpkin/critpath/internal/logger"
	"github.com/papapumpkin/critpath/internal/project"
	"github.com/papapumpkin/critpath/internal/scheduler"
	"github.com/papapumpkin/critpath/internal/ui"
)

// session is the resolved configuration shared by the commands.
type session struct {
	cfg     config.Config
	cal     *calendar.Calendar
	units   project.Units
	unit    project.Unit
	loc     *time.Location
	log     *log.Logger
	printer *ui.Printer
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Verbose, Dir: cfg.LogDir}); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	s := &session{cfg: cfg, log: logger.Logger, printer: ui.New()}
	if s.cal, err = cfg.Calendar.WorkCalendar(); err != nil {
		return nil, err
	}
	if s.loc, err = cfg.Calendar.Location(); err != nil {
		return nil, err
	}
	if s.units, err = cfg.Units.ProjectUnits(); err != nil {
		return nil, err
	}
	if s.unit, err = cfg.Units.DefaultUnit(); err != nil {
		return nil, err
	}
	return s, nil
}

// run is one loaded and scheduled project file.
type run struct {
	file   *ingest.File
	graph  *ingest.Graph
	result *scheduler.Result
}

// schedule loads path and schedules it. start overrides the file's
// project start; both may be empty to infer it.
func (s *session) schedule(path, start string, ignoreMissing bool) (*run, error) {
	f, err := ingest.Load(path)
	if err != nil {
		return nil, err
	}

	var projectStart time.Time
	if start == "" {
		start = f.Project.Start
	}
	if start != "" {
		if projectStart, _, err = project.ParseTime(start, s.loc); err != nil {
			return nil, fmt.Errorf("project start: %w", err)
		}
	}

	g, err := ingest.Build(f.Tasks, ingest.Options{
		Units:         s.units,
		DefaultUnit:   s.unit,
		IgnoreMissing: ignoreMissing,
		Location:      s.loc,
		Logger:        s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res, err := scheduler.Schedule(g, scheduler.Options{
		Calendar:        s.cal,
		ProjectStart:    projectStart,
		IgnoreMissing:   ignoreMissing,
		Epsilon:         s.cfg.FloatEpsilon,
		Units:           s.units,
		EffectiveLevels: s.cfg.EffectiveLevels,
		Logger:          s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &run{file: f, graph: g, result: res}, nil
}
