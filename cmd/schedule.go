package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/critpath/internal/export"
	"github.com/papapumpkin/critpath/internal/history"
	"github.com/papapumpkin/critpath/internal/report"
	"github.com/papapumpkin/critpath/internal/telemetry"
	"github.com/papapumpkin/critpath/internal/watch"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <tasks.csv|tasks.toml|tasks.json>",
	Short: "Compute the schedule and critical path of a project file",
	Long: `Reads a project file, schedules it on the configured working calendar and
prints a report. Data-quality findings go to stderr; the run still succeeds.

With --out the full schedule is also written as CSV, XLSX or JSON, chosen by
the file extension. When cycles had to be broken, the task list without the
removed dependencies is written next to it as <name>_adjusted.csv, ready to
be scheduled again. With --watch the input is rescheduled on every save.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().String("start", "", "project start (default: project file, then earliest constraint date)")
	scheduleCmd.Flags().StringP("out", "o", "", "write the schedule to a .csv, .xlsx or .json file")
	scheduleCmd.Flags().StringP("format", "f", "summary", "report: summary, critical, cycles, networks, table or json")
	scheduleCmd.Flags().Bool("ignore-missing", false, "drop dependencies on unknown tasks")
	scheduleCmd.Flags().BoolP("watch", "w", false, "reschedule whenever the input file changes")
	scheduleCmd.Flags().Bool("telemetry", false, "append run events to a JSONL file in telemetry_dir")
	scheduleCmd.Flags().Bool("history", false, "record the run in history_db and show changes since the last run")
	scheduleCmd.Flags().StringSlice("effective-levels", nil, "levels whose duration rolls up their predecessors (e.g. Summary,Phase)")
	_ = viper.BindPFlag("ignore_missing", scheduleCmd.Flags().Lookup("ignore-missing"))
	_ = viper.BindPFlag("effective_levels", scheduleCmd.Flags().Lookup("effective-levels"))
	rootCmd.AddCommand(scheduleCmd)
}

type scheduleFlags struct {
	start, out, format string
	telemetry, history bool
}

func runSchedule(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	var fl scheduleFlags
	fl.start, _ = cmd.Flags().GetString("start")
	fl.out, _ = cmd.Flags().GetString("out")
	fl.format, _ = cmd.Flags().GetString("format")
	fl.telemetry, _ = cmd.Flags().GetBool("telemetry")
	fl.history, _ = cmd.Flags().GetBool("history")
	watching, _ := cmd.Flags().GetBool("watch")

	var strategy report.Strategy
	if fl.format != "json" {
		if strategy, err = report.ByName(fl.format); err != nil {
			return err
		}
	}

	path := args[0]
	once := func() error {
		return s.scheduleOnce(cmd, path, fl, strategy)
	}
	if !watching {
		return once()
	}

	if err := once(); err != nil {
		s.printer.Error(err.Error())
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	s.printer.Info(fmt.Sprintf("watching %s (Ctrl-C to stop)", path))
	err = watch.Run(ctx, func(c watch.Change) {
		s.printer.WatchReload(filepath.Base(c.File))
		s.log.Info("input changed", "file", c.File)
		if err := once(); err != nil {
			s.printer.Error(err.Error())
		}
	}, path)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *session) scheduleOnce(cmd *cobra.Command, path string, fl scheduleFlags, strategy report.Strategy) error {
	runID := telemetry.NewRunID()
	started := time.Now()

	var em *telemetry.Emitter
	if fl.telemetry {
		if err := os.MkdirAll(s.cfg.TelemetryDir, 0o755); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		var err error
		em, err = telemetry.NewEmitter(filepath.Join(s.cfg.TelemetryDir, runID+".jsonl"))
		if err != nil {
			return err
		}
		defer em.Close()
		_ = em.Emit(telemetry.Event{Timestamp: started, Kind: telemetry.KindRunStart, RunID: runID,
			Data: map[string]any{"source": path}})
	}

	r, err := s.schedule(path, fl.start, s.cfg.IgnoreMissing)
	if err != nil {
		return err
	}
	res := r.result
	s.log.Info("scheduled", "run", runID, "file", path, "tasks", len(res.Tasks), "elapsed", time.Since(started))

	if err := em.EmitAll(telemetry.ScheduleEvents(runID, time.Now(), res)); err != nil {
		s.log.Warn("telemetry write failed", "err", err)
	}

	out := cmd.OutOrStdout()
	if strategy == nil {
		if err := export.WriteJSON(out, res.ToRows(), res.Cycles); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, strategy.Render(res))
	}

	s.printer.ScheduleDone(r.file.Project.Name, res)
	s.printer.Findings(res)

	if fl.out != "" {
		if err := res.ToFile(fl.out, export.Writer{}); err != nil {
			return err
		}
		s.printer.Info("wrote " + fl.out)
		if len(res.Cycles) > 0 {
			adjusted := export.AdjustedPath(fl.out)
			if err := export.WriteTasksFile(adjusted, res.AdjustedRecords()); err != nil {
				return err
			}
			s.printer.Info("wrote " + adjusted)
		}
	}

	if fl.history {
		if err := s.record(cmd.Context(), path, r); err != nil {
			return err
		}
	}
	return nil
}

// record saves the run and prints the changes since the previous run of
// the same file.
func (s *session) record(ctx context.Context, path string, r *run) error {
	store, err := history.Open(ctx, s.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := filepath.Abs(path)
	if err != nil {
		source = path
	}
	prev, hadPrev, err := store.Latest(ctx, source)
	if err != nil {
		return err
	}
	saved, err := store.Save(ctx, source, r.file.Project.Name, time.Now(), r.result)
	if err != nil {
		return err
	}
	s.log.Debug("run recorded", "run", saved.ID)
	if !hadPrev {
		return nil
	}

	before, err := store.Tasks(ctx, prev.ID)
	if err != nil {
		return err
	}
	after, err := store.Tasks(ctx, saved.ID)
	if err != nil {
		return err
	}
	s.printer.Info(fmt.Sprintf("since run %s: finish %+gh", prev.ID[:8], saved.FinishHours-prev.FinishHours))
	s.printer.Changes(history.Diff(before, after, s.cfg.FloatEpsilon))
	return nil
}
