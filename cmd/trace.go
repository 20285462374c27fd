package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/critpath/internal/dag"
	"github.com/papapumpkin/critpath/internal/scheduler"
)

var traceCmd = &cobra.Command{
	Use:   "trace <tasks.csv|tasks.toml|tasks.json> <task-id>",
	Short: "Show the tasks upstream and downstream of a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		r, err := s.schedule(args[0], "", s.cfg.IgnoreMissing)
		if err != nil {
			return err
		}
		d, err := scheduler.BuildDAG(r.graph)
		if err != nil {
			return err
		}

		id := args[1]
		if d.Node(id) == nil {
			return fmt.Errorf("trace: %w: %q", dag.ErrNodeNotFound, id)
		}
		s.printer.Trace(id, d.Ancestors(id), d.Descendants(id))
		if t, ok := r.result.Task(id); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "ES %gh  EF %gh  LS %gh  LF %gh  total float %gh  free float %gh  critical %v\n",
				t.ES, t.EF, t.LS, t.LF, t.TotalFloat, t.FreeFloat, t.Critical)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
