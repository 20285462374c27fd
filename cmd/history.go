package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/critpath/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scheduling runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := history.Open(cmd.Context(), s.cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		s.printer.Runs(runs)
		return nil
	},
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <old-run-id> <new-run-id>",
	Short: "Show how tasks moved between two recorded runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		store, err := history.Open(cmd.Context(), s.cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		before, err := store.Tasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		after, err := store.Tasks(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		s.printer.Changes(history.Diff(before, after, s.cfg.FloatEpsilon))
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Delete recorded runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		store, err := history.Open(cmd.Context(), s.cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			s.printer.Info(fmt.Sprintf("deleted run %s", id))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show (0 for all)")
	historyCmd.AddCommand(historyDiffCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
