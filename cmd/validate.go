package cmd

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <tasks.csv|tasks.toml|tasks.json>",
	Short: "Check a project file for missing references, cycles and malformed records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		start, _ := cmd.Flags().GetString("start")

		r, err := s.schedule(args[0], start, false)
		if err != nil {
			return err
		}
		s.printer.ValidateResult(args[0], r.result)
		if r.result.Err() != nil {
			return errProblems
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("start", "", "project start (default: project file, then earliest constraint date)")
	rootCmd.AddCommand(validateCmd)
}
