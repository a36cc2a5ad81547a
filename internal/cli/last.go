package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLastCommand creates the last command.
func NewLastCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last <exercise>",
		Short: "Show the most recent set of an exercise",
		Long: `Show the most recent set of an exercise, by timestamp.

The name is compared the same way list --exact compares it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				rec, ok, err := s.store.LastEntryForExercise(cmd.Context(), args[0])
				if err != nil {
					return s.formatter.StoreFailure("failed to read log", err)
				}
				if !ok {
					msg := fmt.Sprintf("no entries for %q", args[0])
					if err := s.formatter.Error("NO_ENTRY", msg, nil); err != nil {
						return err
					}
					return NewExitError(ExitFailure, msg)
				}
				return s.formatter.Success(recordTable{rec})
			})
		},
	}

	return cmd
}
