package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// renameResult is the outcome of a rename.
type renameResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Updated int    `json:"updated"`
}

func (r renameResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Renamed %q to %q in %d row(s).\n", r.From, r.To, r.Updated)
	return err
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an exercise in every row",
		Long: `Rename an exercise in every row of the log.

Rows match when their exercise equals <old> ignoring case and surrounding
whitespace. Other rows are left byte-for-byte as they were.

Example:
  liftlog rename "bench" "Bench Press"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				n, err := s.store.RenameExercise(cmd.Context(), args[0], args[1])
				if err != nil {
					return s.formatter.StoreFailure("failed to rename exercise", err)
				}
				return s.formatter.Success(renameResult{From: args[0], To: args[1], Updated: n})
			})
		},
	}

	return cmd
}
