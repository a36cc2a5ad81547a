package cli

import (
	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command and its add subcommand.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	var custom bool

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Show the log's columns",
		Long: `Show the columns of the log file header in order.

A missing log file shows the standard columns. With --custom only the
columns after the standard ones are listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				read := s.store.Columns
				if custom {
					read = s.store.CustomColumns
				}
				cols, err := read(cmd.Context())
				if err != nil {
					return s.formatter.StoreFailure("failed to read columns", err)
				}
				return s.formatter.Success(nameList(cols))
			})
		},
	}
	cmd.Flags().BoolVar(&custom, "custom", false, "list only custom columns")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom column",
		Long: `Add a custom column to the log header, creating the log if needed.

Existing rows get an empty cell. Adding a column that already exists, or a
standard column, changes nothing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				if err := s.store.EnsureColumnExists(cmd.Context(), args[0]); err != nil {
					return s.formatter.StoreFailure("failed to add column", err)
				}
				cols, err := s.store.Columns(cmd.Context())
				if err != nil {
					return s.formatter.StoreFailure("failed to read columns", err)
				}
				return s.formatter.Success(nameList(cols))
			})
		},
	})

	return cmd
}
