package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/liftlog/internal/record"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	From string
}

// changeFile is the YAML document read by update --from.
type changeFile struct {
	Original record.LogRecord `yaml:"original"`
	Updated  record.LogRecord `yaml:"updated"`
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a logged set",
		Long: `Replace one logged set with a new version.

The YAML file holds two entries, original and updated. The row is found by
the original's date, exercise and timestamp, or by date, exercise, reps and
weight when the timestamp does not match. The stored timestamp is kept.

Example file:
  original: {date: "2024-03-01", exercise: Squat, timestamp: 1709280000000}
  updated:  {date: "2024-03-01", exercise: Squat, reps: 6, weight: 140}`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "YAML file with original and updated entries (required)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command) error {
	var change changeFile
	if err := readYAML(opts.From, &change); err != nil {
		return WrapExitError(ExitCommandError, "invalid change file", err)
	}

	return withSession(opts.RootOptions, cmd, func(s *session) error {
		if err := s.store.UpdateEntry(cmd.Context(), change.Original, change.Updated); err != nil {
			return s.formatter.StoreFailure("failed to update entry", err)
		}
		return s.formatter.Success("Entry updated.")
	})
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Date      string
	Exercise  string
	Timestamp int64
	Reps      int
	Weight    float64
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a logged set",
		Long: `Remove one logged set.

The row is matched the same way update matches it: by date, exercise and
timestamp, falling back to date, exercise, reps and weight.

Example:
  liftlog delete --date 2024-03-01 --exercise Squat --timestamp 1709280000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "date of the set (required)")
	cmd.Flags().StringVar(&opts.Exercise, "exercise", "", "exercise name (required)")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "timestamp in ms since the epoch")
	cmd.Flags().IntVar(&opts.Reps, "reps", 0, "repetitions, for fallback matching")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 0, "weight, for fallback matching")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("exercise")

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command) error {
	target := record.LogRecord{
		Date:      opts.Date,
		Exercise:  opts.Exercise,
		Timestamp: opts.Timestamp,
	}
	if cmd.Flags().Changed("reps") {
		target.Reps = record.Int(opts.Reps)
	}
	if cmd.Flags().Changed("weight") {
		target.Weight = record.Float(opts.Weight)
	}

	return withSession(opts.RootOptions, cmd, func(s *session) error {
		if err := s.store.DeleteEntry(cmd.Context(), target); err != nil {
			return s.formatter.StoreFailure("failed to delete entry", err)
		}
		return s.formatter.Success("Entry deleted.")
	})
}
