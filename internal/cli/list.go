package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liftlog/internal/logstore"
	"github.com/roach88/liftlog/internal/record"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Exercise  string
	Workout   string
	Exact     bool
	Protocols []string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged sets",
		Long: `List logged sets, optionally filtered.

Names are compared after trimming, collapsing whitespace, dropping [[ ]]
link brackets and ignoring case. Without --exact a filter matches any name
containing it. Repeated --protocol flags match any of the given protocols.

Example:
  liftlog list --exercise "bench press" --exact
  liftlog list --workout "Push Day" --protocol drop_set --protocol rest_pause`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Exercise, "exercise", "", "filter by exercise name")
	cmd.Flags().StringVar(&opts.Workout, "workout", "", "filter by workout (origin link or workout name)")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "require whole-name matches")
	cmd.Flags().StringArrayVar(&opts.Protocols, "protocol", nil, "filter by protocol (repeatable)")

	return cmd
}

func (o *ListOptions) criteria() (*logstore.FilterCriteria, error) {
	c := &logstore.FilterCriteria{
		Exercise:   o.Exercise,
		Workout:    o.Workout,
		ExactMatch: o.Exact,
	}
	for _, p := range o.Protocols {
		proto := record.Protocol(p)
		if !proto.Valid() {
			return nil, fmt.Errorf("unknown protocol %q: must be one of %v", p, record.Protocols)
		}
		c.Protocols = append(c.Protocols, proto)
	}
	return c, nil
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	criteria, err := opts.criteria()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		recs, err := s.store.GetLogData(cmd.Context(), criteria)
		if err != nil {
			return s.formatter.StoreFailure("failed to read log", err)
		}
		s.formatter.VerboseLog("%d matching entries", len(recs))
		return s.formatter.Success(recordTable(recs))
	})
}
