package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/liftlog/internal/record"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	From string

	Date     string
	Exercise string
	Reps     int
	Weight   float64
	Volume   float64
	Workout  string
	Origin   string
	Notes    string
	Protocol string
	Fields   []string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a set",
		Long: `Append one set to the log.

The entry comes either from flags or from a YAML file given with --from.
The log file and any new custom columns are created as needed. Volume is
derived from reps and weight unless given.

Example:
  liftlog add --date 2024-03-01 --exercise "Bench Press" --reps 8 --weight 100
  liftlog add --date 2024-03-01 --exercise Running --field distance=5.2 --field duration=1800
  liftlog add --from entry.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "read the entry from a YAML file")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date of the set, e.g. 2024-03-01")
	cmd.Flags().StringVar(&opts.Exercise, "exercise", "", "exercise name")
	cmd.Flags().IntVar(&opts.Reps, "reps", 0, "repetitions")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 0, "weight")
	cmd.Flags().Float64Var(&opts.Volume, "volume", 0, "volume (default reps x weight)")
	cmd.Flags().StringVar(&opts.Workout, "workout", "", "workout name")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "origin link, e.g. [[Push Day]]")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-text notes")
	cmd.Flags().StringVar(&opts.Protocol, "protocol", "", "set protocol (default standard)")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "custom field as key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("from", "date")
	cmd.MarkFlagsMutuallyExclusive("from", "exercise")

	return cmd
}

// entry builds the record from flags. Numeric flags count only when set.
func (o *AddOptions) entry(cmd *cobra.Command) (record.LogRecord, error) {
	rec := record.LogRecord{
		Date:     o.Date,
		Exercise: o.Exercise,
		Workout:  o.Workout,
		Origin:   o.Origin,
		Notes:    o.Notes,
		Protocol: record.Protocol(o.Protocol),
	}
	flags := cmd.Flags()
	if flags.Changed("reps") {
		rec.Reps = record.Int(o.Reps)
	}
	if flags.Changed("weight") {
		rec.Weight = record.Float(o.Weight)
	}
	if flags.Changed("volume") {
		rec.Volume = record.Float(o.Volume)
	}
	fields, err := parseFieldFlags(o.Fields)
	if err != nil {
		return record.LogRecord{}, err
	}
	rec.CustomFields = fields
	return rec, nil
}

// parseFieldFlags turns key=value pairs into custom fields. Values are
// typed the same way CSV cells are. A blank value omits the field.
func parseFieldFlags(pairs []string) (record.Fields, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(record.Fields, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", pair)
		}
		if v, ok := record.ParseFieldValue(value); ok {
			fields[key] = v
		}
	}
	return fields, nil
}

// readYAML decodes the YAML file at path into v, rejecting unknown keys.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s is empty", path)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	var (
		entry record.LogRecord
		err   error
	)
	if opts.From != "" {
		err = readYAML(opts.From, &entry)
	} else {
		entry, err = opts.entry(cmd)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid entry input", err)
	}

	return withSession(opts.RootOptions, cmd, func(s *session) error {
		stored, err := s.store.AddEntry(cmd.Context(), entry)
		if err != nil {
			return s.formatter.StoreFailure("failed to add entry", err)
		}
		s.logger.Info("entry added", "exercise", stored.Exercise, "timestamp", stored.Timestamp)
		return s.formatter.Success(recordTable{stored})
	})
}
