package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/liftlog/internal/config"
	"github.com/roach88/liftlog/internal/entrycheck"
	"github.com/roach88/liftlog/internal/logging"
	"github.com/roach88/liftlog/internal/logstore"
	"github.com/roach88/liftlog/internal/notify"
	"github.com/roach88/liftlog/internal/vault"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	LogFile    string

	// Vault and Clock replace the configured backend and the system clock.
	// Tests set them; they are nil in production.
	Vault vault.Vault
	Clock logstore.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the liftlog root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liftlog",
		Short: "liftlog - a workout log kept as CSV",
		Long: `liftlog reads and edits a workout log stored as one CSV file.

Every set is one row. Columns beyond the standard ones are added on demand
when an entry carries custom fields such as distance or rpe.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "log file path inside the vault (overrides config)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewLastCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// session is everything a command needs once flags are parsed.
type session struct {
	cfg       *config.Config
	store     *logstore.Store
	logger    *slog.Logger
	formatter *OutputFormatter
	closeFn   func() error
}

func (s *session) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// openSession loads config, sets up logging and opens the store. Failures
// are command errors.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error("CONFIG", err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.LogFile != "" {
		cfg.Store.Path = opts.LogFile
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.Setup(level, cfg.Logging.Format, cmd.ErrOrStderr())

	v := opts.Vault
	var closeFn func() error
	if v == nil {
		switch cfg.Store.Backend {
		case config.BackendSQLite:
			db, err := vault.OpenSQLite(cfg.Store.SQLitePath)
			if err != nil {
				_ = formatter.Error("VAULT", err.Error(), nil)
				return nil, WrapExitError(ExitCommandError, "failed to open sqlite vault", err)
			}
			v, closeFn = db, db.Close
		default:
			v = vault.NewFS(cfg.Store.Root)
		}
	}

	validator, err := entrycheck.New()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load entry schema", err)
	}

	store := logstore.New(v, logstore.Options{
		Path:         cfg.Store.Path,
		CacheTTL:     cfg.Store.CacheTTL,
		CacheMaxSize: cfg.Store.CacheMaxSize,
		Clock:        opts.Clock,
		Logger:       logger,
		Notifier: notify.Multi{
			notify.Log{Logger: logger},
			notify.NewWriter(cmd.ErrOrStderr()),
		},
		Validator: validator,
	})
	formatter.VerboseLog("using %s (%s backend)", store.Path(), cfg.Store.Backend)
	logger.Debug("config loaded", "config", cfg.String())

	return &session{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		formatter: formatter,
		closeFn:   closeFn,
	}, nil
}

// withSession opens a session, runs fn and closes the session.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(*session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing vault", "error", closeErr)
		}
	}()
	return fn(s)
}
