package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/liftlog/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the log over HTTP",
		Long: `Serve the workout log as a JSON API until interrupted.

The listen address defaults to server.host and server.port from config.

Example:
  liftlog serve --addr 127.0.0.1:9000
  curl 'localhost:9000/api/records?exercise=squat'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (host:port)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		addr := opts.Addr
		if addr == "" {
			addr = s.cfg.Server.Addr()
		}
		srv := api.NewServer(s.store, api.Options{
			ReadTimeout:  s.cfg.Server.ReadTimeout,
			WriteTimeout: s.cfg.Server.WriteTimeout,
		})

		parentCtx := cmd.Context()
		if parentCtx == nil {
			parentCtx = context.Background()
		}
		ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(addr)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", s.store.Path(), addr)

		select {
		case err := <-errCh:
			if err != nil {
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		case <-ctx.Done():
		}

		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown failed", err)
		}
		if err := <-errCh; err != nil {
			return WrapExitError(ExitFailure, "server error", err)
		}
		s.logger.Info("server stopped")
		return nil
	})
}
