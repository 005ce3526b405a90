package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wastelog/internal/httpapi"
	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/waste"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready, when set, receives the server once it is listening (for testing).
	ready func(*httpapi.Server)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Start the HTTP API on the configured store.

Bearer-token auth is enabled when http.jwt_secret is set; otherwise every
request acts as identity.default. Metrics are served on /metrics.

Example:
  wastelog serve --config wastelog.yaml
  wastelog serve --addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")

	return cmd
}

func runServer(opts *ServeOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, serving)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := s.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	apiOpts := httpapi.Options{
		DefaultIdentity: waste.Identity(s.cfg.Identity.Default),
		Metrics:         s.metrics,
		Logger:          s.logger,
	}
	if s.cfg.HTTP.JWTSecret != "" {
		apiOpts.Issuer = identity.NewIssuer(s.cfg.HTTP.JWTSecret, 0)
	}
	srv := httpapi.New(s.svc, apiOpts)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(addr)
	}()

	s.logger.Info("server starting",
		"addr", addr,
		"backend", s.cfg.Store.Backend,
		"auth", apiOpts.Issuer != nil,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)
	if opts.ready != nil {
		opts.ready(srv)
	}

	select {
	case err := <-errc:
		if err != nil {
			return WrapExitError(ExitCommandError, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	<-errc

	s.logger.Info("server stopped gracefully")
	return nil
}
