package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/api"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	// TickEvery runs a recurrence tick on this interval; zero disables it.
	TickEvery time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the taskflow HTTP API until interrupted.

Requests identify the caller with the X-Actor-ID and X-Organization-ID
headers.

Example:
  taskflow serve --db ./taskflow.db --addr :8080 --tick-every 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().DurationVar(&opts.TickEvery, "tick-every", 0, "run the recurrence tick on this interval")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.Logger
	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.Server.Addr
	}

	eng, closeFn, err := opts.openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(eng, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.TickEvery > 0 {
		go func() {
			ticker := time.NewTicker(opts.TickEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					res, err := eng.Tick(ctx, eng.Now())
					if err != nil {
						logger.Error("recurrence tick failed", "error", err)
						continue
					}
					logger.Info("recurrence tick", "spawned", len(res.Spawned), "warnings", len(res.Warnings))
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "db", opts.Config.Database.Path)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
