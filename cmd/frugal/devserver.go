package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"frugal/internal/cli"
	"frugal/internal/devserver"
	applog "frugal/internal/log"
)

func newDevServerCmd(a *app) *cobra.Command {
	var port, backend string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in for the FrugalAgent API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.DevServerPort = port
			}
			if backend != "" {
				a.cfg.DevServerBackend = backend
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := cli.SignalContext(cmd.Context(), a.logger)
			defer stop()
			return runDevServer(ctx, a)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to DEVSERVER_PORT)")
	cmd.Flags().StringVar(&backend, "backend", "", "memory or sqlite (defaults to DEVSERVER_BACKEND)")
	return cmd
}

func runDevServer(ctx context.Context, a *app) error {
	ledger, err := cli.OpenLedger(a.cfg, a.logger)
	if err != nil {
		return err
	}
	srv := devserver.NewServer(":"+a.cfg.DevServerPort, ledger, a.logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting devserver", "addr", srv.Addr, "backend", a.cfg.DevServerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = ledger.Close()
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
		return err
	}
	a.logger.Info("Devserver stopped")
	return nil
}
