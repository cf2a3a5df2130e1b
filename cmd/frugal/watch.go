package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"frugal/internal/cli"
	"frugal/internal/dashboard"
	"frugal/internal/fetcher"
)

const defaultWatchInterval = 30 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render the dashboard and refresh it on an interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = a.cfg.PollInterval
			}
			if interval <= 0 {
				interval = defaultWatchInterval
			}
			ctx, stop := cli.SignalContext(cmd.Context(), a.logger)
			defer stop()
			return runWatch(ctx, a, interval, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (defaults to FRUGAL_POLL_INTERVAL, then 30s)")
	return cmd
}

func runWatch(ctx context.Context, a *app, interval time.Duration, out io.Writer) error {
	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return err
	}
	page := dashboard.NewPage(fetcher.NewFromConfig(a.cfg, a.logger), a.logger)
	defer page.Close()

	// Coalesce the per-view change callbacks into one render.
	changed := make(chan struct{}, 1)
	page.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := page.Mount(ctx); err != nil {
		a.logger.Warn("Initial dashboard load incomplete", "error", err)
	}
	if err := renderer.Render(out, page.Model()); err != nil {
		return err
	}

	poller := dashboard.NewPoller(page.Signal, interval, a.logger)
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			page.Wait()
			if err := renderer.Render(out, page.Model()); err != nil {
				return err
			}
		}
	}
}
