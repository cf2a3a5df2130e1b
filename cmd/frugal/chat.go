package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"frugal/internal/chat"
	"frugal/internal/cli"
	"frugal/internal/dashboard"
	"frugal/internal/fetcher"
	applog "frugal/internal/log"
)

const chatHelp = `Type a message to send it to the assistant, or one of:
  /add /split /insights   load a quick-action draft
  /send                   send the current draft
  /refresh                reload the dashboard
  /filter [text]          filter transactions (empty clears)
  /quit                   exit`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant while the dashboard stays in sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := cli.SignalContext(cmd.Context(), a.logger)
			defer stop()
			return runChat(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return err
	}
	page := dashboard.NewPage(fetcher.NewFromConfig(a.cfg, a.logger), a.logger)
	defer page.Close()

	if err := page.Mount(ctx); err != nil {
		a.logger.Warn("Initial dashboard load incomplete", "error", err)
	}
	if a.cfg.PollInterval > 0 {
		poller := dashboard.NewPoller(page.Signal, a.cfg.PollInterval, a.logger)
		if err := poller.Start(ctx); err != nil {
			return err
		}
		defer poller.Stop(context.Background())
	}

	show := func() {
		m := page.Model()
		_ = renderer.Render(out, m)
		_ = renderer.RenderChat(out, m)
	}
	show()
	fmt.Fprintln(out, chatHelp)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		quit, err := handleChatLine(ctx, page, line, out, a.logger)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		if quit {
			return nil
		}
		page.Wait()
		show()
	}
}

// handleChatLine runs one REPL line. It reports whether the REPL should exit.
// Send failures are only logged: the transcript already holds the fallback
// reply, and blank drafts are ignored.
func handleChatLine(ctx context.Context, page *dashboard.Page, line string, out io.Writer, logger *applog.Logger) (bool, error) {
	send := func(err error) (bool, error) {
		if err != nil {
			logger.Debug("Chat send not delivered",
				applog.FieldOperation, applog.OpSend,
				applog.FieldErrorType, sendErrorType(err),
				applog.FieldError, err)
		}
		return false, nil
	}

	if !strings.HasPrefix(line, "/") {
		return send(page.Chat.Send(ctx, line))
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(out, chatHelp)
	case "send":
		return send(page.Chat.SendDraft(ctx))
	case "refresh":
		page.Refresh()
	case "filter":
		page.SetFilter(strings.TrimSpace(arg), "")
	default:
		if err := page.Chat.QuickAction(name); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "draft: %s (type /send to send it)\n", page.Chat.Draft())
	}
	return false, nil
}

func sendErrorType(err error) string {
	if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrSendInFlight) {
		return applog.ErrorTypeValidation
	}
	return fetcher.ErrorType(err)
}
