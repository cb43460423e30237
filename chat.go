package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/config"
	"chat-widget/internal/conversation"
	"chat-widget/internal/session"
	"chat-widget/internal/terminal"
	"chat-widget/internal/ui"
)

const helpText = `Type a message and press Enter to send it.
End a line with \ to continue the message on the next line.
  /new   start a new session (like opening a new tab)
  /html  print the conversation as embeddable HTML
  /help  show this help
  /exit  quit`

func newChatCommand() *cobra.Command {
	var (
		endpoint    string
		sessionFile string
		newSession  bool
		ephemeral   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an endpoint from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.ChatEndpoint = endpoint
			}
			if cmd.Flags().Changed("session-file") {
				cfg.SessionFile = sessionFile
			}
			if cmd.Flags().Changed("timeout") {
				cfg.RequestTimeout, _ = cmd.Flags().GetDuration("timeout")
			}
			if err := cfg.ValidateClient(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			var storage session.Storage = session.NewFileStorage(cfg.SessionFile)
			if ephemeral {
				storage = session.NewMemoryStorage()
			}
			sessions := session.NewManager(storage)
			if newSession {
				if err := sessions.Reset(); err != nil {
					return fmt.Errorf("failed to reset session: %w", err)
				}
			}

			return runChat(cmd.Context(), cfg, storage, sessions, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Chat endpoint base URL (overrides CHAT_ENDPOINT)")
	cmd.Flags().Duration("timeout", conversation.DefaultTimeout, "Per-request timeout (overrides CHAT_TIMEOUT)")
	cmd.Flags().StringVar(&sessionFile, "session-file", "", "File holding the session id (overrides CHAT_SESSION_FILE)")
	cmd.Flags().BoolVar(&newSession, "new-session", false, "Discard the stored session id and start fresh")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep the session id in memory only")

	return cmd
}

func runChat(ctx context.Context, cfg *config.Config, storage session.Storage, sessions *session.Manager, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := chatapi.NewClient(cfg.ChatEndpoint, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	view := ui.NewTerminalView(out)
	newClient := func() *conversation.Client {
		return conversation.NewClient(sender, sessions,
			conversation.WithView(view),
			conversation.WithLogger(log.Logger),
			conversation.WithTimeout(cfg.RequestTimeout),
		)
	}
	client := newClient()

	if err := sender.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Msg("health check failed")
	}

	existing, _, _ := storage.Get(session.Key)
	view.PrintWelcome(cfg.ChatEndpoint, existing)
	view.PrintPrompt()

	lines, readErr := readLines(terminal.NewInputReader(in), ctx.Done())

	for {
		var line string
		select {
		case <-ctx.Done():
			view.PrintGoodbye()
			return nil
		case err := <-readErr:
			view.PrintGoodbye()
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		case line = <-lines:
		}

		switch terminal.ParseCommand(line) {
		case terminal.CmdExit:
			view.PrintGoodbye()
			return nil
		case terminal.CmdNew:
			if err := sessions.Reset(); err != nil {
				view.PrintError(err)
			} else {
				client = newClient()
				view.PrintInfo("Started a new session")
			}
			view.PrintPrompt()
			continue
		case terminal.CmdHTML:
			fmt.Fprintln(out, client.Log().HTML())
			view.PrintPrompt()
			continue
		case terminal.CmdHelp:
			fmt.Fprintln(out, helpText)
			view.PrintPrompt()
			continue
		}

		if strings.TrimSpace(line) == "" {
			view.PrintPrompt()
			continue
		}

		if err := client.Submit(ctx, line); err != nil {
			view.PrintError(err)
			view.PrintPrompt()
		}
	}
}

// readLines feeds prompts from input until it fails or done is closed.
// readErr is closed once the reader stops.
func readLines(input *terminal.InputReader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(readErr)
		for {
			line, err := input.ReadPrompt()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()
	return lines, readErr
}
