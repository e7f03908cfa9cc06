package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/chat"
	"github.com/suPer8Hu/brainstorm-chat/internal/config"
	"github.com/suPer8Hu/brainstorm-chat/internal/render"
	"github.com/suPer8Hu/brainstorm-chat/internal/typing"
	"golang.org/x/term"
)

type options struct {
	model    string
	prompt   string
	system   string
	markdown bool
	noTyping bool
	verbose  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "chat",
		Short:        "Chat with an OpenRouter model in the terminal",
		Long:         `Streams replies from an OpenRouter chat model and types them out as they arrive.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "model id (default $OPENROUTER_MODEL)")
	f.StringVarP(&opts.prompt, "prompt", "p", "", "send one message, print the reply and exit")
	f.StringVar(&opts.system, "system", "", "system prompt (default $CHAT_SYSTEM_PROMPT)")
	f.BoolVar(&opts.markdown, "markdown", false, "render replies as markdown once complete")
	f.BoolVar(&opts.noTyping, "no-typing", false, "print replies without the typing animation")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log skipped stream events to stderr")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	if opts.model != "" {
		cfg.OpenRouterModel = opts.model
	}
	system := cfg.ChatSystemPrompt
	if opts.system != "" {
		system = opts.system
	}

	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	client, err := ai.NewClient(cfg.AIConfig(logger))
	if err != nil {
		return err
	}

	s := &session{
		conv:   chat.NewConversation(client, system, cfg.ChatContextWindowSize),
		out:    os.Stdout,
		errOut: os.Stderr,
		delay:  typing.DefaultDelay,
	}
	if opts.noTyping {
		s.delay = 0
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	if opts.markdown {
		width := 80
		if tty {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
				width = w
			}
		}
		s.md, err = render.NewTerminal(width, tty)
		if err != nil {
			return fmt.Errorf("markdown renderer: %w", err)
		}
	}

	if opts.prompt != "" {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return s.ask(ctx, opts.prompt)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal; use --prompt for one-shot use")
	}
	return s.repl(ctx, client.Model())
}
