package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/suPer8Hu/brainstorm-chat/internal/chat"
	"github.com/suPer8Hu/brainstorm-chat/internal/render"
	"github.com/suPer8Hu/brainstorm-chat/internal/typing"
)

type session struct {
	conv   *chat.Conversation
	out    io.Writer
	errOut io.Writer
	delay  time.Duration
	// md is set when replies are rendered as markdown.
	md *render.Terminal

	mu     sync.Mutex
	cancel context.CancelFunc
}

// ask sends text and writes the reply to s.out. A typed reply is shown as it
// grows; a markdown reply is shown once complete.
func (s *session) ask(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.setCancel(cancel)
	defer s.setCancel(nil)

	var (
		tw   *typing.Typewriter
		done chan error
	)
	if s.md == nil {
		tw = typing.New(s.out, s.delay)
		done = make(chan error, 1)
		go func() { done <- tw.Run(ctx) }()
	} else {
		fmt.Fprintln(s.errOut, "Thinking...")
	}

	var onProgress func(string)
	if tw != nil {
		onProgress = tw.Update
	}
	reply, err := s.conv.Send(ctx, text, onProgress)

	if tw != nil {
		if err == nil {
			tw.Update(reply.Text)
		}
		tw.Close()
		<-done
		fmt.Fprintln(s.out)
	} else if err == nil {
		fmt.Fprint(s.out, s.md.Render(reply.Text))
	}

	switch {
	case err == nil && reply.Truncated:
		fmt.Fprintln(s.errOut, "[reply cut off]")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.errOut, "[cancelled]")
		return nil
	}
	return err
}

func (s *session) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// interrupt cancels the reply in flight, if any.
func (s *session) interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// command handles a slash command and reports whether the REPL goes on.
func (s *session) command(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/exit", "/quit":
		return false
	case "/reset":
		s.conv.Reset()
		fmt.Fprintln(s.errOut, "conversation cleared")
	case "/help":
		fmt.Fprintln(s.errOut, "/reset  start a new conversation\n/exit   leave")
	default:
		fmt.Fprintf(s.errOut, "unknown command %s (try /help)\n", input)
	}
	return true
}

func (s *session) repl(ctx context.Context, model string) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	// Ctrl+C outside the prompt cancels the reply being streamed
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			s.interrupt()
		}
	}()

	fmt.Fprintf(s.errOut, "chatting with %s; /help for commands, Ctrl+D to leave\n", model)
	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal
			fmt.Fprintln(s.errOut)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !s.command(input) {
				return nil
			}
			continue
		}

		if err := s.ask(ctx, input); err != nil {
			fmt.Fprintf(s.errOut, "[error] %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
