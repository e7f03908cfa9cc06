package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
)

var ErrEmptyMessage = errors.New("chat: message is empty")

const defaultWindowSize = 20

// Reply is the assistant's answer to one Send.
type Reply struct {
	Text string
	// Truncated is set when the stream ended before the model finished.
	// Text then holds whatever arrived.
	Truncated bool
}

// Conversation keeps the turns of one chat in memory and forwards the most
// recent ones to the streamer on every Send.
type Conversation struct {
	streamer          ai.Streamer
	systemPrompt      string
	contextWindowSize int

	// send serializes Send calls; mu guards turns.
	send  sync.Mutex
	mu    sync.Mutex
	turns []ai.Message
}

func NewConversation(streamer ai.Streamer, systemPrompt string, contextWindowSize int) *Conversation {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = defaultWindowSize
	}
	return &Conversation{
		streamer:          streamer,
		systemPrompt:      strings.TrimSpace(systemPrompt),
		contextWindowSize: contextWindowSize,
	}
}

// Send appends the user turn and streams the assistant reply. onProgress
// receives the full reply text so far.
//
// On completion the trimmed reply is appended. On truncation the partial
// reply is appended and returned with Truncated set. On any other error the
// user turn stays and no assistant turn is added.
func (c *Conversation) Send(ctx context.Context, text string, onProgress func(string)) (Reply, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return Reply{}, ErrEmptyMessage
	}

	c.send.Lock()
	defer c.send.Unlock()

	c.mu.Lock()
	c.turns = append(c.turns, ai.Message{Role: ai.RoleUser, Content: content})
	history := c.contextLocked()
	c.mu.Unlock()

	var (
		latest    string
		final     string
		completed bool
	)
	err := c.streamer.Run(ctx, history,
		func(s string) {
			latest = s
			if onProgress != nil {
				onProgress(s)
			}
		},
		func(s string) {
			final = s
			completed = true
		},
	)

	var truncated *ai.TruncatedError
	switch {
	case err == nil && completed:
		c.appendAssistant(final)
		return Reply{Text: final}, nil
	case errors.As(err, &truncated):
		partial := strings.TrimSpace(truncated.Partial)
		c.appendAssistant(partial)
		return Reply{Text: partial, Truncated: true}, nil
	case err == nil:
		// the streamer gave up without an error or a final text
		partial := strings.TrimSpace(latest)
		c.appendAssistant(partial)
		return Reply{Text: partial, Truncated: true}, nil
	default:
		return Reply{}, err
	}
}

// History returns a copy of every turn, oldest first. The system prompt is
// not included.
func (c *Conversation) History() []ai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ai.Message(nil), c.turns...)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Reset forgets every turn. The system prompt stays.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}

func (c *Conversation) appendAssistant(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	c.turns = append(c.turns, ai.Message{Role: ai.RoleAssistant, Content: text})
	c.mu.Unlock()
}

// contextLocked builds the provider messages: system prompt first, then the
// last contextWindowSize turns. Caller holds mu.
func (c *Conversation) contextLocked() []ai.Message {
	recent := c.turns
	if len(recent) > c.contextWindowSize {
		recent = recent[len(recent)-c.contextWindowSize:]
	}

	msgs := make([]ai.Message, 0, len(recent)+1)
	if c.systemPrompt != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: c.systemPrompt})
	}
	return append(msgs, recent...)
}
