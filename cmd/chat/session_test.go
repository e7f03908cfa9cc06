package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/chat"
	"github.com/suPer8Hu/brainstorm-chat/internal/render"
)

type scriptStreamer struct {
	progress []string
	complete bool
	err      error
	calls    int
}

func (s *scriptStreamer) Run(ctx context.Context, history []ai.Message, onProgress, onComplete func(string)) error {
	s.calls++
	for _, p := range s.progress {
		if err := ctx.Err(); err != nil {
			return err
		}
		onProgress(p)
	}
	if s.complete && len(s.progress) > 0 {
		onComplete(s.progress[len(s.progress)-1])
	}
	return s.err
}

func newSession(s ai.Streamer) (*session, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &session{
		conv:   chat.NewConversation(s, "", 20),
		out:    &out,
		errOut: &errOut,
	}, &out, &errOut
}

func TestAsk_TypesReply(t *testing.T) {
	s, out, _ := newSession(&scriptStreamer{progress: []string{"Hel", "Hello!"}, complete: true})

	require.NoError(t, s.ask(context.Background(), "hi"))
	assert.Equal(t, "Hello!\n", out.String())
	assert.Equal(t, 2, s.conv.Len())
}

func TestAsk_Truncated(t *testing.T) {
	s, out, errOut := newSession(&scriptStreamer{
		progress: []string{"Half"},
		err:      &ai.TruncatedError{Partial: "Half"},
	})

	require.NoError(t, s.ask(context.Background(), "hi"))
	assert.Equal(t, "Half\n", out.String())
	assert.Contains(t, errOut.String(), "cut off")
}

func TestAsk_Cancelled(t *testing.T) {
	s, _, errOut := newSession(&scriptStreamer{progress: []string{"x"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.ask(ctx, "hi"))
	assert.Contains(t, errOut.String(), "cancelled")
	assert.Equal(t, 1, s.conv.Len())
}

func TestAsk_Markdown(t *testing.T) {
	s, out, _ := newSession(&scriptStreamer{progress: []string{"# Title"}, complete: true})
	md, err := render.NewTerminal(80, false)
	require.NoError(t, err)
	s.md = md

	require.NoError(t, s.ask(context.Background(), "hi"))
	assert.Contains(t, out.String(), "Title")
}

func TestCommand(t *testing.T) {
	st := &scriptStreamer{progress: []string{"ok"}, complete: true}
	s, _, errOut := newSession(st)
	require.NoError(t, s.ask(context.Background(), "hi"))

	assert.True(t, s.command("/reset"))
	assert.Equal(t, 0, s.conv.Len())
	assert.True(t, s.command("/nope"))
	assert.Contains(t, errOut.String(), "unknown command")
	assert.False(t, s.command("/exit"))
}

func TestInterrupt(t *testing.T) {
	s, _, _ := newSession(&scriptStreamer{})
	assert.False(t, s.interrupt())

	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	assert.True(t, s.interrupt())
	assert.Error(t, ctx.Err())
}
