package typing

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAsync(t *testing.T, tw *Typewriter, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- tw.Run(ctx) }()
	return done
}

func TestTypewriter_WritesGrowingSnapshots(t *testing.T) {
	var out bytes.Buffer
	tw := New(&out, 0)
	done := runAsync(t, tw, context.Background())

	for _, s := range []string{"Hel", "Hello", "Hello wörld 🎉"} {
		tw.Update(s)
	}
	tw.Close()

	require.NoError(t, <-done)
	assert.Equal(t, "Hello wörld 🎉", out.String())
	assert.Equal(t, "Hello wörld 🎉", tw.Shown())
}

func TestTypewriter_IgnoresRollback(t *testing.T) {
	var out bytes.Buffer
	tw := New(&out, 0)

	tw.Update("abc")
	tw.Close()
	require.NoError(t, tw.Run(context.Background()))

	tw.Update("xy")
	tw.Update("ab")
	assert.Equal(t, "abc", tw.Shown())
	assert.Equal(t, "abc", out.String())
}

func TestTypewriter_Paces(t *testing.T) {
	var out bytes.Buffer
	tw := New(&out, 5*time.Millisecond)

	tw.Update("0123456789")
	tw.Close()

	start := time.Now()
	require.NoError(t, tw.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, "0123456789", out.String())
}

func TestTypewriter_StopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	tw := New(&out, time.Hour)
	tw.Update("slow")

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(t, tw, ctx)
	cancel()

	assert.Error(t, <-done)
	assert.LessOrEqual(t, len(out.String()), 1)
}

// gateWriter blocks the write of one given string until released.
type gateWriter struct {
	blockOn string
	entered chan struct{}
	release chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

func newGateWriter(blockOn string) *gateWriter {
	return &gateWriter{blockOn: blockOn, entered: make(chan struct{}), release: make(chan struct{})}
}

func (w *gateWriter) Write(p []byte) (int, error) {
	if w.blockOn != "" && string(p) == w.blockOn {
		w.blockOn = ""
		close(w.entered)
		<-w.release
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *gateWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestTypewriter_ShorterSnapshotDuringWrite(t *testing.T) {
	w := newGateWriter("\n")
	tw := New(w, 0)
	tw.Update("Hello\n")
	done := runAsync(t, tw, context.Background())

	<-w.entered
	// trimmed final text arrives while the newline is being written
	tw.Update("Hello")
	close(w.release)

	tw.Update("Hello\nmore")
	tw.Close()
	require.NoError(t, <-done)

	assert.Equal(t, "Hello\nmore", w.String())
	assert.Equal(t, "Hello\nmore", tw.Shown())
}

func TestTypewriter_LeadingRuneKeptDuringWrite(t *testing.T) {
	w := newGateWriter(" ")
	tw := New(w, 0)
	tw.Update(" Hi")
	done := runAsync(t, tw, context.Background())

	<-w.entered
	tw.Update("Hi")
	close(w.release)
	tw.Close()
	require.NoError(t, <-done)

	assert.Equal(t, " Hi", w.String())
	assert.Equal(t, " Hi", tw.Shown())
}
