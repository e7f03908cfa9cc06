// Package typing reveals a growing reply one character at a time.
package typing

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause between two revealed characters.
const DefaultDelay = 20 * time.Millisecond

// Typewriter writes the runes of its target text to w at a steady pace. The
// target only ever grows: Update feeds it the full-text snapshots produced by
// an aggregation.
type Typewriter struct {
	w       io.Writer
	limiter *rate.Limiter

	mu     sync.Mutex
	target []rune
	shown  int
	// writing is set while target[shown] is being written.
	writing bool
	closed  bool
	wake    chan struct{}
}

// New returns a Typewriter pausing delay between runes. A delay of zero or
// less writes as fast as updates arrive.
func New(w io.Writer, delay time.Duration) *Typewriter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Typewriter{
		w:       w,
		limiter: rate.NewLimiter(limit, 1),
		wake:    make(chan struct{}, 1),
	}
}

// Update replaces the target with snapshot. A snapshot that does not extend
// the text already written, or being written, is ignored.
func (t *Typewriter) Update(snapshot string) {
	next := []rune(snapshot)
	t.mu.Lock()
	keep := t.shown
	if t.writing {
		keep++
	}
	if runesHavePrefix(next, t.target[:keep]) {
		t.target = next
	}
	t.mu.Unlock()
	t.signal()
}

// Close tells Run to return once the current target has been written.
func (t *Typewriter) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.signal()
}

// Shown returns the text written so far.
func (t *Typewriter) Shown() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.target[:t.shown])
}

// Run writes until the Typewriter is closed and caught up, ctx is done, or
// the writer fails.
func (t *Typewriter) Run(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.shown < len(t.target) {
			r := t.target[t.shown]
			t.writing = true
			t.mu.Unlock()

			err := t.limiter.Wait(ctx)
			if err == nil {
				_, err = io.WriteString(t.w, string(r))
			}

			// Update keeps target[shown] in place while writing is set
			t.mu.Lock()
			t.writing = false
			if err == nil {
				t.shown++
			}
			t.mu.Unlock()
			if err != nil {
				return err
			}
			continue
		}
		closed := t.closed
		t.mu.Unlock()

		if closed {
			return nil
		}
		select {
		case <-t.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Typewriter) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func runesHavePrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
