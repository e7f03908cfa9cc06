package ai

import (
	"context"
	"iter"
	"sync/atomic"
)

// Streamer runs one aggregation. *Client implements it; decorators such as
// the run journal wrap it.
type Streamer interface {
	Run(ctx context.Context, history []Message, onProgress, onComplete func(string)) error
}

// Update is a snapshot of the reply. Text is always the full accumulated
// text, never a delta. Done marks the final, trimmed snapshot.
type Update struct {
	Text string
	Done bool
}

// Updates exposes s as a lazy sequence of snapshots. The sequence is single
// pass: breaking out of the loop cancels the request and ranging over it a
// second time yields ErrStreamConsumed. A failed run yields its error last.
func Updates(ctx context.Context, s Streamer, history []Message) iter.Seq2[Update, error] {
	var used atomic.Bool
	return func(yield func(Update, error) bool) {
		if used.Swap(true) {
			yield(Update{}, ErrStreamConsumed)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		emit := func(u Update) {
			if stopped {
				return
			}
			if !yield(u, nil) {
				stopped = true
				cancel()
			}
		}
		err := s.Run(ctx, history,
			func(text string) { emit(Update{Text: text}) },
			func(text string) { emit(Update{Text: text, Done: true}) },
		)
		if stopped || err == nil {
			return
		}
		yield(Update{}, err)
	}
}

// StreamChat runs s on its own goroutine and hands snapshots over a channel.
// Both channels are closed when the run ends; errs carries at most one value.
func StreamChat(ctx context.Context, s Streamer, history []Message) (<-chan Update, <-chan error) {
	updates := make(chan Update, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(updates)

		send := func(u Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		}
		err := s.Run(ctx, history,
			func(text string) { send(Update{Text: text}) },
			func(text string) { send(Update{Text: text, Done: true}) },
		)
		if err != nil {
			errs <- err
		}
	}()

	return updates, errs
}

// Collect runs s and returns the final text.
func Collect(ctx context.Context, s Streamer, history []Message) (string, error) {
	var final string
	err := s.Run(ctx, history, nil, func(text string) { final = text })
	if err != nil {
		return "", err
	}
	return final, nil
}

func (c *Client) Updates(ctx context.Context, history []Message) iter.Seq2[Update, error] {
	return Updates(ctx, c, history)
}

func (c *Client) StreamChat(ctx context.Context, history []Message) (<-chan Update, <-chan error) {
	return StreamChat(ctx, c, history)
}

// Chat is the non-incremental form of Run.
func (c *Client) Chat(ctx context.Context, history []Message) (string, error) {
	return Collect(ctx, c, history)
}
