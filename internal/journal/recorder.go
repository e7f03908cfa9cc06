package journal

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/common"
)

// Sink receives run snapshots: once when a run starts and once when it ends.
type Sink interface {
	Record(ctx context.Context, run *Run) error
}

const recordTimeout = 5 * time.Second

// Recorder is an ai.Streamer that journals every run of the wrapped streamer.
// Journal failures are logged and never change the outcome of a run.
type Recorder struct {
	next   ai.Streamer
	sink   Sink
	model  string
	logger *log.Logger
	now    func() time.Time
}

func NewRecorder(next ai.Streamer, sink Sink, model string, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{next: next, sink: sink, model: model, logger: logger, now: time.Now}
}

func (r *Recorder) Run(ctx context.Context, history []ai.Message, onProgress, onComplete func(string)) error {
	id, err := common.NewULID()
	if err != nil {
		r.logger.Printf("[journal] NewULID failed err=%v", err)
		return r.next.Run(ctx, history, onProgress, onComplete)
	}

	run := &Run{
		ID:        id,
		Model:     r.model,
		Status:    RunRunning,
		Turns:     len(history),
		StartedAt: r.now(),
	}
	r.record(ctx, run)

	var (
		latest    string
		completed bool
	)
	err = r.next.Run(ctx, history,
		func(text string) {
			run.Tokens++
			latest = text
			if onProgress != nil {
				onProgress(text)
			}
		},
		func(text string) {
			latest = text
			completed = true
			if onComplete != nil {
				onComplete(text)
			}
		},
	)

	finished := r.now()
	run.FinishedAt = &finished
	run.Chars = utf8.RuneCountInString(latest)
	run.Status = statusOf(err, completed)
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}
	r.record(ctx, run)

	return err
}

func statusOf(err error, completed bool) RunStatus {
	switch {
	case err == nil && completed:
		return RunCompleted
	case err == nil:
		// streamer returned without an error and without completing
		return RunTruncated
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return RunCancelled
	case errors.Is(err, ai.ErrStreamTruncated):
		return RunTruncated
	default:
		return RunFailed
	}
}

func (r *Recorder) record(ctx context.Context, run *Run) {
	// cancelled runs are journaled too
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	snapshot := *run
	if err := r.sink.Record(cctx, &snapshot); err != nil {
		r.logger.Printf("[journal] record failed run=%s status=%s err=%v", run.ID, run.Status, err)
	}
}
