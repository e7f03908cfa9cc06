package journal

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
)

type memorySink struct {
	runs []Run
	err  error
}

func (s *memorySink) Record(ctx context.Context, run *Run) error {
	_ = ctx
	s.runs = append(s.runs, *run)
	return s.err
}

type fakeStreamer struct {
	tokens []string
	final  string
	err    error
}

func (f *fakeStreamer) Run(ctx context.Context, history []ai.Message, onProgress, onComplete func(string)) error {
	_ = history
	acc := ""
	for _, tok := range f.tokens {
		acc += tok
		onProgress(acc)
	}
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	onComplete(f.final)
	return nil
}

var twoTurns = []ai.Message{
	{Role: ai.RoleUser, Content: "hi"},
	{Role: ai.RoleAssistant, Content: "hello"},
	{Role: ai.RoleUser, Content: "ideas?"},
}

func TestRecorder_CompletedRun(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder(&fakeStreamer{tokens: []string{"ab", "c "}, final: "abc"}, sink, "m", nil)

	var progress []string
	var final string
	err := rec.Run(context.Background(), twoTurns,
		func(s string) { progress = append(progress, s) },
		func(s string) { final = s },
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(progress) != 2 || progress[1] != "abc " || final != "abc" {
		t.Fatalf("callbacks not forwarded: %q %q", progress, final)
	}

	if len(sink.runs) != 2 {
		t.Fatalf("expected start and finish records, got %d", len(sink.runs))
	}
	start, end := sink.runs[0], sink.runs[1]
	if start.Status != RunRunning || start.ID == "" || start.Turns != 3 || start.FinishedAt != nil {
		t.Fatalf("unexpected start record: %+v", start)
	}
	if end.ID != start.ID || end.Status != RunCompleted || end.Tokens != 2 || end.Chars != 3 || end.Model != "m" {
		t.Fatalf("unexpected finish record: %+v", end)
	}
	if end.FinishedAt == nil || end.Error != nil {
		t.Fatalf("unexpected finish record: %+v", end)
	}
}

func TestRecorder_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RunStatus
	}{
		{"truncated", &ai.TruncatedError{Partial: "x"}, RunTruncated},
		{"transport", &ai.TransportError{Op: "status", StatusCode: 502}, RunFailed},
		{"cancelled", context.Canceled, RunCancelled},
		{"deadline", context.DeadlineExceeded, RunCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memorySink{}
			rec := NewRecorder(&fakeStreamer{tokens: []string{"x"}, err: tt.err}, sink, "m", nil)

			err := rec.Run(context.Background(), twoTurns, nil, nil)
			if !errors.Is(err, tt.err) {
				t.Fatalf("error not passed through: %v", err)
			}
			end := sink.runs[len(sink.runs)-1]
			if end.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, end.Status)
			}
			if end.Error == nil || *end.Error != tt.err.Error() {
				t.Fatalf("expected error message, got %v", end.Error)
			}
		})
	}
}

func TestRecorder_SinkFailureIsLoggedOnly(t *testing.T) {
	var logs bytes.Buffer
	sink := &memorySink{err: errors.New("queue down")}
	rec := NewRecorder(&fakeStreamer{tokens: []string{"ok"}, final: "ok"}, sink, "m", log.New(&logs, "", 0))

	var final string
	if err := rec.Run(context.Background(), twoTurns, nil, func(s string) { final = s }); err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if final != "ok" {
		t.Fatalf("unexpected final %q", final)
	}
	if strings.Count(logs.String(), "record failed") != 2 {
		t.Fatalf("expected two logged failures, got %q", logs.String())
	}
}

func TestRecorder_WritesThroughRepo(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	rec := NewRecorder(&fakeStreamer{tokens: []string{"héllo"}, final: "héllo"}, repo, "m", nil)

	if err := rec.Run(context.Background(), twoTurns, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	runs, err := repo.ListRecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != RunCompleted || runs[0].Chars != 5 {
		t.Fatalf("unexpected journal: %+v", runs)
	}
}
