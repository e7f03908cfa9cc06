package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := NewRepo(db).Migrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSaveRun_InsertThenFinish(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	started := time.Now().Add(-2 * time.Second).UTC()
	run := &Run{
		ID:        "01TESTRUNID000000000000000",
		Model:     "openai/gpt-4o-mini",
		Status:    RunRunning,
		Turns:     3,
		StartedAt: started,
	}
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("save running: %v", err)
	}

	finished := started.Add(1500 * time.Millisecond)
	done := *run
	done.Status = RunCompleted
	done.Tokens = 12
	done.Chars = 48
	done.FinishedAt = &finished
	if err := repo.SaveRun(ctx, &done); err != nil {
		t.Fatalf("save finished: %v", err)
	}

	got, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunCompleted || got.Tokens != 12 || got.Chars != 48 || got.Turns != 3 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.FinishedAt == nil || got.Duration() != 1500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", got.Duration())
	}
}

func TestSaveRun_LateStartDoesNotOverwriteFinish(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC()
	msg := "openrouter: status: http 502: bad gateway"
	failed := &Run{
		ID:         "01TESTRUNID000000000000001",
		Model:      "m",
		Status:     RunFailed,
		Error:      &msg,
		StartedAt:  now,
		FinishedAt: &now,
	}
	if err := repo.SaveRun(ctx, failed); err != nil {
		t.Fatalf("save failed run: %v", err)
	}

	late := &Run{ID: failed.ID, Model: "m", Status: RunRunning, StartedAt: now}
	if err := repo.SaveRun(ctx, late); err != nil {
		t.Fatalf("save late start: %v", err)
	}

	got, err := repo.GetRun(ctx, failed.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunFailed || got.Error == nil || *got.Error != msg {
		t.Fatalf("finished run was overwritten: %+v", got)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	_, err := repo.GetRun(context.Background(), "missing")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListRecentRuns_NewestFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		if err := repo.SaveRun(ctx, &Run{
			ID:        fmt.Sprintf("01TESTRUNID00000000000001%d", i),
			Model:     "m",
			Status:    RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}

	runs, err := repo.ListRecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "01TESTRUNID000000000000014" || runs[2].ID != "01TESTRUNID000000000000012" {
		t.Fatalf("unexpected order: %s .. %s", runs[0].ID, runs[2].ID)
	}
}
