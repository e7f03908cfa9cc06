package journal

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Run{})
}

// SaveRun inserts the run or overwrites the stored row with the same ID.
// Queue deliveries can repeat or arrive out of order, so a running snapshot
// never replaces a row that already exists.
func (r *Repo) SaveRun(ctx context.Context, run *Run) error {
	conflict := clause.OnConflict{UpdateAll: true}
	if run.Status == RunRunning {
		conflict = clause.OnConflict{DoNothing: true}
	}
	return r.db.WithContext(ctx).
		Clauses(conflict).
		Create(run).Error
}

func (r *Repo) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecentRuns returns runs newest first.
func (r *Repo) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []Run
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Record makes Repo a Sink.
func (r *Repo) Record(ctx context.Context, run *Run) error {
	return r.SaveRun(ctx, run)
}
