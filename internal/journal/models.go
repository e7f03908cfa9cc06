package journal

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunTruncated RunStatus = "truncated"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run is the metadata of one aggregation. Message content is never stored.
type Run struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	Model  string    `gorm:"type:varchar(128);not null" json:"model"`
	Status RunStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	Turns  int `gorm:"not null" json:"turns"`  // history length sent upstream
	Tokens int `gorm:"not null" json:"tokens"` // token-bearing events received
	Chars  int `gorm:"not null" json:"chars"`  // runes in the final or partial text

	// Filled when failed, truncated or cancelled
	Error *string `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time  `gorm:"index;not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Run) TableName() string { return "chat_runs" }

// Duration is zero while the run is still going.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
