package broadcast

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	// StatusDraft is the state between the administrator committing the text
	// and the dispatch task picking it up. A run that finds zero recipients
	// never leaves draft.
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// Job is one broadcast run. Counters are persisted incrementally while the
// run is in flight so progress is observable and a crash leaves recoverable
// partial state. Invariant: Sent+Failed <= Total; Total is fixed when the
// run starts and never revised.
type Job struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	AuthorID   int64          `gorm:"column:author_id;not null"`
	Body       string         `gorm:"column:body"`
	Markup     datatypes.JSON `gorm:"column:markup"`
	LangFilter string         `gorm:"column:lang_filter"` // "" = all languages
	Status     Status         `gorm:"column:status;not null;default:draft"`
	Total      int            `gorm:"column:total;not null;default:0"`
	Sent       int            `gorm:"column:sent;not null;default:0"`
	Failed     int            `gorm:"column:failed;not null;default:0"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	StartedAt  *time.Time     `gorm:"column:started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at"`
}

func (Job) TableName() string {
	return "broadcasts"
}
