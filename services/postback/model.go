package postback

import (
	"time"

	"gorm.io/datatypes"
)

// Postback is one recorded conversion event. Rows are append-only: the
// affiliate network may retry the same notification and each retry lands
// as its own row.
type Postback struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID may be 0 when the payload carried no recognizable recipient.
	UserID    int64          `gorm:"column:user_id;not null;index"`
	EventType Event          `gorm:"column:event_type;not null"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (Postback) TableName() string {
	return "postbacks"
}
