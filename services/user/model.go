package user

import "time"

// User is a recipient addressable by the messaging platform. Rows are never
// deleted; unreachable recipients are flagged blocked instead.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Username  string    `gorm:"column:username"`
	FirstName string    `gorm:"column:first_name"`
	LastName  string    `gorm:"column:last_name"`
	Lang      string    `gorm:"column:lang;not null;default:ru"`
	RefCode   string    `gorm:"column:ref_code"`
	Blocked   bool      `gorm:"column:blocked;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
