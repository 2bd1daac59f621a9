package profile

import "time"

// UserProfile is the partner questionnaire filled in from the mini app.
type UserProfile struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FullName  string    `json:"full_name" gorm:"size:100"`
	AccountID string    `json:"account_id" gorm:"size:80"`
	TgHandle  string    `json:"tg_handle" gorm:"size:64"`
	Geo       string    `json:"geo" gorm:"size:12"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
