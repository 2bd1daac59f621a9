package settings

import "time"

// Setting is one application-level key/value pair. Link targets shown on the
// main menu live here so the administrator can change them without a deploy.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Setting) TableName() string {
	return "app_settings"
}

// Keys of the menu links managed through the admin flow.
const (
	KeySupportURL = "support_url"
	KeyRefURL     = "ref_url"
	KeyTokenURL   = "token_url"
)

// Links is the resolved set of menu link targets.
type Links struct {
	SupportURL string `json:"support_url"`
	RefURL     string `json:"ref_url"`
	TokenURL   string `json:"token_url"`
}
