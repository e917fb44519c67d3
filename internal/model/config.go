package model

import "time"

// ConfigID 配置表只有一行
const ConfigID = 1

type Config struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	URLAPI             string    `gorm:"size:500" json:"url_api"`
	OrganizationID     string    `gorm:"size:255" json:"organization_id"`
	AppID              string    `gorm:"size:255" json:"app_id"`
	APIKey             string    `gorm:"type:text" json:"api_key"`
	IsStreamingEnabled bool      `gorm:"default:false" json:"is_streaming_enabled"`
	CreatedAt          time.Time `json:"date_creation"`
	UpdatedAt          time.Time `json:"date_mod"`
}

// ConfigLog 配置修改历史
type ConfigLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Field     string    `gorm:"size:100;not null" json:"field"`
	OldValue  string    `gorm:"type:text" json:"old_value"`
	NewValue  string    `gorm:"type:text" json:"new_value"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
