package model

import "time"

// Ticket 宿主系统的工单,这里只保留生成回答需要的字段
type Ticket struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Content     string    `gorm:"type:text" json:"content"`
	EntityID    uint      `gorm:"index" json:"entities_id"`
	RequesterID uint      `gorm:"index" json:"users_id_recipient"`
	CreatedAt   time.Time `json:"date_creation"`
	UpdatedAt   time.Time `json:"date_mod"`
}
