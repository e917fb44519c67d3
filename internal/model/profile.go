package model

// 权限位,与宿主系统保持一致
const (
	RightRead    = 1
	RightUpdate  = 2
	RightCreate  = 4
	RightPurge   = 16
	RightReadAll = 1024
)

// 预定义权限名
const (
	RightNameAnswer = "plugin_semantics_answer"
	RightNameConfig = "plugin_semantics_config"
	RightNameTicket = "ticket"
)

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	ProfileID uint   `gorm:"index" json:"profiles_id"`
	EntityID  uint   `json:"entities_id"`
}

type ProfileRight struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProfileID uint   `gorm:"uniqueIndex:idx_profile_right;not null" json:"profiles_id"`
	Name      string `gorm:"size:100;uniqueIndex:idx_profile_right;not null" json:"name"`
	Rights    int    `gorm:"default:0" json:"rights"`
}
