package models

// Permission 权限模型，action 全局唯一，来自固定权限目录
type Permission struct {
	BaseModel
	Action      string `gorm:"uniqueIndex;size:64;not null" json:"action"` // 如 "create_post"
	Description string `gorm:"size:255" json:"description"`
}
