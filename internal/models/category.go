package models

// Category 帖子分类，ID为1的分类是公告
type Category struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}
