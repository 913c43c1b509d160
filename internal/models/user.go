package models

import (
	"golang.org/x/crypto/bcrypt"
)

// User 用户模型，网关只通过令牌声明间接使用 RoleID
type User struct {
	BaseModel
	Email        string `json:"email" gorm:"uniqueIndex;not null;size:100"`
	StudentID    string `json:"student_id" gorm:"uniqueIndex;not null;size:32"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	Name         string `json:"name" gorm:"not null;size:100"`
	Major        string `json:"major" gorm:"size:100"`
	Class        string `json:"class" gorm:"size:20"`
	Status       string `json:"status" gorm:"default:'pending_approval';size:20;not null"`
	RoleID       uint   `json:"role_id" gorm:"not null;index"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusPendingApproval = "pending_approval"
	UserStatusActive          = "active"
	UserStatusInactive        = "inactive"
)

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsActive 是否已审核通过
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
