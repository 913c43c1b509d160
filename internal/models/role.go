package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role 角色模型
type Role struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// 系统预定义角色
const (
	RoleAdmin     = "admin"
	RoleMember    = "member"
	RoleNonMember = "non-member" // 新注册、未审核账户的默认角色
)

// RolePermission 角色权限关联表，(role_id, permission_id) 复合主键保证不重复
type RolePermission struct {
	RoleID       uint      `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	PermissionID uint      `gorm:"primaryKey;autoIncrement:false" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleAudit 角色变更审计
type RoleAudit struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RoleID      uint           `gorm:"not null;index" json:"role_id"`
	ActorID     uint           `gorm:"not null" json:"actor_id"`
	Action      string         `gorm:"size:32;not null" json:"action"`
	Permissions datatypes.JSON `json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
}

// 审计动作
const (
	AuditRoleCreated        = "role_created"
	AuditRolePermissionsSet = "permissions_set"
)
