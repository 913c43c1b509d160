package services

import (
	"context"

	"keeper/internal/rbac"
	"keeper/pkg/pagination"
)

// RoleStore 角色存储
type RoleStore interface {
	Roles() []rbac.RoleView
	Role(id uint) (rbac.RoleView, bool)
	Catalog() *rbac.Catalog
	CreateRole(ctx context.Context, actorID uint, name, description string, actions []string) (rbac.RoleView, error)
	SetRolePermissions(ctx context.Context, actorID, roleID uint, actions []string) (rbac.RoleView, error)
}

var _ RoleStore = (*rbac.Store)(nil)

type RoleService struct {
	store RoleStore
}

func NewRoleService(store RoleStore) *RoleService {
	return &RoleService{store: store}
}

// List 分页列出角色
func (s *RoleService) List(p pagination.PageParams) ([]rbac.RoleView, *pagination.PageInfo) {
	return pagination.Slice(s.store.Roles(), p)
}

// GetByID 根据ID获取角色
func (s *RoleService) GetByID(id uint) (rbac.RoleView, error) {
	role, ok := s.store.Role(id)
	if !ok {
		return rbac.RoleView{}, rbac.ErrRoleNotFound
	}
	return role, nil
}

// Create 创建角色
func (s *RoleService) Create(ctx context.Context, actorID uint, name, description string, actions []string) (rbac.RoleView, error) {
	return s.store.CreateRole(ctx, actorID, name, description, actions)
}

// SetPermissions 替换角色权限
func (s *RoleService) SetPermissions(ctx context.Context, actorID, roleID uint, actions []string) (rbac.RoleView, error) {
	return s.store.SetRolePermissions(ctx, actorID, roleID, actions)
}

// ListPermissions 分页列出权限目录
func (s *RoleService) ListPermissions(p pagination.PageParams) ([]rbac.PermissionSpec, *pagination.PageInfo) {
	return pagination.Slice(s.store.Catalog().Entries(), p)
}
