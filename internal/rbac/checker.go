package rbac

import (
	"fmt"

	apperrors "keeper/pkg/errors"
)

// Checker 判断角色是否拥有某项权限
type Checker interface {
	Has(roleID uint, action string) bool
}

var _ Checker = (*Store)(nil)

// Require 角色缺少权限时返回 ErrPermissionDenied
func Require(c Checker, roleID uint, action string) error {
	if c.Has(roleID, action) {
		return nil
	}
	return fmt.Errorf("role %d lacks %s: %w", roleID, action, apperrors.ErrPermissionDenied)
}
