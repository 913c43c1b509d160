package rbac

import (
	"errors"

	"keeper/internal/models"
	apperrors "keeper/pkg/errors"
)

// RoleSpec 种子角色定义，AllPermissions 表示授予全部权限
type RoleSpec struct {
	Name           string
	Description    string
	AllPermissions bool
	Actions        []string
}

// DefaultRoleName 新注册待审核账号的默认角色
const DefaultRoleName = models.RoleNonMember

var memberActions = []string{
	"create_post", "edit_own_post", "delete_own_post",
	"create_comment", "view_posts", "view_comments",
	"view_categories", "view_books", "borrow_book", "return_book",
	"view_own_fees", "pay_fee", "view_events", "check_in",
	"view_own_attendance", "view_own_evaluations",
	"upload_file", "view_own_files", "delete_own_file", "download_file",
	"view_own_awards", "create_own_award", "update_own_award", "delete_own_award",
	"view_own_education", "create_own_education",
	"update_own_education", "delete_own_education",
}

var nonMemberActions = []string{
	"view_posts", "view_comments", "view_categories",
	"view_books", "view_events", "view_awards", "view_education",
}

// DefaultRoles 返回三个种子角色
func DefaultRoles() []RoleSpec {
	return []RoleSpec{
		{Name: models.RoleAdmin, Description: "Administrator with full permissions", AllPermissions: true},
		{Name: models.RoleMember, Description: "Regular member", Actions: append([]string(nil), memberActions...)},
		{Name: models.RoleNonMember, Description: "Non-member with limited access", Actions: append([]string(nil), nonMemberActions...)},
	}
}

// ResolveRole 返回角色定义授予的权限
func ResolveRole(catalog *Catalog, role RoleSpec) ([]string, error) {
	if role.AllPermissions {
		return catalog.Actions(), nil
	}
	actions, err := catalog.Resolve(role.Actions)
	if err != nil {
		var cfgErr *apperrors.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, &apperrors.ConfigurationError{Op: "role " + role.Name, Unknown: cfgErr.Unknown}
		}
		return nil, err
	}
	return actions, nil
}
