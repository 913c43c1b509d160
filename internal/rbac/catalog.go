// Package rbac 权限目录、角色存储与权限检查，供处理器做细粒度授权
package rbac

import (
	"sort"

	apperrors "keeper/pkg/errors"
)

// PermissionSpec 权限目录条目
type PermissionSpec struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Catalog 不可变的有序权限集合
type Catalog struct {
	entries []PermissionSpec
	index   map[string]int
}

// NewCatalog 创建权限目录，重复项保留首次出现的位置
func NewCatalog(entries []PermissionSpec) *Catalog {
	c := &Catalog{
		entries: make([]PermissionSpec, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := c.index[e.Action]; dup {
			continue
		}
		c.index[e.Action] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

// Entries 按定义顺序返回目录副本
func (c *Catalog) Entries() []PermissionSpec {
	out := make([]PermissionSpec, len(c.entries))
	copy(out, c.entries)
	return out
}

// Actions 按定义顺序返回全部权限名
func (c *Catalog) Actions() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Action
	}
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// Contains 权限是否在目录中
func (c *Catalog) Contains(action string) bool {
	_, ok := c.index[action]
	return ok
}

// Lookup 查找权限条目
func (c *Catalog) Lookup(action string) (PermissionSpec, bool) {
	i, ok := c.index[action]
	if !ok {
		return PermissionSpec{}, false
	}
	return c.entries[i], true
}

// Resolve 按目录校验权限名，去重后按目录顺序返回
// 存在未知权限时返回列出全部未知项的 *ConfigurationError
func (c *Catalog) Resolve(actions []string) ([]string, error) {
	seen := make(map[string]struct{}, len(actions))
	var unknown []string
	for _, a := range actions {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		if !c.Contains(a) {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &apperrors.ConfigurationError{Op: "resolve permissions", Unknown: unknown}
	}

	resolved := make([]string, 0, len(seen))
	for _, e := range c.entries {
		if _, ok := seen[e.Action]; ok {
			resolved = append(resolved, e.Action)
		}
	}
	return resolved, nil
}

// DefaultCatalog 社团权限目录，按业务分组
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultPermissions)
}

var defaultPermissions = []PermissionSpec{
	// 用户
	{"view_pending_users", "View users pending approval"},
	{"approve_users", "Approve or reject user registrations"},
	{"view_all_users", "View all users"},
	{"view_user_details", "View detailed user information"},
	{"update_user", "Update user information"},
	{"delete_user", "Delete users"},

	// 角色
	{"view_roles", "View all roles"},
	{"create_role", "Create new roles"},
	{"update_role", "Update role details and permissions"},
	{"delete_role", "Delete roles"},
	{"transfer_role", "Transfer roles between users"},

	// 帖子
	{"create_post", "Create new posts"},
	{"edit_own_post", "Edit own posts"},
	{"edit_any_post", "Edit any post"},
	{"delete_own_post", "Delete own posts"},
	{"delete_any_post", "Delete any post"},
	{"view_posts", "View posts"},

	// 评论
	{"create_comment", "Create comments"},
	{"view_comments", "View comments"},
	{"edit_own_comment", "Edit own comments"},
	{"edit_any_comment", "Edit any comment"},
	{"delete_own_comment", "Delete own comments"},
	{"delete_any_comment", "Delete any comment"},

	// 分类
	{"view_categories", "View categories"},
	{"create_category", "Create new categories"},
	{"update_category", "Update categories"},
	{"delete_category", "Delete categories"},

	// 图书
	{"view_books", "View book list"},
	{"manage_books", "Add, edit, and delete books"},
	{"borrow_book", "Borrow books"},
	{"return_book", "Return borrowed books"},

	// 会费
	{"view_fees", "View all fees"},
	{"manage_fees", "Create and update fees"},
	{"view_own_fees", "View own fee records"},
	{"pay_fee", "Pay fees"},

	// 活动
	{"view_events", "View events"},
	{"manage_events", "Create, edit, and delete events"},

	// 考勤
	{"view_attendance", "View attendance records"},
	{"manage_attendance", "Manage attendance"},
	{"check_in", "Check in for events"},
	{"view_own_attendance", "View own attendance"},

	// 评估
	{"view_evaluations", "View all evaluations"},
	{"manage_evaluations", "Create/edit evaluations"},
	{"view_own_evaluations", "View own evaluations"},

	// 文件
	{"upload_file", "Upload files"},
	{"view_files", "View all files"},
	{"view_own_files", "View own files"},
	{"delete_own_file", "Delete own files"},
	{"delete_any_file", "Delete any file"},
	{"download_file", "Download files"},

	// 奖项
	{"view_all_awards", "View all users' awards"},
	{"view_awards", "View awards"},
	{"view_own_awards", "View own awards"},
	{"create_own_award", "Create own award"},
	{"update_own_award", "Update own award"},
	{"delete_own_award", "Delete own award"},
	{"create_any_award", "Create award for any user"},
	{"update_any_award", "Update any user's award"},
	{"delete_any_award", "Delete any user's award"},

	// 教育
	{"view_all_education", "View all education records"},
	{"view_education", "View education"},
	{"view_own_education", "View own education"},
	{"create_own_education", "Create own education"},
	{"update_own_education", "Update own education"},
	{"delete_own_education", "Delete own education"},
	{"create_any_education", "Create for any user"},
	{"update_any_education", "Update any user's education"},
	{"delete_any_education", "Delete any user's education"},

	// 值日
	{"view_cleanings", "View cleaning schedules"},
	{"create_cleanings", "Create cleaning schedules"},
	{"update_cleanings", "Update cleaning schedules"},
	{"delete_cleanings", "Delete cleaning schedules"},
}
