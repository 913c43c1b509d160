package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"keeper/internal/models"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoleExists      = errors.New("rbac: role already exists")
	ErrRoleNotFound    = errors.New("rbac: role not found")
	ErrInvalidRoleName = errors.New("rbac: role name required")
)

// RoleView 当前快照中角色的只读视图
type RoleView struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type roleEntry struct {
	view    RoleView
	actions map[string]struct{}
}

// 快照发布后不再修改
type snapshot struct {
	byID   map[uint]*roleEntry
	byName map[string]uint
	order  []uint
}

// Notifier 向其它进程广播角色变更
type Notifier interface {
	Publish(ctx context.Context, roleID uint) error
}

// Reloader 从存储重建内存状态
type Reloader interface {
	Load(ctx context.Context) error
}

// Store 角色及其权限集合的内存视图，以数据库为准
// 读取不加锁，写入后发布新快照
type Store struct {
	db       *gorm.DB
	catalog  *Catalog
	notifier Notifier

	current atomic.Pointer[snapshot]
	loadMu  sync.Mutex
}

// StoreOption Store 配置项
type StoreOption func(*Store)

// WithNotifier 每次角色变更后发布失效通知
func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		s.notifier = n
	}
}

func NewStore(db *gorm.DB, catalog *Catalog, opts ...StoreOption) *Store {
	s := &Store{db: db, catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&snapshot{byID: map[uint]*roleEntry{}, byName: map[string]uint{}})
	return s
}

func (s *Store) Catalog() *Catalog { return s.catalog }

// Load 从数据库重建快照
func (s *Store) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
		return fmt.Errorf("load roles: %w", err)
	}

	next := &snapshot{
		byID:   make(map[uint]*roleEntry, len(roles)),
		byName: make(map[string]uint, len(roles)),
		order:  make([]uint, 0, len(roles)),
	}
	for _, r := range roles {
		entry := &roleEntry{
			view: RoleView{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				Permissions: make([]string, 0, len(r.Permissions)),
			},
			actions: make(map[string]struct{}, len(r.Permissions)),
		}
		for _, p := range r.Permissions {
			entry.actions[p.Action] = struct{}{}
		}
		// 按目录顺序保证列表稳定
		for _, a := range s.catalog.Actions() {
			if _, ok := entry.actions[a]; ok {
				entry.view.Permissions = append(entry.view.Permissions, a)
			}
		}
		next.byID[r.ID] = entry
		next.byName[r.Name] = r.ID
		next.order = append(next.order, r.ID)
	}

	s.current.Store(next)
	logger.GetLogger().WithField("roles", len(roles)).Debug("role snapshot loaded")
	return nil
}

// Has 角色是否拥有权限，未知角色一律拒绝
func (s *Store) Has(roleID uint, action string) bool {
	entry, ok := s.current.Load().byID[roleID]
	if !ok {
		return false
	}
	_, ok = entry.actions[action]
	return ok
}

// Role 按 ID 从快照获取角色
func (s *Store) Role(id uint) (RoleView, bool) {
	entry, ok := s.current.Load().byID[id]
	if !ok {
		return RoleView{}, false
	}
	return copyView(entry.view), true
}

// RoleByName 按名称从快照获取角色
func (s *Store) RoleByName(name string) (RoleView, bool) {
	snap := s.current.Load()
	id, ok := snap.byName[name]
	if !ok {
		return RoleView{}, false
	}
	return copyView(snap.byID[id].view), true
}

// Roles 按 ID 顺序列出全部角色
func (s *Store) Roles() []RoleView {
	snap := s.current.Load()
	out := make([]RoleView, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, copyView(snap.byID[id].view))
	}
	return out
}

func copyView(v RoleView) RoleView {
	v.Permissions = append([]string(nil), v.Permissions...)
	return v
}

// CreateRole 创建角色并绑定权限
func (s *Store) CreateRole(ctx context.Context, actorID uint, name, description string, actions []string) (RoleView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoleView{}, ErrInvalidRoleName
	}
	resolved, err := s.catalog.Resolve(actions)
	if err != nil {
		return RoleView{}, err
	}

	role := models.Role{Name: name, Description: strings.TrimSpace(description)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoleExists
		}
		if err := attachPermissions(tx, role.ID, resolved); err != nil {
			return err
		}
		return writeAudit(tx, role.ID, actorID, models.AuditRoleCreated, resolved)
	})
	if err != nil {
		return RoleView{}, err
	}

	s.afterMutation(ctx, role.ID)
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"role":        name,
		"actor_id":    actorID,
		"permissions": len(resolved),
	}).Info("role created")
	return RoleView{ID: role.ID, Name: role.Name, Description: role.Description, Permissions: resolved}, nil
}

// SetRolePermissions 替换已有角色的权限集合
func (s *Store) SetRolePermissions(ctx context.Context, actorID, roleID uint, actions []string) (RoleView, error) {
	resolved, err := s.catalog.Resolve(actions)
	if err != nil {
		return RoleView{}, err
	}

	var role models.Role
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := attachPermissions(tx, roleID, resolved); err != nil {
			return err
		}
		return writeAudit(tx, roleID, actorID, models.AuditRolePermissionsSet, resolved)
	})
	if err != nil {
		return RoleView{}, err
	}

	s.afterMutation(ctx, roleID)
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"role":        role.Name,
		"actor_id":    actorID,
		"permissions": len(resolved),
	}).Info("role permissions replaced")
	return RoleView{ID: role.ID, Name: role.Name, Description: role.Description, Permissions: resolved}, nil
}

// FindOrCreateDefaultRole 按名称解析角色 ID，不存在时创建
// 并发调用依靠名称唯一约束收敛到同一行
func (s *Store) FindOrCreateDefaultRole(ctx context.Context, name string) (uint, error) {
	if view, ok := s.RoleByName(name); ok {
		return view.ID, nil
	}

	db := s.db.WithContext(ctx)
	role := models.Role{Name: name, Description: "Default role"}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&role)
	if res.Error != nil {
		return 0, &apperrors.ConfigurationError{Op: "create default role " + name, Err: res.Error}
	}

	var found models.Role
	if err := db.Where("name = ?", name).First(&found).Error; err != nil {
		return 0, &apperrors.ConfigurationError{Op: "resolve default role " + name, Err: err}
	}

	if res.RowsAffected > 0 {
		logger.FromContext(ctx).WithField("role", name).Warn("default role was missing and has been created without permissions")
		s.afterMutation(ctx, found.ID)
	}
	return found.ID, nil
}

func (s *Store) afterMutation(ctx context.Context, roleID uint) {
	if err := s.Load(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Error("reload role snapshot after mutation")
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, roleID); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("role_id", roleID).Warn("publish role invalidation")
	}
}

// attachPermissions 为角色绑定权限，已存在的关联忽略
func attachPermissions(tx *gorm.DB, roleID uint, actions []string) error {
	if len(actions) == 0 {
		return nil
	}

	var perms []models.Permission
	if err := tx.Where("action IN ?", actions).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) != len(actions) {
		found := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			found[p.Action] = struct{}{}
		}
		var missing []string
		for _, a := range actions {
			if _, ok := found[a]; !ok {
				missing = append(missing, a)
			}
		}
		return &apperrors.ConfigurationError{Op: "permissions not seeded", Unknown: missing}
	}

	links := make([]models.RolePermission, 0, len(perms))
	for _, p := range perms {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: p.ID})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(links, 100).Error
}

func writeAudit(tx *gorm.DB, roleID, actorID uint, action string, actions []string) error {
	payload, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	return tx.Create(&models.RoleAudit{
		RoleID:      roleID,
		ActorID:     actorID,
		Action:      action,
		Permissions: datatypes.JSON(payload),
	}).Error
}
