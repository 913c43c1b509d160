package rbac

import (
	"context"
	"errors"
	"fmt"

	"keeper/internal/models"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedUser 首次启动时创建的账号
type SeedUser struct {
	Email     string
	StudentID string
	Name      string
	Password  string
	Status    string
	RoleName  string
}

// SeedCategory 分类表为空时创建的帖子分类
type SeedCategory struct {
	Name        string
	Description string
}

// Bootstrapper 初始化权限目录、角色、用户和分类
// 每组数据在独立事务中以插入忽略方式写入，重复或并发执行结果一致
type Bootstrapper struct {
	store      *Store
	roles      []RoleSpec
	users      []SeedUser
	categories []SeedCategory
}

func NewBootstrapper(store *Store, roles []RoleSpec, users []SeedUser, categories []SeedCategory) *Bootstrapper {
	return &Bootstrapper{
		store:      store,
		roles:      roles,
		users:      users,
		categories: categories,
	}
}

// Run 写入种子数据并加载角色快照
// 返回 *ConfigurationError 时进程不能对外服务
func (b *Bootstrapper) Run(ctx context.Context) error {
	log := logger.GetLogger()
	log.Info("Starting RBAC bootstrap...")

	// 先校验，再写库
	resolved := make([][]string, len(b.roles))
	for i, rs := range b.roles {
		actions, err := ResolveRole(b.store.catalog, rs)
		if err != nil {
			return err
		}
		resolved[i] = actions
	}

	db := b.store.db.WithContext(ctx)

	if err := b.seedPermissions(db); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	for i, rs := range b.roles {
		if err := b.seedRole(db, rs, resolved[i]); err != nil {
			return fmt.Errorf("seed role %s: %w", rs.Name, err)
		}
	}
	for _, u := range b.users {
		if err := b.seedUser(db, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	if err := b.seedCategories(db); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	if err := b.store.Load(ctx); err != nil {
		return err
	}
	if _, ok := b.store.RoleByName(DefaultRoleName); !ok {
		return &apperrors.ConfigurationError{Op: "default role " + DefaultRoleName + " missing after bootstrap"}
	}

	log.Info("RBAC bootstrap completed")
	return nil
}

func (b *Bootstrapper) seedPermissions(db *gorm.DB) error {
	entries := b.store.catalog.Entries()
	perms := make([]models.Permission, 0, len(entries))
	for _, e := range entries {
		perms = append(perms, models.Permission{Action: e.Action, Description: e.Description})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "action"}}, DoNothing: true}).
			CreateInBatches(perms, 100)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			logger.GetLogger().Infof("权限初始化完成，新增 %d 条", res.RowsAffected)
		} else {
			logger.GetLogger().Info("权限已存在，跳过创建")
		}
		return nil
	})
}

// seedRole 只在本次创建角色时绑定权限，管理员对种子角色的修改在重启后保留
func (b *Bootstrapper) seedRole(db *gorm.DB, rs RoleSpec, actions []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		role := models.Role{Name: rs.Name, Description: rs.Description}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			logger.GetLogger().Infof("角色 %s 已存在，跳过创建", rs.Name)
			return nil
		}
		if err := attachPermissions(tx, role.ID, actions); err != nil {
			return err
		}
		logger.GetLogger().Infof("角色 %s 创建成功，权限 %d 个", rs.Name, len(actions))
		return nil
	})
}

func (b *Bootstrapper) seedUser(db *gorm.DB, u SeedUser) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.GetLogger().Infof("用户 %s 已存在，跳过创建", u.Email)
		return nil
	}

	var role models.Role
	if err := db.Where("name = ?", u.RoleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ConfigurationError{Op: "seed user " + u.Email + " references missing role " + u.RoleName}
		}
		return err
	}

	user := models.User{
		Email:     u.Email,
		StudentID: u.StudentID,
		Name:      u.Name,
		Status:    u.Status,
		RoleID:    role.ID,
	}
	if err := user.SetPassword(u.Password); err != nil {
		return fmt.Errorf("设置密码失败: %w", err)
	}

	// 计数之后并发初始化可能已插入同一账号
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		logger.GetLogger().Infof("用户 %s 创建成功", u.Email)
	}
	return nil
}

func (b *Bootstrapper) seedCategories(db *gorm.DB) error {
	if len(b.categories) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			logger.GetLogger().Info("分类已存在，跳过创建")
			return nil
		}

		cats := make([]models.Category, 0, len(b.categories))
		for _, c := range b.categories {
			cats = append(cats, models.Category{Name: c.Name, Description: c.Description})
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			CreateInBatches(cats, 100).Error
	})
}
