package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"keeper/internal/models"
	"keeper/internal/rbac"
	"keeper/pkg/logger"
	"keeper/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotActive      = errors.New("账号尚未通过审核")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailExists        = errors.New("邮箱已存在")
	ErrStudentIDExists    = errors.New("学号已存在")
	ErrInvalidParams      = errors.New("参数错误")
	ErrUserNotPending     = errors.New("用户不在待审核状态")
	ErrRoleUnknown        = errors.New("角色不存在")
)

var validate = validator.New()

// RoleDirectory 角色快照、权限判定与默认角色解析
type RoleDirectory interface {
	rbac.Checker
	FindOrCreateDefaultRole(ctx context.Context, name string) (uint, error)
	Role(id uint) (rbac.RoleView, bool)
	RoleByName(name string) (rbac.RoleView, bool)
}

var _ RoleDirectory = (*rbac.Store)(nil)

// TokenIssuer 签发身份令牌
type TokenIssuer interface {
	Issue(userID, roleID uint) (string, time.Time, error)
}

type UserService struct {
	db     *gorm.DB
	roles  RoleDirectory
	tokens TokenIssuer
}

func NewUserService(db *gorm.DB, roles RoleDirectory, tokens TokenIssuer) *UserService {
	return &UserService{
		db:     db,
		roles:  roles,
		tokens: tokens,
	}
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// RegisterParams 注册参数
type RegisterParams struct {
	Email     string
	StudentID string
	Password  string
	Name      string
	Major     string
	Class     string
}

// Login 校验密码并签发令牌，只有审核通过的用户可以登录
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(strings.ToLower(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserNotActive
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.RoleID)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id": user.ID,
		"role_id": user.RoleID,
	}).Info("user logged in")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// Register 创建待审核用户，角色为默认角色
func (s *UserService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.StudentID = strings.TrimSpace(p.StudentID)
	p.Name = strings.TrimSpace(p.Name)
	if err := s.ValidateRegisterParams(p); err != nil {
		return nil, err
	}

	roleID, err := s.roles.FindOrCreateDefaultRole(ctx, rbac.DefaultRoleName)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     p.Email,
		StudentID: p.StudentID,
		Name:      p.Name,
		Major:     strings.TrimSpace(p.Major),
		Class:     strings.TrimSpace(p.Class),
		Status:    models.UserStatusPendingApproval,
		RoleID:    roleID,
	}
	if err := user.SetPassword(p.Password); err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailExists
		}
		if err := tx.Model(&models.User{}).Where("student_id = ?", user.StudentID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrStudentIDExists
		}

		// 并发注册同一邮箱时唯一索引兜底
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEmailExists
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("user_id", user.ID).Info("user registered, pending approval")
	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListPending 分页列出待审核用户
func (s *UserService) ListPending(ctx context.Context, p pagination.PageParams) ([]models.User, *pagination.PageInfo, error) {
	p = p.Normalize()
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("status = ?", models.UserStatusPendingApproval)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var users []models.User
	if err := query.Order("id").Offset(p.Offset()).Limit(p.PageSize).Find(&users).Error; err != nil {
		return nil, nil, err
	}
	return users, pagination.NewPageInfo(p.Page, p.PageSize, total), nil
}

// ApproveParams 审核参数
type ApproveParams struct {
	ActorID     uint
	ActorRoleID uint
	UserID      uint
	// 为空时使用 member，其它角色要求审核人持有 transfer_role
	RoleName string
}

// Approve 审核通过，角色默认为 member
func (s *UserService) Approve(ctx context.Context, p ApproveParams) (*models.User, error) {
	roleName := strings.TrimSpace(p.RoleName)
	if roleName == "" {
		roleName = models.RoleMember
	}
	if roleName != models.RoleMember {
		if err := rbac.Require(s.roles, p.ActorRoleID, "transfer_role"); err != nil {
			logger.FromContext(ctx).WithFields(logrus.Fields{
				"user_id":  p.UserID,
				"actor_id": p.ActorID,
				"role":     roleName,
			}).Warn("approval with role assignment denied")
			return nil, err
		}
	}
	role, ok := s.roles.RoleByName(roleName)
	if !ok {
		return nil, ErrRoleUnknown
	}
	return s.transition(ctx, p.ActorID, p.UserID, models.UserStatusActive, role.ID)
}

// Reject 拒绝注册申请
func (s *UserService) Reject(ctx context.Context, actorID, userID uint) (*models.User, error) {
	return s.transition(ctx, actorID, userID, models.UserStatusInactive, 0)
}

func (s *UserService) transition(ctx context.Context, actorID, userID uint, status string, roleID uint) (*models.User, error) {
	updates := map[string]interface{}{"status": status}
	if roleID != 0 {
		updates["role_id"] = roleID
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", userID, models.UserStatusPendingApproval).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetByID(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrUserNotPending
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":  userID,
		"actor_id": actorID,
		"status":   status,
	}).Info("user registration reviewed")
	return s.GetByID(ctx, userID)
}

// AssignRole 变更用户角色，已签发的令牌在过期前仍携带旧角色
func (s *UserService) AssignRole(ctx context.Context, actorID, userID, roleID uint) (*models.User, error) {
	if _, ok := s.roles.Role(roleID); !ok {
		return nil, ErrRoleUnknown
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role_id", roleID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":  userID,
		"actor_id": actorID,
		"role_id":  roleID,
	}).Info("user role changed")
	return s.GetByID(ctx, userID)
}

// ValidateRegisterParams 验证注册参数
func (s *UserService) ValidateRegisterParams(p RegisterParams) error {
	if err := validate.Var(p.Email, "required,email,max=100"); err != nil {
		return fmt.Errorf("%w: 邮箱格式错误", ErrInvalidParams)
	}
	if p.StudentID == "" || utf8.RuneCountInString(p.StudentID) > 32 {
		return fmt.Errorf("%w: 学号长度必须在1-32个字符之间", ErrInvalidParams)
	}
	if p.Name == "" || utf8.RuneCountInString(p.Name) > 100 {
		return fmt.Errorf("%w: 姓名长度必须在1-100个字符之间", ErrInvalidParams)
	}
	if len(p.Password) < 8 || len(p.Password) > 72 {
		return fmt.Errorf("%w: 密码长度必须在8-72个字符之间", ErrInvalidParams)
	}
	return nil
}
