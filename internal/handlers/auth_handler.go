package handlers

import (
	"errors"

	"keeper/internal/middleware"
	"keeper/internal/rbac"
	"keeper/internal/services"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/logger"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleLookup 从角色快照读取角色
type RoleLookup interface {
	Role(id uint) (rbac.RoleView, bool)
}

type AuthHandler struct {
	userService *services.UserService
	roles       RoleLookup
}

func NewAuthHandler(userService *services.UserService, roles RoleLookup) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		roles:       roles,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	StudentID string `json:"student_id" binding:"required,max=32"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Name      string `json:"name" binding:"required,max=100"`
	Major     string `json:"major" binding:"max=100"`
	Class     string `json:"class" binding:"max=20"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID          uint     `json:"id"`
	Email       string   `json:"email"`
	StudentID   string   `json:"student_id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	RoleID      uint     `json:"role_id"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			response.Unauthorized(c, apperrors.ReasonInvalidCredentials, err.Error())
		case errors.Is(err, services.ErrUserNotActive):
			response.Reject(c, apperrors.CodeForbidden, apperrors.ReasonAccountNotActive, err.Error())
		default:
			logger.FromContext(c.Request.Context()).WithError(err).Error("login failed")
			response.ServerError(c, "登录失败")
		}
		return
	}

	info := h.userInfo(res.User.ID, res.User.Email, res.User.StudentID, res.User.Name, res.User.Status, res.User.RoleID)
	response.Success(c, LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
		User:      info,
	})
}

// Register 注册，新用户待审核，角色为默认角色
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterParams{
		Email:     req.Email,
		StudentID: req.StudentID,
		Password:  req.Password,
		Name:      req.Name,
		Major:     req.Major,
		Class:     req.Class,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailExists), errors.Is(err, services.ErrStudentIDExists):
			response.Conflict(c, err.Error())
		case apperrors.IsConfigurationError(err):
			logger.FromContext(c.Request.Context()).WithError(err).Error("default role unavailable")
			response.ServerError(c, "注册暂不可用")
		case errors.Is(err, services.ErrInvalidParams):
			response.BadRequest(c, err.Error())
		default:
			logger.FromContext(c.Request.Context()).WithError(err).Error("register failed")
			response.ServerError(c, "注册失败")
		}
		return
	}

	response.Created(c, "注册成功，请等待审核", UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		StudentID: user.StudentID,
		Name:      user.Name,
		Status:    user.Status,
		RoleID:    user.RoleID,
	})
}

// Me 当前登录用户
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, apperrors.ReasonAuthenticationRequired, "请先登录")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	// 角色以令牌为准
	response.Success(c, h.userInfo(user.ID, user.Email, user.StudentID, user.Name, user.Status, id.RoleID))
}

func (h *AuthHandler) userInfo(id uint, email, studentID, name, status string, roleID uint) UserInfo {
	info := UserInfo{
		ID:        id,
		Email:     email,
		StudentID: studentID,
		Name:      name,
		Status:    status,
		RoleID:    roleID,
	}
	if role, ok := h.roles.Role(roleID); ok {
		info.Role = role.Name
		info.Permissions = role.Permissions
	}
	return info
}
