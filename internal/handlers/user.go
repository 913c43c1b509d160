package handlers

import (
	"errors"

	"keeper/internal/middleware"
	"keeper/internal/services"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/logger"
	"keeper/pkg/pagination"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApproveUserRequest struct {
	// 为空时使用 member，指定其它角色需要 transfer_role
	Role string `json:"role" binding:"max=50"`
}

type AssignRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetPending 待审核用户列表
func (h *UserHandler) GetPending(c *gin.Context) {
	users, pageInfo, err := h.service.ListPending(c.Request.Context(), pagination.ParsePageParams(c))
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("list pending users")
		response.ServerError(c, "查询失败")
		return
	}
	response.SuccessWithPage(c, users, pageInfo)
}

// Approve 审核通过
func (h *UserHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ApproveUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	actor, _ := middleware.CurrentIdentity(c)
	user, err := h.service.Approve(c.Request.Context(), services.ApproveParams{
		ActorID:     actor.UserID,
		ActorRoleID: actor.RoleID,
		UserID:      id,
		RoleName:    req.Role,
	})
	if err != nil {
		h.writeError(c, err, "审核失败")
		return
	}
	response.Success(c, user)
}

// Reject 拒绝注册
func (h *UserHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, _ := middleware.CurrentIdentity(c)
	user, err := h.service.Reject(c.Request.Context(), actor.UserID, id)
	if err != nil {
		h.writeError(c, err, "审核失败")
		return
	}
	response.Success(c, user)
}

// AssignRole 变更用户角色
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentIdentity(c)
	user, err := h.service.AssignRole(c.Request.Context(), actor.UserID, id, req.RoleID)
	if err != nil {
		h.writeError(c, err, "角色变更失败")
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUserNotPending):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrRoleUnknown):
		response.BadRequest(c, err.Error())
	case errors.Is(err, apperrors.ErrPermissionDenied):
		response.Forbidden(c, "无权指定该角色")
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		response.ServerError(c, fallback)
	}
}
