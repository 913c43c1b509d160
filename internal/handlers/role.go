package handlers

import (
	"errors"
	"strconv"

	"keeper/internal/middleware"
	"keeper/internal/rbac"
	"keeper/internal/services"
	"keeper/pkg/logger"
	"keeper/pkg/pagination"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,max=50"`
	Description string   `json:"description" binding:"max=255"`
	Permissions []string `json:"permissions" binding:"dive,permaction"`
}

type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"dive,permaction"`
}

type RoleHandler struct {
	service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{
		service: service,
	}
}

// GetAll 获取角色列表（支持分页）
func (h *RoleHandler) GetAll(c *gin.Context) {
	roles, pageInfo := h.service.List(pagination.ParsePageParams(c))
	response.SuccessWithPage(c, roles, pageInfo)
}

// GetByID 获取角色
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	role, err := h.service.GetByID(id)
	if err != nil {
		response.NotFound(c, "角色不存在")
		return
	}
	response.Success(c, role)
}

// Create 创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentIdentity(c)
	role, err := h.service.Create(c.Request.Context(), actor.UserID, req.Name, req.Description, req.Permissions)
	if err != nil {
		h.writeError(c, err, "创建失败")
		return
	}
	response.Created(c, "角色创建成功", role)
}

// SetPermissions 替换角色权限
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentIdentity(c)
	role, err := h.service.SetPermissions(c.Request.Context(), actor.UserID, id, req.Permissions)
	if err != nil {
		h.writeError(c, err, "更新失败")
		return
	}
	response.Success(c, role)
}

func (h *RoleHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, rbac.ErrInvalidRoleName):
		response.BadRequest(c, "角色名称不能为空")
	case errors.Is(err, rbac.ErrRoleExists):
		response.Conflict(c, "角色名称已存在")
	case errors.Is(err, rbac.ErrRoleNotFound):
		response.NotFound(c, "角色不存在")
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		response.ServerError(c, fallback)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return 0, false
	}
	return uint(id), true
}
