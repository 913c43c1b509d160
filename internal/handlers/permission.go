package handlers

import (
	"keeper/internal/services"
	"keeper/pkg/pagination"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	service *services.RoleService
}

func NewPermissionHandler(service *services.RoleService) *PermissionHandler {
	return &PermissionHandler{
		service: service,
	}
}

// GetAll 获取权限目录（支持分页）
func (h *PermissionHandler) GetAll(c *gin.Context) {
	permissions, pageInfo := h.service.ListPermissions(pagination.ParsePageParams(c))
	response.SuccessWithPage(c, permissions, pageInfo)
}
