package middleware

import (
	"keeper/internal/rbac"
	apperrors "keeper/pkg/errors"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件，身份由网关写入
type AuthMiddleware struct {
	checker rbac.Checker
}

func NewAuthMiddleware(checker rbac.Checker) *AuthMiddleware {
	return &AuthMiddleware{checker: checker}
}

// RequireLogin 要求网关已写入身份，用于挂在公开前缀下但需要登录的路由
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			response.Unauthorized(c, apperrors.ReasonAuthenticationRequired, "请先登录")
			return
		}
		c.Next()
	}
}

// RequirePermission 要求特定权限
func (m *AuthMiddleware) RequirePermission(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, apperrors.ReasonAuthenticationRequired, "请先登录")
			return
		}

		if err := rbac.Require(m.checker, id.RoleID, action); err != nil {
			response.Forbidden(c, "权限不足：需要 "+action+" 权限")
			return
		}

		c.Next()
	}
}
