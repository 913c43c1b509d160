package middleware

import (
	"context"

	"keeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// gin上下文中的身份键
const (
	ContextUserID = "user_id"
	ContextRoleID = "role_id"
)

// Identity 已认证请求的身份，仅由网关写入，客户端不可见
type Identity struct {
	UserID uint
	RoleID uint
}

type identityKey struct{}

// WithIdentity 将身份放入标准context，供服务层读取
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext 从标准context读取身份
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// CurrentIdentity 从gin上下文读取身份
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return Identity{}, false
	}
	roleID, ok := c.Get(ContextRoleID)
	if !ok {
		return Identity{}, false
	}
	uid, ok1 := userID.(uint)
	rid, ok2 := roleID.(uint)
	if !ok1 || !ok2 {
		return Identity{}, false
	}
	return Identity{UserID: uid, RoleID: rid}, true
}

func setIdentity(c *gin.Context, id Identity) {
	c.Set(ContextUserID, id.UserID)
	c.Set(ContextRoleID, id.RoleID)
	ctx := logger.WithFields(c.Request.Context(), logrus.Fields{"user_id": id.UserID, "role_id": id.RoleID})
	c.Request = c.Request.WithContext(WithIdentity(ctx, id))
}
