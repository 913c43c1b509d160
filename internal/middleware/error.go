package middleware

import (
	"fmt"
	"runtime/debug"

	"keeper/pkg/logger"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery 捕获处理器panic并返回统一的500响应
// 响应已开始写出时只记录日志并中止，避免拼接出损坏的JSON
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"panic":  fmt.Sprint(rec),
				"stack":  string(debug.Stack()),
			}).Error("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.ServerError(c, "服务器内部错误")
			c.Abort()
		}()

		c.Next()
	}
}
