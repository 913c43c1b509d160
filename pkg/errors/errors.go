package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// 机器可读的错误标识，随响应体返回给客户端
const (
	ReasonAuthenticationRequired = "authentication_required"
	ReasonInvalidToken           = "invalid_token"
	ReasonExpiredToken           = "expired_token"
	ReasonPermissionDenied       = "permission_denied"
	ReasonInvalidCredentials     = "invalid_credentials"
	ReasonAccountNotActive       = "account_not_active"
)

// ========== 认证授权错误 ==========

var (
	// ErrAuthenticationRequired 受保护路径未携带令牌
	ErrAuthenticationRequired = stderrors.New("authentication required")
	// ErrInvalidToken 令牌格式错误或签名无效
	ErrInvalidToken = stderrors.New("invalid token")
	// ErrExpiredToken 签名有效但已过期
	ErrExpiredToken = stderrors.New("expired token")
	// ErrPermissionDenied 已认证但角色缺少所需权限
	ErrPermissionDenied = stderrors.New("permission denied")
)

// ConfigurationError 启动期配置错误（未知权限、默认角色无法解析），出现时不得对外提供服务
type ConfigurationError struct {
	Op      string
	Unknown []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if len(e.Unknown) > 0 {
		fmt.Fprintf(&b, ": unknown permission actions %s", strings.Join(e.Unknown, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError 判断错误链中是否包含配置错误
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return stderrors.As(err, &cfgErr)
}
