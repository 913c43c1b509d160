package jwt

import (
	"errors"
	"fmt"
	"time"

	apperrors "keeper/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 身份令牌声明，只携带用户ID和角色ID
type Claims struct {
	UserID uint `json:"userId"`
	RoleID uint `json:"roleId"`
	jwt.RegisteredClaims
}

// Manager 令牌签发与校验，纯计算，不访问数据库
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
	issuer        string
	now           func() time.Time
}

// Option 可选配置
type Option func(*Manager)

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIssuer 设置签发者
func WithIssuer(issuer string) Option {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// NewManager 创建令牌管理器
func NewManager(secretKey string, tokenDuration time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		issuer:        "keeper",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue 签发令牌
func (m *Manager) Issue(userID, roleID uint) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.tokenDuration)

	claims := Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify 校验令牌。签名有效但已过期返回 ErrExpiredToken，其余失败一律 ErrInvalidToken
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrExpiredToken
		}
		return nil, apperrors.ErrInvalidToken
	}

	// 缺少主体声明视为无效
	if claims.UserID == 0 || claims.RoleID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// TokenDuration 令牌有效期
func (m *Manager) TokenDuration() time.Duration {
	return m.tokenDuration
}
