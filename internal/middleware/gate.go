package middleware

import (
	"errors"
	"net/http"
	"strings"

	apperrors "keeper/pkg/errors"
	"keeper/pkg/jwt"
	"keeper/pkg/logger"
	"keeper/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenVerifier 校验令牌，过期返回 ErrExpiredToken，其余失败返回 ErrInvalidToken
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// GateConfig 网关配置
type GateConfig struct {
	APIPrefix string
	Rules     []PublicRule
	CORS      CORSPolicy
}

// Gate 请求网关：CORS、预检、公开路径放行与令牌认证
type Gate struct {
	policy  Policy
	cors    CORSPolicy
	tokens  TokenVerifier
	metrics *GateMetrics
}

// GateOption 网关选项
type GateOption func(*Gate)

// WithGateMetrics 记录网关决策
func WithGateMetrics(m *GateMetrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate 创建网关，配置在创建时复制，之后不可变
func NewGate(cfg GateConfig, tokens TokenVerifier, opts ...GateOption) *Gate {
	g := &Gate{
		policy: Policy{APIPrefix: cfg.APIPrefix, Rules: cfg.Rules}.clone(),
		cors:   cfg.CORS.clone(),
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy 返回网关使用的路径策略
func (g *Gate) Policy() Policy {
	return g.policy.clone()
}

// Handler 返回gin中间件，需通过 engine.Use 全局挂载以覆盖未注册路由的预检请求
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if c.Request.Method == http.MethodOptions {
			g.cors.applyPreflight(c.Writer.Header(), origin)
			g.metrics.observe(DecisionPreflight, "")
			c.AbortWithStatus(http.StatusOK)
			return
		}

		g.cors.apply(c.Writer.Header(), origin)

		class, rule := g.policy.Classify(c.Request.Method, c.Request.URL.Path, c.Request.URL.Query())
		switch class {
		case ClassOutsideAPI:
			g.metrics.observe(DecisionOutsideAPI, "")
			c.Next()
			return
		case ClassPublic:
			g.metrics.observe(DecisionPublic, rule)
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			g.reject(c, apperrors.ReasonAuthenticationRequired, "请先登录")
			return
		}

		claims, err := g.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				g.reject(c, apperrors.ReasonExpiredToken, "登录已过期，请重新登录")
			} else {
				g.reject(c, apperrors.ReasonInvalidToken, "Token无效")
			}
			return
		}

		setIdentity(c, Identity{UserID: claims.UserID, RoleID: claims.RoleID})
		g.metrics.observe(DecisionAuthenticated, "")
		c.Next()
	}
}

func (g *Gate) reject(c *gin.Context, reason, message string) {
	g.metrics.observe(DecisionRejected, reason)
	logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"reason": reason,
	}).Info("request rejected by gate")
	response.Unauthorized(c, reason, message)
}

// bearerToken 提取Bearer令牌，格式不符视为未携带
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
