package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// QueryPredicate 查询参数判定
type QueryPredicate func(url.Values) bool

// QueryEquals 参数值完全相等时匹配
func QueryEquals(key, value string) QueryPredicate {
	return func(q url.Values) bool {
		return q.Get(key) == value
	}
}

// AnyQuery 任一判定满足即匹配
func AnyQuery(preds ...QueryPredicate) QueryPredicate {
	return func(q url.Values) bool {
		for _, p := range preds {
			if p(q) {
				return true
			}
		}
		return false
	}
}

// PublicRule 无需令牌即可访问的一组 API 路径
// Prefix 相对于 API 前缀，按路径段边界匹配
type PublicRule struct {
	Name   string
	Prefix string
	// RequireSubpath 只匹配 Prefix 下的子路径，如 /posts/{id}
	RequireSubpath bool
	// Methods 允许的方法，为空时不限制
	Methods           []string
	ForbiddenMethods  []string
	ForbiddenSuffixes []string
	Query             QueryPredicate
}

// Matches 请求是否命中该公开规则，rel 已去掉 API 前缀
func (r PublicRule) Matches(method, rel string, query url.Values) bool {
	if r.RequireSubpath {
		if !strings.HasPrefix(rel, r.Prefix+"/") || len(rel) == len(r.Prefix)+1 {
			return false
		}
	} else if !hasPathPrefix(rel, r.Prefix) {
		return false
	}
	if len(r.Methods) > 0 && !containsMethod(r.Methods, method) {
		return false
	}
	if containsMethod(r.ForbiddenMethods, method) {
		return false
	}
	for _, suffix := range r.ForbiddenSuffixes {
		if strings.HasSuffix(rel, suffix) {
			return false
		}
	}
	if r.Query != nil && !r.Query(query) {
		return false
	}
	return true
}

func (r PublicRule) clone() PublicRule {
	r.Methods = append([]string(nil), r.Methods...)
	r.ForbiddenMethods = append([]string(nil), r.ForbiddenMethods...)
	r.ForbiddenSuffixes = append([]string(nil), r.ForbiddenSuffixes...)
	return r
}

func hasPathPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Class 请求分类结果
type Class int

const (
	ClassOutsideAPI Class = iota
	ClassPublic
	ClassProtected
)

func (c Class) String() string {
	switch c {
	case ClassOutsideAPI:
		return "outside_api"
	case ClassPublic:
		return "public"
	default:
		return "protected"
	}
}

// Policy 有序规则列表，首个命中的规则生效
type Policy struct {
	APIPrefix string
	Rules     []PublicRule
}

// Classify 返回请求分类及命中的公开规则名
func (p Policy) Classify(method, rawPath string, query url.Values) (Class, string) {
	clean := path.Clean("/" + rawPath)
	if !hasPathPrefix(clean, p.APIPrefix) {
		return ClassOutsideAPI, ""
	}
	rel := strings.TrimPrefix(clean, p.APIPrefix)
	for _, rule := range p.Rules {
		if rule.Matches(method, rel, query) {
			return ClassPublic, rule.Name
		}
	}
	return ClassProtected, ""
}

func (p Policy) clone() Policy {
	rules := make([]PublicRule, len(p.Rules))
	for i, r := range p.Rules {
		rules[i] = r.clone()
	}
	return Policy{APIPrefix: strings.TrimSuffix(p.APIPrefix, "/"), Rules: rules}
}

// DefaultPublicRules 社团公开路径表
// 认证和文件前缀下只有 DELETE 与上传接口需要令牌
func DefaultPublicRules() []PublicRule {
	open := func(name, prefix string) PublicRule {
		return PublicRule{
			Name:              name,
			Prefix:            prefix,
			ForbiddenMethods:  []string{http.MethodDelete},
			ForbiddenSuffixes: []string{"upload"},
		}
	}
	getOnly := func(name, prefix string) PublicRule {
		return PublicRule{Name: name, Prefix: prefix, Methods: []string{http.MethodGet}}
	}

	return []PublicRule{
		open("auth-login", "/auth/login"),
		open("auth-register", "/auth/register"),
		open("auth-send-verification-code", "/auth/send-verification-code"),
		open("auth-verify-code", "/auth/verify-code"),
		open("files", "/files"),
		// 公开路径表只按查询参数匹配公告列表，这里额外限定 GET
		// 写操作即使带公告参数也需要令牌，见 DESIGN.md 开放问题决策 2
		{
			Name:    "notice-posts",
			Prefix:  "/posts",
			Methods: []string{http.MethodGet},
			Query:   AnyQuery(QueryEquals("categoryId", "1"), QueryEquals("category", "notice")),
		},
		{
			Name:           "post-detail",
			Prefix:         "/posts",
			RequireSubpath: true,
			Methods:        []string{http.MethodGet},
		},
		getOnly("events", "/events"),
		getOnly("books", "/books"),
		getOnly("fees", "/fees"),
	}
}
