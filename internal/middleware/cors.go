package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	defaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodOptions, http.MethodPatch,
	}
	defaultCORSHeaders = []string{"Content-Type", "Authorization"}
)

// CORSPolicy 白名单内的来源原样返回，其它来源使用默认来源
type CORSPolicy struct {
	AllowOrigins  []string
	DefaultOrigin string
	AllowMethods  []string
	AllowHeaders  []string
	MaxAge        time.Duration
}

// NewCORSPolicy 使用浏览器客户端所需的方法和请求头创建策略
// defaultOrigin 为空时使用白名单第一项
func NewCORSPolicy(origins []string, defaultOrigin string, maxAge time.Duration) CORSPolicy {
	return CORSPolicy{
		AllowOrigins:  append([]string(nil), origins...),
		DefaultOrigin: defaultOrigin,
		AllowMethods:  append([]string(nil), defaultCORSMethods...),
		AllowHeaders:  append([]string(nil), defaultCORSHeaders...),
		MaxAge:        maxAge,
	}
}

func (p CORSPolicy) clone() CORSPolicy {
	p.AllowOrigins = append([]string(nil), p.AllowOrigins...)
	p.AllowMethods = append([]string(nil), p.AllowMethods...)
	p.AllowHeaders = append([]string(nil), p.AllowHeaders...)
	if len(p.AllowMethods) == 0 {
		p.AllowMethods = append([]string(nil), defaultCORSMethods...)
	}
	if len(p.AllowHeaders) == 0 {
		p.AllowHeaders = append([]string(nil), defaultCORSHeaders...)
	}
	if p.DefaultOrigin == "" && len(p.AllowOrigins) > 0 {
		p.DefaultOrigin = p.AllowOrigins[0]
	}
	return p
}

// AllowOrigin 返回 Access-Control-Allow-Origin 的值
func (p CORSPolicy) AllowOrigin(origin string) string {
	if origin != "" {
		for _, o := range p.AllowOrigins {
			if o == origin {
				return origin
			}
		}
	}
	return p.DefaultOrigin
}

func (p CORSPolicy) apply(h http.Header, origin string) {
	allow := p.AllowOrigin(origin)
	if allow == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Vary", "Origin")
}

func (p CORSPolicy) applyPreflight(h http.Header, origin string) {
	p.apply(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.AllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(p.AllowHeaders, ", "))
	if p.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(p.MaxAge/time.Second)))
	}
}
