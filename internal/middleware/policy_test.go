package middleware

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, p Policy, method, target string) Class {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	class, _ := p.Classify(method, u.Path, u.Query())
	return class
}

func TestDefaultPolicyClassification(t *testing.T) {
	p := Policy{APIPrefix: "/api", Rules: DefaultPublicRules()}

	cases := []struct {
		method string
		target string
		want   Class
	}{
		{http.MethodPost, "/api/auth/login", ClassPublic},
		{http.MethodGet, "/api/auth/login", ClassPublic},
		{http.MethodPost, "/api/auth/register", ClassPublic},
		{http.MethodPost, "/api/auth/send-verification-code", ClassPublic},
		{http.MethodPost, "/api/auth/verify-code", ClassPublic},
		{http.MethodDelete, "/api/auth/login", ClassProtected},
		{http.MethodGet, "/api/auth/me", ClassProtected},
		{http.MethodGet, "/api/auth/loginx", ClassProtected},

		{http.MethodGet, "/api/files/abc.png", ClassPublic},
		{http.MethodGet, "/api/files", ClassPublic},
		{http.MethodDelete, "/api/files/1", ClassProtected},
		{http.MethodPost, "/api/files/upload", ClassProtected},
		{http.MethodGet, "/api/files/../users", ClassProtected},

		{http.MethodGet, "/api/posts?categoryId=1", ClassPublic},
		{http.MethodGet, "/api/posts?category=notice", ClassPublic},
		{http.MethodGet, "/api/posts?page=2&categoryId=1", ClassPublic},
		{http.MethodGet, "/api/posts?categoryId=10", ClassProtected},
		{http.MethodGet, "/api/posts?category=notices", ClassProtected},
		{http.MethodPost, "/api/posts?categoryId=1", ClassProtected},
		{http.MethodGet, "/api/posts", ClassProtected},
		{http.MethodGet, "/api/posts/", ClassProtected},
		{http.MethodGet, "/api/posts/5", ClassPublic},
		{http.MethodGet, "/api/posts/5/comments", ClassPublic},
		{http.MethodPut, "/api/posts/5", ClassProtected},
		{http.MethodDelete, "/api/posts/5", ClassProtected},

		{http.MethodGet, "/api/events", ClassPublic},
		{http.MethodGet, "/api/events/3", ClassPublic},
		{http.MethodPost, "/api/events", ClassProtected},
		{http.MethodGet, "/api/eventsx", ClassProtected},
		{http.MethodGet, "/api/books/9", ClassPublic},
		{http.MethodPut, "/api/books/9", ClassProtected},
		{http.MethodGet, "/api/fees", ClassPublic},
		{http.MethodDelete, "/api/fees/2", ClassProtected},

		{http.MethodGet, "/api", ClassProtected},
		{http.MethodGet, "/api/users", ClassProtected},
		{http.MethodGet, "/api/roles", ClassProtected},

		{http.MethodGet, "/health", ClassOutsideAPI},
		{http.MethodGet, "/metrics", ClassOutsideAPI},
		{http.MethodGet, "/apix/users", ClassOutsideAPI},
		{http.MethodGet, "/", ClassOutsideAPI},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(t, p, tc.method, tc.target))
		})
	}
}

func TestClassifyReportsRuleName(t *testing.T) {
	p := Policy{APIPrefix: "/api", Rules: DefaultPublicRules()}

	class, rule := p.Classify(http.MethodGet, "/api/posts", url.Values{"category": {"notice"}})
	assert.Equal(t, ClassPublic, class)
	assert.Equal(t, "notice-posts", rule)

	class, rule = p.Classify(http.MethodGet, "/api/posts/12", nil)
	assert.Equal(t, ClassPublic, class)
	assert.Equal(t, "post-detail", rule)

	class, rule = p.Classify(http.MethodGet, "/api/users", nil)
	assert.Equal(t, ClassProtected, class)
	assert.Empty(t, rule)
}

func TestGateCopiesRules(t *testing.T) {
	rules := DefaultPublicRules()
	g := NewGate(GateConfig{APIPrefix: "/api/", Rules: rules}, nil)

	rules[0].Prefix = "/users"
	rules[4].ForbiddenMethods[0] = http.MethodGet

	p := g.Policy()
	assert.Equal(t, ClassProtected, classify(t, p, http.MethodGet, "/api/users"))
	assert.Equal(t, ClassProtected, classify(t, p, http.MethodDelete, "/api/files/1"))
	assert.Equal(t, ClassPublic, classify(t, p, http.MethodGet, "/api/files/1"))
}

func TestCORSPolicyAllowOrigin(t *testing.T) {
	origins := []string{"https://club.example.org", "http://localhost:3000"}

	p := NewCORSPolicy(origins, "", time.Hour).clone()
	assert.Equal(t, "http://localhost:3000", p.AllowOrigin("http://localhost:3000"))
	assert.Equal(t, "https://club.example.org", p.AllowOrigin("https://evil.example.com"))
	assert.Equal(t, "https://club.example.org", p.AllowOrigin(""))

	explicit := NewCORSPolicy(origins, "https://www.example.org", time.Hour).clone()
	assert.Equal(t, "https://www.example.org", explicit.AllowOrigin("https://evil.example.com"))
	assert.Equal(t, "https://club.example.org", explicit.AllowOrigin("https://club.example.org"))

	empty := NewCORSPolicy(nil, "", 0).clone()
	assert.Empty(t, empty.AllowOrigin("https://club.example.org"))
}
