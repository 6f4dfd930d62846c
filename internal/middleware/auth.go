package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/apperr"
	"counseling-api/internal/auth"
	"counseling-api/internal/model"
)

const principalKey = "principal"

// Authenticate resolves the Bearer token into an auth.Principal. Requests
// without a valid token are rejected with 401.
func Authenticate(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || raw == "" {
			abort(c, apperr.Unauthorized("未登录"))
			return
		}

		p, err := issuer.Parse(raw)
		if err != nil {
			abort(c, apperr.Unauthorized("登录已失效"))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
// It must run after Authenticate.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, apperr.Unauthorized("未登录"))
			return
		}
		for _, r := range roles {
			if p.Is(r) {
				c.Next()
				return
			}
		}
		abort(c, apperr.Forbidden("无权访问"))
	}
}

func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
