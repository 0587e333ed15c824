package security

import (
	"slices"
	"strings"

	"SMProject/global"
	"SMProject/tools/errs"
	"SMProject/tools/security"

	"github.com/gin-gonic/gin"
)

// context keys set by Middleware
const (
	CtxUserIDKey = "userId"
	CtxRoleKey   = "role"
)

type Options struct {
	JWT security.Options
	// HeaderToken is read before "Authorization: Bearer".
	HeaderToken string
}

func DefaultOptions(jwt security.Options) *Options {
	return &Options{JWT: jwt, HeaderToken: "x-auth-token"}
}

// Middleware rejects requests without a valid bearer token.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, opts)
		if err != nil {
			global.Fail(c, err)
			return
		}
		bind(c, claims)
		c.Next()
	}
}

// Optional attaches the caller when a valid token is present and lets
// anonymous requests through.
func Optional(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := authenticate(c, opts); err == nil {
			bind(c, claims)
		}
		c.Next()
	}
}

// RequireRole must run after Middleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if !slices.Contains(roles, role) {
			global.Fail(c, errs.ErrNoPermission.WrapMsg("role not authorized", "role", role))
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(CtxUserIDKey) }
func Role(c *gin.Context) string   { return c.GetString(CtxRoleKey) }

func authenticate(c *gin.Context, opts *Options) (*security.Claims, error) {
	token := extractToken(c, opts.HeaderToken)
	if token == "" {
		return nil, errs.ErrTokenMissing.WrapMsg("not authorized, no token")
	}
	return security.Verify(opts.JWT, token)
}

func extractToken(c *gin.Context, header string) string {
	if header != "" {
		if t := strings.TrimSpace(c.GetHeader(header)); t != "" {
			return t
		}
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

func bind(c *gin.Context, claims *security.Claims) {
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxRoleKey, claims.Role)
}
